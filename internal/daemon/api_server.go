package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reelvault/internal/api"
	"reelvault/internal/catalog"
	"reelvault/internal/config"
	"reelvault/internal/logging"
	"reelvault/internal/services"
	"reelvault/internal/vault"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}
	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg.Paths.APIToken),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes(token string) http.Handler {
	router := chi.NewRouter()
	router.Use(requestID)
	router.Use(metricsMiddleware)

	// Metrics stay unauthenticated so scrapers need no token.
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(authMiddleware(token))
		r.Get("/api/status", s.handleStatus)
		r.Route("/api/resources", func(r chi.Router) {
			r.Post("/", s.handleSubmit)
			r.Get("/", s.handleList)
			r.Get("/{id}", s.handleShow)
			r.Get("/{id}/handle", s.handleHandle)
			r.Post("/{id}/mirror", s.handleMirror)
		})
		r.Post("/api/mirror/backfill", s.handleBackfill)
		r.Post("/api/archive/notifications", s.handleNotification)
	})
	return router
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:         status.Running,
		PID:             status.PID,
		Backend:         status.Backend,
		CatalogLocation: status.CatalogLocation,
		LockFilePath:    status.LockFilePath,
		LogPath:         status.LogPath,
		VaultChatID:     status.VaultChatID,
		FeedEnabled:     status.FeedEnabled,
		FeedOffset:      status.FeedOffset,
		Catalog:         api.FromStats(status.Catalog),
		CatalogError:    status.CatalogError,
	})
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.daemon.engine.SubmitResource(r.Context(), req.Submission())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{ID: int64(id)})
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := 1
	if raw := strings.TrimSpace(query.Get("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, "invalid page", "validation")
			return
		}
		page = parsed
	}
	var (
		result catalog.Page
		err    error
	)
	if q := strings.TrimSpace(query.Get("q")); q != "" {
		result, err = s.daemon.store.Search(r.Context(), q, page)
	} else {
		result, err = s.daemon.store.List(r.Context(), page)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromPage(result))
}

func (s *apiServer) handleShow(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}
	rec, err := s.daemon.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if rec == nil {
		s.writeError(w, http.StatusNotFound, "resource not found", "not_found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.ResourceResponse{Resource: api.FromRecord(rec)})
}

func (s *apiServer) handleHandle(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}
	handle, err := s.daemon.engine.GetUsableHandle(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.HandleResponse{ID: int64(id), Handle: handle})
}

func (s *apiServer) handleMirror(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}
	loc, err := s.daemon.engine.MirrorNow(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MirrorResponse{ID: int64(id), Location: api.FromLocation(loc)})
}

func (s *apiServer) handleBackfill(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid limit", "validation")
			return
		}
		limit = parsed
	}
	queued, err := s.daemon.engine.Backfill(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.BackfillResponse{Queued: queued})
}

func (s *apiServer) handleNotification(w http.ResponseWriter, r *http.Request) {
	var req api.NotificationRequest
	if !s.decode(w, r, &req) {
		return
	}
	outcome, err := s.daemon.engine.OnArchiveNotification(r.Context(), req.Notification())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromOutcome(outcome))
}

func (s *apiServer) recordID(w http.ResponseWriter, r *http.Request) (catalog.RecordID, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid resource id", "validation")
		return 0, false
	}
	return catalog.RecordID(id), true
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "validation")
		return false
	}
	return true
}

// statusForError maps engine and catalog failures onto HTTP status codes.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, vault.ErrStaleRefreshPending):
		return http.StatusConflict, "stale"
	case errors.Is(err, vault.ErrMirrorInProgress):
		return http.StatusConflict, "in_progress"
	case errors.Is(err, catalog.ErrRecordNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrArchiveUnavailable), errors.Is(err, services.ErrTransport), errors.Is(err, services.ErrHandleInvalid):
		return http.StatusBadGateway, services.Kind(err)
	case errors.Is(err, services.ErrConfiguration):
		return http.StatusServiceUnavailable, "configuration"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusForError(err)
	logger := logging.WithContext(r.Context(), s.log())
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logger, "api request failed", "api_request_failed",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "see the wrapped error for the failing dependency"),
		)
	} else {
		logger.Debug("api request rejected",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
		)
	}
	s.writeError(w, status, err.Error(), kind)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message, kind string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Kind: kind})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}

// requestID tags each request context with a correlation id, reusing the
// caller's X-Request-ID when present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}
