package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"reelvault/internal/catalog"
	"reelvault/internal/logging"
	"reelvault/internal/services"
)

const (
	defaultMirrorWorkers   = 2
	defaultMirrorQueueSize = 64
	defaultMirrorTimeout   = 60 * time.Second
)

// MirrorTask asks the writer to anchor one record in the vault.
type MirrorTask struct {
	RecordID      catalog.RecordID
	Origin        *catalog.ArchiveLocation
	CorrelationID string
}

// MirrorWriter duplicates cataloged resources into the vault on a bounded
// worker pool. Workers and MirrorNow share one code path.
type MirrorWriter struct {
	catalog  Catalog
	archiver Archiver
	logger   *slog.Logger

	workers int
	timeout time.Duration
	queue   chan MirrorTask

	mu       sync.Mutex
	running  bool
	stopped  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inflight map[catalog.RecordID]struct{}
}

// MirrorOption configures a MirrorWriter.
type MirrorOption func(*mirrorSettings)

type mirrorSettings struct {
	workers   int
	queueSize int
	timeout   time.Duration
}

// WithWorkers sets the number of concurrent mirror workers.
func WithWorkers(n int) MirrorOption {
	return func(s *mirrorSettings) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithQueueSize sets the capacity of the pending-task queue.
func WithQueueSize(n int) MirrorOption {
	return func(s *mirrorSettings) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithAttemptTimeout bounds each archive duplication attempt.
func WithAttemptTimeout(d time.Duration) MirrorOption {
	return func(s *mirrorSettings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewMirrorWriter constructs a writer. Tasks enqueued before Start are held
// until workers begin.
func NewMirrorWriter(c Catalog, a Archiver, logger *slog.Logger, opts ...MirrorOption) *MirrorWriter {
	settings := mirrorSettings{
		workers:   defaultMirrorWorkers,
		queueSize: defaultMirrorQueueSize,
		timeout:   defaultMirrorTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	return &MirrorWriter{
		catalog:  c,
		archiver: a,
		logger:   logging.NewComponentLogger(logger, "mirror"),
		workers:  settings.workers,
		timeout:  settings.timeout,
		queue:    make(chan MirrorTask, settings.queueSize),
		inflight: make(map[catalog.RecordID]struct{}),
	}
}

// Start launches the worker pool.
func (w *MirrorWriter) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("mirror writer already running")
	}
	if w.stopped {
		return errors.New("mirror writer stopped")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(w.workers)
	for i := 0; i < w.workers; i++ {
		go w.runWorker(runCtx, i+1)
	}
	w.logger.Info("mirror workers started",
		logging.Int("workers", w.workers),
		logging.Int("queue_capacity", cap(w.queue)),
		logging.String(logging.FieldEventType, "mirror_started"),
	)
	return nil
}

// Stop cancels in-flight attempts and waits for workers to exit. Tasks still
// queued are abandoned; their records stay unmirrored for a later backfill.
func (w *MirrorWriter) Stop() {
	w.mu.Lock()
	w.stopped = true
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
	if pending := len(w.queue); pending > 0 {
		logging.WarnWithContext(w.logger, "mirror tasks abandoned at shutdown", "mirror_abandoned",
			logging.Int("pending", pending),
			logging.String(logging.FieldErrorHint, "run 'reelvault mirror backfill' or restart with backfill_on_start"),
			logging.String(logging.FieldImpact, "records remain without a vault copy until retried"),
		)
	}
}

// Enqueue hands a task to the workers without blocking. It returns false when
// the queue is full or the writer has stopped; the record then stays
// unmirrored and can be retried through MirrorNow or Backfill.
func (w *MirrorWriter) Enqueue(task MirrorTask) bool {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return false
	}
	select {
	case w.queue <- task:
		mirrorQueueDepth.Set(float64(len(w.queue)))
		return true
	default:
		mirrorDroppedTotal.Inc()
		logging.WarnWithContext(w.logger, "mirror queue full; task dropped", "mirror_queue_full",
			logging.Int64(logging.FieldRecordID, int64(task.RecordID)),
			logging.String(logging.FieldCorrelationID, task.CorrelationID),
			logging.String(logging.FieldErrorHint, "increase mirror.queue_size or mirror.workers"),
			logging.String(logging.FieldImpact, "record stays unmirrored until backfill"),
		)
		return false
	}
}

// MirrorNow mirrors a record synchronously on the caller's goroutine. A record
// that is already anchored returns its existing location.
func (w *MirrorWriter) MirrorNow(ctx context.Context, id catalog.RecordID) (catalog.ArchiveLocation, error) {
	return w.mirror(ctx, MirrorTask{RecordID: id})
}

// Backfill enqueues up to limit records that have no archive location and
// returns how many were accepted.
func (w *MirrorWriter) Backfill(ctx context.Context, limit int) (int, error) {
	records, err := w.catalog.ListUnmirrored(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("backfill: %w", err)
	}
	queued := 0
	for _, rec := range records {
		if w.Enqueue(MirrorTask{RecordID: rec.ID}) {
			queued++
		}
	}
	if len(records) > 0 {
		w.logger.Info("mirror backfill queued",
			logging.Int("candidates", len(records)),
			logging.Int("queued", queued),
			logging.String(logging.FieldEventType, "mirror_backfill"),
		)
	}
	return queued, nil
}

func (w *MirrorWriter) runWorker(ctx context.Context, worker int) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-w.queue:
			mirrorQueueDepth.Set(float64(len(w.queue)))
			taskCtx := services.WithRequestID(ctx, task.CorrelationID)
			if _, err := w.mirror(taskCtx, task); err != nil && ctx.Err() == nil {
				logging.WithContext(taskCtx, w.logger).Debug("mirror task finished with error",
					logging.Int("worker", worker),
					logging.Error(err),
				)
			}
		}
	}
}

func (w *MirrorWriter) claim(id catalog.RecordID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inflight[id]; busy {
		return false
	}
	w.inflight[id] = struct{}{}
	return true
}

func (w *MirrorWriter) release(id catalog.RecordID) {
	w.mu.Lock()
	delete(w.inflight, id)
	w.mu.Unlock()
}

func (w *MirrorWriter) mirror(ctx context.Context, task MirrorTask) (catalog.ArchiveLocation, error) {
	logger := logging.WithContext(ctx, w.logger).With(logging.Int64(logging.FieldRecordID, int64(task.RecordID)))

	if !w.claim(task.RecordID) {
		mirrorAttemptsTotal.WithLabelValues("in_progress").Inc()
		return catalog.ArchiveLocation{}, fmt.Errorf("record %d: %w", task.RecordID, ErrMirrorInProgress)
	}
	defer w.release(task.RecordID)

	rec, err := w.catalog.GetByID(ctx, task.RecordID)
	if err != nil {
		return catalog.ArchiveLocation{}, fmt.Errorf("mirror: load record %d: %w", task.RecordID, err)
	}
	if rec == nil {
		mirrorAttemptsTotal.WithLabelValues("missing").Inc()
		return catalog.ArchiveLocation{}, services.Wrap(services.ErrNotFound, "mirror", "load record",
			fmt.Sprintf("record %d does not exist", task.RecordID), nil)
	}
	if rec.Archive != nil {
		mirrorAttemptsTotal.WithLabelValues("already_anchored").Inc()
		return *rec.Archive, nil
	}

	attemptCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	started := time.Now()
	loc, err := w.archiver.DuplicateToArchive(attemptCtx, Source{
		RecordID:   rec.ID,
		ContentKey: rec.ContentKey,
		Handle:     rec.CurrentHandle,
		Caption:    rec.Caption,
		Origin:     task.Origin,
	})
	mirrorDurationSeconds.Observe(time.Since(started).Seconds())
	if err == nil && !loc.Valid() {
		err = fmt.Errorf("archive returned incomplete location %s", loc)
	}
	if err != nil {
		if !errors.Is(err, services.ErrArchiveUnavailable) {
			err = services.Wrap(services.ErrArchiveUnavailable, "mirror", "duplicate to archive", "", err)
		}
		mirrorAttemptsTotal.WithLabelValues("failed").Inc()
		logging.WarnWithContext(logger, "vault mirror failed; record left unmirrored", "mirror_failed",
			logging.String(logging.FieldContentKey, rec.ContentKey),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the bot's access to the vault channel"),
			logging.String(logging.FieldImpact, "stale handle cannot be repaired from the vault until mirrored"),
		)
		return catalog.ArchiveLocation{}, err
	}

	// A copy that lands in the vault but fails to attach is re-anchored by the
	// reconciler's content-key fallback when its channel post arrives.
	changed, err := w.catalog.AttachArchiveLocation(ctx, rec.ID, loc)
	if err != nil {
		mirrorAttemptsTotal.WithLabelValues("attach_failed").Inc()
		logging.ErrorWithContext(logger, "vault copy created but location not recorded", "mirror_attach_failed",
			logging.String(logging.FieldArchiveLocation, loc.String()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check catalog database health"),
		)
		return catalog.ArchiveLocation{}, fmt.Errorf("mirror: attach location: %w", err)
	}
	mirrorAttemptsTotal.WithLabelValues("succeeded").Inc()
	logger.Info("resource mirrored to vault",
		logging.String(logging.FieldContentKey, rec.ContentKey),
		logging.String(logging.FieldArchiveLocation, loc.String()),
		logging.Bool("changed", changed),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "mirror_completed"),
	)
	return loc, nil
}
