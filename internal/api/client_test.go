package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"reelvault/internal/api"
)

func TestBaseURLFromBind(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:7487":   "http://127.0.0.1:7487",
		":7487":            "http://127.0.0.1:7487",
		"0.0.0.0:7487":     "http://127.0.0.1:7487",
		"http://host:1/":   "http://host:1",
		" localhost:9000 ": "http://localhost:9000",
	}
	for bind, want := range cases {
		if got := api.BaseURLFromBind(bind); got != want {
			t.Fatalf("BaseURLFromBind(%q) = %q, want %q", bind, got, want)
		}
	}
}

func TestClientSendsBearerAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		if r.URL.Path != "/api/resources" || r.URL.Query().Get("q") != "heat" || r.URL.Query().Get("page") != "2" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_ = json.NewEncoder(w).Encode(api.ResourceListResponse{
			Resources: []api.Resource{{ID: 4, Title: "Heat"}},
			Page:      2,
			Total:     11,
		})
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, "secret")
	resp, err := client.List(context.Background(), 2, "heat")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(resp.Resources) != 1 || resp.Resources[0].Title != "Heat" || resp.Page != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestClientDecodesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "handle refresh pending", Kind: "stale"})
	}))
	defer srv.Close()

	_, err := api.NewClient(srv.URL, "").Handle(context.Background(), 9)
	if err == nil {
		t.Fatal("expected error")
	}
	if !api.IsStatus(err, http.StatusConflict) {
		t.Fatalf("expected 409, got %v", err)
	}
	if api.IsStatus(err, http.StatusNotFound) {
		t.Fatal("did not expect 404 match")
	}
}

func TestClientPostsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %q", r.Method, r.Header.Get("Content-Type"))
		}
		var req api.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.ContentKey != "abc123" || req.Handle != "H1" {
			t.Errorf("unexpected body %+v", req)
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(api.SubmitResponse{ID: 1})
	}))
	defer srv.Close()

	resp, err := api.NewClient(srv.URL, "").Submit(context.Background(), api.SubmitRequest{ContentKey: "abc123", Handle: "H1"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.ID != 1 {
		t.Fatalf("unexpected id %d", resp.ID)
	}
}
