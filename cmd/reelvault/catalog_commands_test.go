package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"reelvault/internal/api"
	"reelvault/internal/catalog"
	"reelvault/internal/testsupport"
)

func TestCatalogListSearchAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	heat := testsupport.NewRecord(t, env.store, "abc123", "H1", "Heat")
	testsupport.NewRecord(t, env.store, "def456", "H2", "Alien")

	out, _, err := env.run(t, "catalog", "list")
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	requireContains(t, out, "Heat")
	requireContains(t, out, "Alien")
	requireContains(t, out, "Page 1 of 1 (2 resources)")

	out, _, err = env.run(t, "catalog", "search", "HEA")
	if err != nil {
		t.Fatalf("catalog search: %v", err)
	}
	requireContains(t, out, "Heat")
	if strings.Contains(out, "Alien") {
		t.Fatalf("search should not include Alien: %q", out)
	}

	out, _, err = env.run(t, "catalog", "search", "zzz")
	if err != nil {
		t.Fatalf("catalog search: %v", err)
	}
	requireContains(t, out, `No resources match "zzz"`)

	for _, ref := range []string{"1", "abc123", "heat"} {
		out, _, err = env.run(t, "--json", "catalog", "show", ref)
		if err != nil {
			t.Fatalf("catalog show %s: %v", ref, err)
		}
		var res api.Resource
		if err := json.Unmarshal([]byte(out), &res); err != nil {
			t.Fatalf("decode show %s: %v", ref, err)
		}
		if res.ID != int64(heat.ID) {
			t.Fatalf("show %s resolved to %d", ref, res.ID)
		}
	}

	if _, _, err := env.run(t, "catalog", "show", "missing"); err == nil {
		t.Fatal("expected unknown reference to fail")
	}
}

func TestCatalogStaleAndUnmirrored(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()
	rec := testsupport.NewRecord(t, env.store, "abc123", "H1", "Heat")

	out, _, err := env.run(t, "catalog", "stale")
	if err != nil {
		t.Fatalf("catalog stale: %v", err)
	}
	requireContains(t, out, "No stale handles")

	if _, err := env.store.MarkNeedsRefresh(ctx, rec.ID); err != nil {
		t.Fatalf("MarkNeedsRefresh: %v", err)
	}
	out, _, err = env.run(t, "catalog", "stale")
	if err != nil {
		t.Fatalf("catalog stale: %v", err)
	}
	requireContains(t, out, "Heat")
	requireContains(t, out, string(catalog.StatePendingRefresh))

	out, _, err = env.run(t, "--json", "catalog", "unmirrored")
	if err != nil {
		t.Fatalf("catalog unmirrored: %v", err)
	}
	var payload struct {
		Resources []api.Resource `json:"resources"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Resources) != 1 || payload.Resources[0].ContentKey != "abc123" {
		t.Fatalf("unexpected unmirrored %+v", payload.Resources)
	}
}

func TestCatalogRetitleAndRemove(t *testing.T) {
	env := setupCLITestEnv(t)
	rec := testsupport.NewRecord(t, env.store, "abc123", "H1", "Heat")

	out, _, err := env.run(t, "catalog", "retitle", "1", "Heat", "(1995)")
	if err != nil {
		t.Fatalf("catalog retitle: %v", err)
	}
	requireContains(t, out, `retitled to "Heat (1995)"`)

	got, err := env.store.GetByID(context.Background(), rec.ID)
	if err != nil || got == nil || got.Title != "Heat (1995)" {
		t.Fatalf("title not updated: %+v, %v", got, err)
	}

	if _, _, err := env.run(t, "catalog", "retitle", "99", "x"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}

	out, _, err = env.run(t, "catalog", "remove", "1", "99")
	if err != nil {
		t.Fatalf("catalog remove: %v", err)
	}
	requireContains(t, out, "Resource 1 removed")
	requireContains(t, out, "Resource 99 not found")

	if _, _, err := env.run(t, "catalog", "remove", "abc"); err == nil {
		t.Fatal("expected invalid id to fail")
	}
}

func TestCatalogHealth(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := env.run(t, "catalog", "health")
	if err != nil {
		t.Fatalf("catalog health: %v", err)
	}
	requireContains(t, out, "Backend: sqlite")
	requireContains(t, out, "Integrity check: yes")
	requireContains(t, out, "Missing columns: none")
}
