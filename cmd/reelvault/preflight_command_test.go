package main

import (
	"encoding/json"
	"testing"

	"reelvault/internal/preflight"
)

func TestPreflightWithoutTelegram(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "preflight")
	if err != nil {
		t.Fatalf("preflight: %v\n%s", err, out)
	}
	requireContains(t, out, "Data directory")
	requireContains(t, out, "Catalog")
	requireContains(t, out, "skipped (no bot token)")

	out, _, err = env.run(t, "--json", "preflight")
	if err != nil {
		t.Fatalf("preflight --json: %v", err)
	}
	var results []preflight.Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 checks, got %+v", results)
	}
}
