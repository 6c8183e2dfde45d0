package campaign

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ckcrowd/internal/services"
	"ckcrowd/internal/stage"
)

type payload struct {
	Tasks []string `json:"tasks"`
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	store.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	if err := store.Write(stage.Annotate, ArtifactForward, "run-1", payload{Tasks: []string{"t1"}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var got payload
	env, err := store.Read(stage.Annotate, ArtifactForward, &got)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if env.RunID != "run-1" || env.SchemaVersion != SchemaVersion || !env.CreatedAt.Equal(store.now()) {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if len(got.Tasks) != 1 || got.Tasks[0] != "t1" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "annotate", "forward.json")); err != nil {
		t.Fatalf("artifact not at expected path: %v", err)
	}
}

func TestReadChecksEnvelope(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.Read(stage.Validate, ArtifactForward, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Write(stage.Annotate, ArtifactAggregated, "r", payload{}); err != nil {
		t.Fatal(err)
	}
	// A file copied into the wrong place must not be accepted.
	data, err := os.ReadFile(store.Path(stage.Annotate, ArtifactAggregated))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "validate"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path(stage.Validate, ArtifactForward), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Read(stage.Validate, ArtifactForward, nil); !errors.Is(err, services.ErrSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}

	if err := os.WriteFile(store.Path(stage.Validate, ArtifactSummary), []byte(`{"schema_version": 99, "stage": "validate", "artifact": "summary"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Read(stage.Validate, ArtifactSummary, nil); !errors.Is(err, services.ErrSchema) {
		t.Fatalf("expected schema version error, got %v", err)
	}

	if err := store.Write(stage.Annotate, ArtifactSummary, "r", map[string]any{"renamed": 1}); err != nil {
		t.Fatal(err)
	}
	var strict payload
	if _, err := store.Read(stage.Annotate, ArtifactSummary, &strict); !errors.Is(err, services.ErrSchema) {
		t.Fatalf("unknown payload fields must be rejected, got %v", err)
	}
}

func TestOpenIsExclusive(t *testing.T) {
	dir := t.TempDir()
	first, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(dir); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}
	second, err := Open(dir)
	if err != nil {
		t.Fatalf("lock should be free after Close: %v", err)
	}
	second.Close()
}

func TestReadOnlyStoreRefusesWrites(t *testing.T) {
	store := OpenReadOnly(t.TempDir())
	if err := store.Write(stage.Annotate, ArtifactSummary, "r", payload{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if err := store.Write(stage.Annotate, ArtifactForward, "run-a", payload{}); err != nil {
		t.Fatal(err)
	}
	status, err := store.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status) != 5 {
		t.Fatalf("expected five stages, got %d", len(status))
	}
	if !status[0].Ready || !status[0].Completed || status[0].RunID != "run-a" {
		t.Fatalf("unexpected annotate status %+v", status[0])
	}
	if !status[1].Ready || status[1].Completed {
		t.Fatalf("unexpected validate status %+v", status[1])
	}
	if status[2].Ready || status[2].Detail == "" {
		t.Fatalf("generate must be blocked, got %+v", status[2])
	}
	if err := store.RequireUpstream(stage.Generate); !errors.Is(err, services.ErrStageOrder) {
		t.Fatalf("expected stage order error, got %v", err)
	}
}
