package campaign

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"ckcrowd/internal/fileutil"
	"ckcrowd/internal/services"
	"ckcrowd/internal/stage"
)

// SchemaVersion is written into every artifact envelope.
const SchemaVersion = 1

// LockFileName is the run lock inside the campaign directory.
const LockFileName = ".lock"

// Artifact names one file a stage run writes.
type Artifact string

const (
	ArtifactSubmissions  Artifact = "submissions"
	ArtifactAggregated   Artifact = "aggregated"
	ArtifactForward      Artifact = "forward"
	ArtifactWorkers      Artifact = "workers"
	ArtifactAgreement    Artifact = "agreement"
	ArtifactAdjudication Artifact = "adjudication"
	ArtifactAudit        Artifact = "audit"
	ArtifactSkipped      Artifact = "skipped"
	ArtifactSummary      Artifact = "summary"
	ArtifactPayouts      Artifact = "payouts"
	ArtifactDataset      Artifact = "dataset"
)

var (
	// ErrLocked is returned by Open when another run holds the campaign.
	ErrLocked = errors.New("campaign directory is locked by another run")
	// ErrNotFound is returned when an artifact has not been written yet.
	ErrNotFound = errors.New("artifact not found")
)

// Envelope wraps every artifact payload with the metadata needed to check it
// at load time.
type Envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Stage         stage.Kind      `json:"stage"`
	Artifact      Artifact        `json:"artifact"`
	RunID         string          `json:"run_id"`
	CreatedAt     time.Time       `json:"created_at"`
	Payload       json.RawMessage `json:"payload"`
}

// Store reads and writes the flat campaign directory
// <dir>/<stage>/<artifact>.json.
type Store struct {
	dir  string
	lock *flock.Flock
	now  func() time.Time
}

// Open takes the campaign lock for a run that will write artifacts. It fails
// fast with ErrLocked when another run holds it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create campaign directory: %w", err)
	}
	lock := flock.New(filepath.Join(dir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire campaign lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}
	return &Store{dir: dir, lock: lock, now: time.Now}, nil
}

// OpenReadOnly opens a campaign for inspection without taking the lock.
// Artifacts are replaced atomically, so readers never see partial files.
func OpenReadOnly(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Close releases the run lock.
func (s *Store) Close() error {
	if s == nil || s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

// Dir returns the campaign directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path of an artifact.
func (s *Store) Path(kind stage.Kind, artifact Artifact) string {
	return filepath.Join(s.dir, string(kind), string(artifact)+".json")
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Write stores payload inside an envelope.
func (s *Store) Write(kind stage.Kind, artifact Artifact, runID string, payload any) error {
	if s.lock == nil {
		return services.Wrap(services.ErrConfiguration, string(kind), "write artifact",
			"campaign opened read-only", nil)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return services.Wrap(services.ErrSchema, string(kind), "encode "+string(artifact), "", err)
	}
	env := Envelope{
		SchemaVersion: SchemaVersion,
		Stage:         kind,
		Artifact:      artifact,
		RunID:         runID,
		CreatedAt:     s.now().UTC(),
		Payload:       raw,
	}
	return fileutil.WriteJSONAtomic(s.Path(kind, artifact), env)
}

// Read loads an artifact into v after checking its envelope. A missing file
// yields ErrNotFound; a mismatched envelope yields services.ErrSchema.
func (s *Store) Read(kind stage.Kind, artifact Artifact, v any) (Envelope, error) {
	var env Envelope
	path := s.Path(kind, artifact)
	if err := fileutil.ReadJSON(path, &env); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Envelope{}, fmt.Errorf("%w: %s/%s", ErrNotFound, kind, artifact)
		}
		return Envelope{}, services.Wrap(services.ErrSchema, string(kind), "read "+string(artifact), "", err)
	}
	if env.SchemaVersion != SchemaVersion {
		return Envelope{}, services.Wrap(services.ErrSchema, string(kind), "read "+string(artifact),
			fmt.Sprintf("schema version %d, expected %d", env.SchemaVersion, SchemaVersion), nil)
	}
	if env.Stage != kind || env.Artifact != artifact {
		return Envelope{}, services.Wrap(services.ErrSchema, string(kind), "read "+string(artifact),
			fmt.Sprintf("file holds %s/%s", env.Stage, env.Artifact), nil)
	}
	if v != nil {
		decoder := json.NewDecoder(bytes.NewReader(env.Payload))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(v); err != nil {
			return Envelope{}, services.Wrap(services.ErrSchema, string(kind), "decode "+string(artifact), "", err)
		}
	}
	return env, nil
}

// Exists reports whether an artifact has been written.
func (s *Store) Exists(kind stage.Kind, artifact Artifact) bool {
	_, err := os.Stat(s.Path(kind, artifact))
	return err == nil
}
