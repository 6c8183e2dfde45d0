package workflow

import (
	"time"

	"ckcrowd/internal/aggregate"
	"ckcrowd/internal/agreement"
	"ckcrowd/internal/dataset"
	"ckcrowd/internal/stage"
)

// Summary is the headline result of a stage run.
type Summary struct {
	Stage           stage.Kind `json:"stage"`
	RunID           string     `json:"run_id"`
	StartedAt       time.Time  `json:"started_at"`
	DurationSeconds float64    `json:"duration_seconds"`
	Input           string     `json:"input"`

	Records  int `json:"records"`
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`

	Yield     aggregate.Yield `json:"yield"`
	YieldRate float64         `json:"yield_rate"`
	Forwarded int             `json:"forwarded_tasks"`

	Workers            int      `json:"workers"`
	AnnotationQuality  float64  `json:"annotation_quality"`
	AnnotationAccuracy *float64 `json:"annotation_accuracy,omitempty"`

	Agreement           *agreement.Report `json:"agreement,omitempty"`
	AgreementConsistent *bool             `json:"agreement_consistent,omitempty"`

	Disagreements int `json:"disagreements,omitempty"`
	Resolved      int `json:"resolved,omitempty"`
	Examples      int `json:"examples,omitempty"`

	NearDuplicates    int `json:"near_duplicates"`
	HeadTailConflicts int `json:"head_tail_conflicts"`
}

// Audit lists suspicious items for manual review. It never changes votes.
type Audit struct {
	NearDuplicates    []aggregate.NearDuplicate    `json:"near_duplicates"`
	HeadTailConflicts []aggregate.HeadTailConflict `json:"head_tail_conflicts"`
}

// DatasetArtifact is the labeled dataset written by the expert stage.
type DatasetArtifact struct {
	Examples []dataset.Example `json:"examples"`
	Stats    dataset.Stats     `json:"stats"`
}
