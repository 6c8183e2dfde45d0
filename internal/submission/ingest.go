package submission

import (
	"encoding/json"
	"fmt"

	"ckcrowd/internal/fileutil"
	"ckcrowd/internal/stage"
)

// Skip records one record that was left out of aggregation.
type Skip struct {
	Index        int    `json:"index"`
	TaskID       string `json:"task_id,omitempty"`
	AssignmentID string `json:"assignment_id,omitempty"`
	WorkerID     string `json:"worker_id,omitempty"`
	Reason       string `json:"reason"`
}

// SkipReport summarizes ingestion of one results batch.
type SkipReport struct {
	Stage    stage.Kind `json:"stage"`
	Total    int        `json:"total"`
	Accepted int        `json:"accepted"`
	Skipped  []Skip     `json:"skipped"`
}

// Add appends a skip entry and keeps the accepted count consistent.
func (r *SkipReport) Add(index int, sub Submission, reason string) {
	r.Skipped = append(r.Skipped, Skip{
		Index:        index,
		TaskID:       sub.TaskID,
		AssignmentID: sub.AssignmentID,
		WorkerID:     sub.WorkerID,
		Reason:       reason,
	})
	if r.Accepted > 0 {
		r.Accepted--
	}
}

// Empty reports whether nothing was skipped.
func (r SkipReport) Empty() bool {
	return len(r.Skipped) == 0
}

// Entry pairs a decoded submission with its position in the input file.
type Entry struct {
	Index      int
	Submission Submission
}

// Ingest validates records against def. Valid entries are returned in input
// order; the rest are recorded in the report.
func Ingest(records []Submission, def stage.Definition) ([]Entry, SkipReport) {
	entries := make([]Entry, len(records))
	for i, rec := range records {
		entries[i] = Entry{Index: i, Submission: rec}
	}
	return ingestEntries(entries, def, len(records))
}

// Decode parses raw records. Records that fail to decode are reported with
// their position and excluded.
func Decode(raw []json.RawMessage, def stage.Definition) ([]Entry, SkipReport) {
	entries := make([]Entry, 0, len(raw))
	var decodeSkips []Skip
	for i, msg := range raw {
		var sub Submission
		if err := json.Unmarshal(msg, &sub); err != nil {
			decodeSkips = append(decodeSkips, Skip{Index: i, Reason: fmt.Sprintf("decode: %v", err)})
			continue
		}
		entries = append(entries, Entry{Index: i, Submission: sub})
	}
	valid, report := ingestEntries(entries, def, len(raw))
	report.Skipped = append(decodeSkips, report.Skipped...)
	return valid, report
}

// LoadFile reads a JSON array or JSON Lines results file.
func LoadFile(path string, def stage.Definition) ([]Entry, SkipReport, error) {
	raw, err := fileutil.ReadRecords(path)
	if err != nil {
		return nil, SkipReport{}, fmt.Errorf("read submissions: %w", err)
	}
	valid, report := Decode(raw, def)
	return valid, report, nil
}

func ingestEntries(entries []Entry, def stage.Definition, total int) ([]Entry, SkipReport) {
	report := SkipReport{Stage: def.Kind, Total: total}
	valid := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		sub := entry.Submission
		sub.Normalize(def)
		if err := sub.Validate(def); err != nil {
			report.Skipped = append(report.Skipped, Skip{
				Index:        entry.Index,
				TaskID:       sub.TaskID,
				AssignmentID: sub.AssignmentID,
				WorkerID:     sub.WorkerID,
				Reason:       err.Error(),
			})
			continue
		}
		valid = append(valid, Entry{Index: entry.Index, Submission: sub})
	}
	report.Accepted = len(valid)
	return valid, report
}

// Submissions strips positions from entries.
func Submissions(entries []Entry) []Submission {
	out := make([]Submission, len(entries))
	for i, e := range entries {
		out[i] = e.Submission
	}
	return out
}
