package adjudication

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ckcrowd/internal/aggregate"
	"ckcrowd/internal/services"
	"ckcrowd/internal/stage"
)

// Resolution is an operator's final call on one candidate.
type Resolution struct {
	TaskID   string             `yaml:"task_id"`
	ItemID   string             `yaml:"item_id"`
	Decision aggregate.Decision `yaml:"decision"`
	Note     string             `yaml:"note,omitempty"`
}

type resolutionFile struct {
	Resolutions []Resolution `yaml:"resolutions"`
}

// LoadResolutions reads a YAML resolution file.
func LoadResolutions(path string) ([]Resolution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resolutions: %w", err)
	}
	return ParseResolutions(data)
}

// ParseResolutions decodes and checks resolution YAML. Unknown keys, unknown
// decisions, and two resolutions for one candidate are rejected.
func ParseResolutions(data []byte) ([]Resolution, error) {
	var file resolutionFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, services.Wrap(services.ErrSchema, string(stage.Adjudicate), "parse resolutions", "", err)
	}
	seen := make(map[[2]string]int, len(file.Resolutions))
	for i := range file.Resolutions {
		r := &file.Resolutions[i]
		r.TaskID = strings.TrimSpace(r.TaskID)
		r.ItemID = strings.TrimSpace(r.ItemID)
		r.Decision = aggregate.Decision(strings.ToLower(strings.TrimSpace(string(r.Decision))))
		if r.TaskID == "" || r.ItemID == "" {
			return nil, services.Wrap(services.ErrSchema, string(stage.Adjudicate), "parse resolutions",
				fmt.Sprintf("resolution %d: task_id and item_id are required", i+1), nil)
		}
		if !r.Decision.Valid() {
			return nil, services.Wrap(services.ErrSchema, string(stage.Adjudicate), "parse resolutions",
				fmt.Sprintf("resolution %d: decision must be accept or reject, got %q", i+1, r.Decision), nil)
		}
		key := [2]string{r.TaskID, r.ItemID}
		if first, ok := seen[key]; ok {
			return nil, services.Wrap(services.ErrSchema, string(stage.Adjudicate), "parse resolutions",
				fmt.Sprintf("resolutions %d and %d both target %s/%s", first+1, i+1, r.TaskID, r.ItemID), nil)
		}
		seen[key] = i
	}
	return file.Resolutions, nil
}

// Apply returns copies of tasks with the resolutions recorded on their items
// and accepted counts recomputed. A resolution that matches no candidate is
// an error so a typo cannot silently leave a split decision in place.
func Apply(tasks []aggregate.Task, resolutions []Resolution, threshold int) ([]aggregate.Task, error) {
	out := make([]aggregate.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t
		out[i].Items = append([]aggregate.Item(nil), t.Items...)
	}
	for _, r := range resolutions {
		found := false
		for i := range out {
			if out[i].TaskID != r.TaskID {
				continue
			}
			for j := range out[i].Items {
				if out[i].Items[j].Item.ID == r.ItemID {
					out[i].Items[j].Decision = r.Decision
					found = true
				}
			}
		}
		if !found {
			return nil, services.Wrap(services.ErrValidation, string(stage.Adjudicate), "apply resolutions",
				fmt.Sprintf("no candidate %s in task %s", r.ItemID, r.TaskID), nil)
		}
	}
	for i := range out {
		out[i].Accepted = len(out[i].AcceptedItems(threshold))
	}
	return out, nil
}

// WriteTemplate emits a resolution file listing every disagreement with its
// current outcome, for an operator to edit.
func WriteTemplate(w io.Writer, disagreements []Disagreement) error {
	file := resolutionFile{Resolutions: make([]Resolution, 0, len(disagreements))}
	for _, d := range disagreements {
		decision := aggregate.DecisionReject
		if d.Accepted {
			decision = aggregate.DecisionAccept
		}
		file.Resolutions = append(file.Resolutions, Resolution{
			TaskID:   d.TaskID,
			ItemID:   d.ItemID,
			Decision: decision,
			Note:     fmt.Sprintf("%d of %d experts accepted: %s", d.Votes, len(d.Ratings), d.Text),
		})
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(file); err != nil {
		return fmt.Errorf("encode resolutions: %w", err)
	}
	return encoder.Close()
}
