package campaign

import (
	"errors"
	"fmt"

	"ckcrowd/internal/services"
	"ckcrowd/internal/stage"
)

// StageStatus describes one stage of the campaign.
type StageStatus struct {
	stage.Health
	RunID string `json:"run_id,omitempty"`
}

// Status reports, per stage, whether it has completed and whether its
// upstream forward set is available.
func (s *Store) Status() ([]StageStatus, error) {
	out := make([]StageStatus, 0, len(stage.All()))
	for _, kind := range stage.All() {
		st, err := s.stageStatus(kind)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *Store) stageStatus(kind stage.Kind) (StageStatus, error) {
	env, err := s.Read(kind, ArtifactForward, nil)
	completed := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return StageStatus{}, err
	}
	if err := s.RequireUpstream(kind); err != nil {
		return StageStatus{Health: stage.Unhealthy(kind, err.Error())}, nil
	}
	return StageStatus{Health: stage.Healthy(kind, completed), RunID: env.RunID}, nil
}

// RequireUpstream checks that the previous stage has produced its forward
// set. Annotate has no upstream.
func (s *Store) RequireUpstream(kind stage.Kind) error {
	prev, ok := kind.Previous()
	if !ok {
		return nil
	}
	if !s.Exists(prev, ArtifactForward) {
		return services.Wrap(services.ErrStageOrder, string(kind), "check upstream",
			fmt.Sprintf("%s has not produced a forward set", prev), nil)
	}
	return nil
}
