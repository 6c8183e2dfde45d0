package payout

import (
	"fmt"

	"ckcrowd/internal/quality"
	"ckcrowd/internal/stage"
	"ckcrowd/internal/submission"
)

// Scope decides whether bonus units are counted per worker or per assignment.
type Scope string

const (
	ScopeWorker     Scope = "worker"
	ScopeAssignment Scope = "assignment"
)

// Policy configures bonus computation.
type Policy struct {
	Rate     float64
	Baseline int
	Scope    Scope
	// GateOnQuality skips workers whose quality is below MinQuality.
	GateOnQuality bool
	MinQuality    float64
	// QualifiedOnly skips workers missing from Qualified or marked false.
	QualifiedOnly bool
	Qualified     map[string]bool
	MaxAmount     float64
	Reason        string
}

// Instruction is one bonus the marketplace connector should pay.
type Instruction struct {
	Stage        stage.Kind `json:"stage"`
	WorkerID     string     `json:"worker_id"`
	AssignmentID string     `json:"assignment_id"`
	Units        int        `json:"units"`
	Amount       float64    `json:"amount"`
	Reason       string     `json:"reason"`
	Eligible     bool       `json:"eligible"`
	SkipReason   string     `json:"skip_reason,omitempty"`
	Sent         bool       `json:"sent"`
}

// Token is the idempotency key sent with the bonus request.
func (i Instruction) Token() string {
	return i.AssignmentID
}

// Plan converts worker records into bonus instructions. Worker scope pays
// once per worker against their first assignment; assignment scope pays each
// assignment for its own contributions. Workers with nothing above baseline
// get no instruction.
func Plan(kind stage.Kind, records []quality.Record, subs []submission.Submission, policy Policy) []Instruction {
	selection := kind.Definition().Selection()
	byWorker := make(map[string]quality.Record, len(records))
	for _, rec := range records {
		byWorker[rec.WorkerID] = rec
	}

	var out []Instruction
	switch policy.Scope {
	case ScopeAssignment:
		for _, sub := range subs {
			contributions := len(sub.Items)
			if selection {
				contributions = len(sub.NewItems)
			}
			units := quality.BonusUnits(contributions, policy.Baseline)
			if units == 0 {
				continue
			}
			out = append(out, instruction(kind, byWorker[sub.WorkerID], sub.WorkerID, sub.AssignmentID, units, policy))
		}
	default:
		for _, rec := range records {
			units := quality.BonusUnits(rec.Contributions(selection), policy.Baseline)
			if units == 0 || len(rec.AssignmentIDs) == 0 {
				continue
			}
			out = append(out, instruction(kind, rec, rec.WorkerID, rec.AssignmentIDs[0], units, policy))
		}
	}
	return out
}

func instruction(kind stage.Kind, rec quality.Record, workerID, assignmentID string, units int, policy Policy) Instruction {
	in := Instruction{
		Stage:        kind,
		WorkerID:     workerID,
		AssignmentID: assignmentID,
		Units:        units,
		Amount:       quality.BonusAmount(units, policy.Rate),
		Reason:       policy.Reason,
		Eligible:     true,
	}
	switch {
	case in.Amount <= 0:
		in.Eligible, in.SkipReason = false, "amount rounds to zero"
	case policy.QualifiedOnly && !policy.Qualified[workerID]:
		in.Eligible, in.SkipReason = false, "worker not qualified"
	case policy.GateOnQuality && rec.Quality < policy.MinQuality:
		in.Eligible, in.SkipReason = false, fmt.Sprintf("quality %.2f below %.2f", rec.Quality, policy.MinQuality)
	case policy.MaxAmount > 0 && in.Amount >= policy.MaxAmount:
		in.Eligible, in.SkipReason = false, fmt.Sprintf("amount %.2f exceeds limit %.2f", in.Amount, policy.MaxAmount)
	}
	return in
}

// Total sums the amounts of eligible instructions.
func Total(instructions []Instruction) float64 {
	total := 0.0
	for _, in := range instructions {
		if in.Eligible {
			total += in.Amount
		}
	}
	return total
}
