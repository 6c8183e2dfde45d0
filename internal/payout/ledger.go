package payout

import (
	"math"
	"sort"

	"ckcrowd/internal/stage"
)

// Ledger tracks the bonus instructions of one stage across plan and send
// runs. It is persisted as the stage's payouts artifact.
type Ledger struct {
	Instructions []Instruction `json:"instructions"`
}

// Merge adds planned instructions. Entries already present keep their sent
// flag and are only refreshed while unsent, so planning twice never pays twice.
func (l *Ledger) Merge(planned []Instruction) (added int) {
	index := make(map[string]int, len(l.Instructions))
	for i, in := range l.Instructions {
		index[in.Token()] = i
	}
	for _, in := range planned {
		if i, ok := index[in.Token()]; ok {
			if !l.Instructions[i].Sent {
				in.Sent = false
				l.Instructions[i] = in
			}
			continue
		}
		in.Sent = false
		index[in.Token()] = len(l.Instructions)
		l.Instructions = append(l.Instructions, in)
		added++
	}
	sort.SliceStable(l.Instructions, func(i, j int) bool {
		if l.Instructions[i].WorkerID != l.Instructions[j].WorkerID {
			return l.Instructions[i].WorkerID < l.Instructions[j].WorkerID
		}
		return l.Instructions[i].AssignmentID < l.Instructions[j].AssignmentID
	})
	return added
}

// Pending returns eligible instructions that have not been sent.
func (l *Ledger) Pending() []Instruction {
	var out []Instruction
	for _, in := range l.Instructions {
		if in.Eligible && !in.Sent {
			out = append(out, in)
		}
	}
	return out
}

// MarkSent flags the instruction with token as paid.
func (l *Ledger) MarkSent(token string) bool {
	for i := range l.Instructions {
		if l.Instructions[i].Token() == token {
			l.Instructions[i].Sent = true
			return true
		}
	}
	return false
}

// Totals returns the eligible amount already sent and still pending.
func (l *Ledger) Totals() (sent, pending float64) {
	for _, in := range l.Instructions {
		if !in.Eligible {
			continue
		}
		if in.Sent {
			sent += in.Amount
		} else {
			pending += in.Amount
		}
	}
	return roundCents(sent), roundCents(pending)
}

func (l *Ledger) stage() stage.Kind {
	if len(l.Instructions) == 0 {
		return ""
	}
	return l.Instructions[0].Stage
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
