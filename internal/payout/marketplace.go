package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"ckcrowd/internal/logging"
	"ckcrowd/internal/services"
)

// ErrAlreadyPaid is returned by a Marketplace when the idempotency token has
// been used before. Send treats it as a completed payment.
var ErrAlreadyPaid = errors.New("bonus already paid")

// Marketplace is the crowdsourcing platform connector.
type Marketplace interface {
	SendBonus(ctx context.Context, in Instruction) error
	NotifyWorker(ctx context.Context, workerID, subject, message string) error
}

// LogMarketplace records calls and logs them instead of contacting a
// platform. It backs dry runs and tests.
type LogMarketplace struct {
	logger *slog.Logger

	mu       sync.Mutex
	bonuses  []Instruction
	notified []string
	paid     map[string]bool
}

// NewLogMarketplace returns a connector that only logs.
func NewLogMarketplace(logger *slog.Logger) *LogMarketplace {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogMarketplace{
		logger: logging.NewComponentLogger(logger, "marketplace"),
		paid:   make(map[string]bool),
	}
}

// SendBonus implements Marketplace.
func (m *LogMarketplace) SendBonus(ctx context.Context, in Instruction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paid[in.Token()] {
		return ErrAlreadyPaid
	}
	m.paid[in.Token()] = true
	m.bonuses = append(m.bonuses, in)
	m.logger.Info("bonus recorded",
		logging.String(logging.FieldWorkerID, in.WorkerID),
		logging.String("assignment_id", in.AssignmentID),
		logging.Float64("amount", in.Amount),
		logging.Int("units", in.Units),
	)
	return nil
}

// NotifyWorker implements Marketplace.
func (m *LogMarketplace) NotifyWorker(ctx context.Context, workerID, subject, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.notified = append(m.notified, workerID)
	m.mu.Unlock()
	m.logger.Info("worker notified",
		logging.String(logging.FieldWorkerID, workerID),
		logging.String("subject", subject),
		logging.Int("message_length", len(message)),
	)
	return nil
}

// Bonuses returns the recorded bonus calls.
func (m *LogMarketplace) Bonuses() []Instruction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Instruction(nil), m.bonuses...)
}

// Notified returns the worker ids notified so far.
func (m *LogMarketplace) Notified() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.notified...)
}

// SendResult summarizes one Send call.
type SendResult struct {
	Sent    int     `json:"sent"`
	Skipped int     `json:"skipped"`
	Failed  int     `json:"failed"`
	Amount  float64 `json:"amount"`
	DryRun  bool    `json:"dry_run"`
}

// Send pays every pending instruction in the ledger and marks successful ones
// as sent. Failures are logged and returned together; the ledger still
// reflects the payments that went through. A dry run only counts.
func Send(ctx context.Context, ledger *Ledger, market Marketplace, logger *slog.Logger, dryRun bool) (SendResult, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	result := SendResult{DryRun: dryRun}
	for _, in := range ledger.Instructions {
		if !in.Eligible || in.Sent {
			result.Skipped++
		}
	}

	var errs []error
	for _, in := range ledger.Pending() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if dryRun {
			result.Sent++
			result.Amount += in.Amount
			continue
		}
		err := market.SendBonus(ctx, in)
		switch {
		case err == nil:
		case errors.Is(err, ErrAlreadyPaid):
			logger.Info("bonus already paid",
				logging.String(logging.FieldWorkerID, in.WorkerID),
				logging.String("assignment_id", in.AssignmentID),
			)
		default:
			result.Failed++
			logging.WarnWithContext(logger, "bonus send failed", "bonus_send_failure",
				logging.String(logging.FieldWorkerID, in.WorkerID),
				logging.String("assignment_id", in.AssignmentID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "worker not paid for this assignment"),
				logging.String(logging.FieldErrorHint, "rerun bonus send; paid entries are skipped"),
			)
			errs = append(errs, fmt.Errorf("%s: %w", in.AssignmentID, err))
			continue
		}
		ledger.MarkSent(in.Token())
		result.Sent++
		result.Amount += in.Amount
	}
	result.Amount = roundCents(result.Amount)
	if len(errs) > 0 {
		return result, services.Wrap(services.ErrExternal, string(ledger.stage()), "send bonus",
			fmt.Sprintf("%d of %d bonuses failed", result.Failed, result.Failed+result.Sent), errors.Join(errs...))
	}
	return result, nil
}

// Notify messages each worker once, in order, stopping at the first error.
func Notify(ctx context.Context, market Marketplace, workerIDs []string, subject, message string) (int, error) {
	seen := make(map[string]struct{}, len(workerIDs))
	count := 0
	for _, id := range workerIDs {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		if err := market.NotifyWorker(ctx, id, subject, message); err != nil {
			return count, services.Wrap(services.ErrExternal, "", "notify", "worker "+id, err)
		}
		count++
	}
	return count, nil
}
