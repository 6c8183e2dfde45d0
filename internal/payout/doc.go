// Package payout turns worker contribution counts into bonus instructions and
// delivers them through a marketplace connector.
//
// Plan applies the configured rate, baseline and eligibility gates. The
// resulting instructions are merged into a Ledger keyed by assignment id, which
// doubles as the idempotency token on the wire, so repeated plan and send runs
// never pay an assignment twice.
package payout
