package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedSubmission marks a record that violates its stage schema.
	// Such records are skipped and reported, never fatal.
	ErrMalformedSubmission = errors.New("malformed submission")
	// ErrDuplicateSubmission marks an assignment seen twice in one group.
	ErrDuplicateSubmission = errors.New("duplicate submission")
	// ErrIncompleteCoverage marks items that lack the configured raters count.
	ErrIncompleteCoverage = errors.New("incomplete rating coverage")
	// ErrDegenerateAgreement marks an agreement statistic that is undefined.
	ErrDegenerateAgreement       = errors.New("degenerate agreement")
	ErrThresholdMisconfiguration = errors.New("threshold misconfiguration")
	ErrStageOrder                = errors.New("stage order violation")
	ErrSchema                    = errors.New("artifact schema mismatch")
	ErrValidation                = errors.New("validation error")
	ErrConfiguration             = errors.New("configuration error")
	ErrExternal                  = errors.New("external service error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must abort the current run. Malformed records,
// coverage gaps, and degenerate statistics are recoverable and only reported.
func IsFatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrMalformedSubmission),
		errors.Is(err, ErrIncompleteCoverage),
		errors.Is(err, ErrDegenerateAgreement):
		return false
	default:
		return true
	}
}

// Classify returns a short label for the marker carried by err.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedSubmission):
		return "malformed_submission"
	case errors.Is(err, ErrDuplicateSubmission):
		return "duplicate_submission"
	case errors.Is(err, ErrIncompleteCoverage):
		return "incomplete_coverage"
	case errors.Is(err, ErrDegenerateAgreement):
		return "degenerate_agreement"
	case errors.Is(err, ErrThresholdMisconfiguration):
		return "threshold_misconfiguration"
	case errors.Is(err, ErrStageOrder):
		return "stage_order"
	case errors.Is(err, ErrSchema):
		return "schema"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrExternal):
		return "external"
	default:
		return "validation"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
