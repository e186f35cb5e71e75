package report

import (
	"errors"

	"digestbot/internal/domain"
)

// Outcome names how a run ended. Used as a log attribute and metric label.
type Outcome string

const (
	OutcomeOK               Outcome = "ok"
	OutcomeNoMessages       Outcome = "no_messages"
	OutcomeSummarizeFailed  Outcome = "summarize_failed"
	OutcomePersistFailed    Outcome = "persist_failed"
	OutcomeStoreUnavailable Outcome = "store_unavailable"
	OutcomeSkippedOverlap   Outcome = "skipped_overlap"
	OutcomeUnknown          Outcome = "unknown"
)

// Classify maps a Generate error to its Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrNoMessages):
		return OutcomeNoMessages
	case errors.Is(err, domain.ErrPersistenceFailed):
		return OutcomePersistFailed
	case errors.Is(err, domain.ErrSummarizationFailed):
		return OutcomeSummarizeFailed
	case errors.Is(err, domain.ErrStoreUnavailable):
		return OutcomeStoreUnavailable
	default:
		return OutcomeUnknown
	}
}

// Routine reports whether the outcome is expected operation rather than a failure.
func (o Outcome) Routine() bool {
	return o == OutcomeOK || o == OutcomeNoMessages || o == OutcomeSkippedOverlap
}
