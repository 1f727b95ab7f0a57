package contract

import (
	"context"
	"errors"
)

var (
	// Adapter-level failures. Fully absorbed at the orchestrator boundary
	// into labeled batch entries; never surfaced to the dialogue engine.
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrRateLimited       = errors.New("source rate limited")
	ErrNotFound          = errors.New("company not found at source")
	ErrTimeout           = errors.New("source timed out")

	// Engine-level conditions, all recovered into user-visible replies.
	// Invalid section targets surface as state.ErrInvalidSectionTarget.
	ErrResearchAllFailed       = errors.New("all research sources failed")
	ErrConcurrentResearch      = errors.New("research already in flight for session")
	ErrClassificationAmbiguous = errors.New("utterance is ambiguous")

	// Model boundary.
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")
)

// StatusForError maps an adapter error to its batch entry status. Context
// cancellation and deadline expiry count as timeouts.
func StatusForError(err error) ResultStatus {
	switch {
	case errors.Is(err, ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return StatusTimeout
	case errors.Is(err, ErrRateLimited):
		return StatusRateLimited
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	default:
		return StatusSourceUnavailable
	}
}
