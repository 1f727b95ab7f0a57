package contract

import (
	"context"

	statex "github.com/planscout/planscout/agent/state"
)

// Classifier maps a raw utterance plus a bounded window of recent turns to
// exactly one intent. It never fails on malformed input; unparseable text
// resolves to IntentUnknown with the raw text preserved as detail.
type Classifier interface {
	Classify(ctx context.Context, utterance string, recent []statex.Turn) statex.Intent
}

// SourceAdapter wraps one external data provider. Stateless between calls;
// a failed fetch wraps one of ErrSourceUnavailable, ErrRateLimited,
// ErrNotFound, ErrTimeout.
type SourceAdapter interface {
	Name() string
	Fetch(ctx context.Context, company, hint string) ([]Fact, error)
}

// ProgressFunc receives per-source progress events as research runs.
type ProgressFunc func(statex.ProgressEvent)

// Researcher fans a request out across source adapters and joins every
// outcome into one batch.
type Researcher interface {
	Gather(ctx context.Context, req ResearchRequest, progress ProgressFunc) (ResearchBatch, error)
}

// EventSink receives progress events for an external observer.
type EventSink interface {
	Publish(ctx context.Context, ev statex.ProgressEvent) error
}
