package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/planscout/planscout/agent/contract"
	statex "github.com/planscout/planscout/agent/state"
)

var ErrNoSources = errors.New("research request has no sources")

type Config struct {
	TimeoutPerSourceMs int `envconfig:"TIMEOUT_PER_SOURCE_MS" split_words:"true" default:"8000"`
}

func (c Config) timeout() time.Duration {
	if c.TimeoutPerSourceMs <= 0 {
		return 8 * time.Second
	}
	return time.Duration(c.TimeoutPerSourceMs) * time.Millisecond
}

// Orchestrator fans one research request out across its registered adapters,
// one goroutine per source, each bounded by the per-source timeout, and joins
// every outcome into a single batch. Partial failure is data, not an error.
type Orchestrator struct {
	adapters map[string]contractx.SourceAdapter
	order    []string
	timeout  time.Duration
	now      func() time.Time
}

func NewOrchestrator(cfg Config, adapters ...contractx.SourceAdapter) (*Orchestrator, error) {
	o := &Orchestrator{
		adapters: make(map[string]contractx.SourceAdapter, len(adapters)),
		timeout:  cfg.timeout(),
		now:      time.Now,
	}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		name := strings.TrimSpace(a.Name())
		if name == "" {
			return nil, errors.New("adapter has empty name")
		}
		if _, dup := o.adapters[name]; dup {
			return nil, fmt.Errorf("duplicate adapter name %q", name)
		}
		o.adapters[name] = a
		o.order = append(o.order, name)
	}
	if len(o.adapters) == 0 {
		return nil, errors.New("at least one source adapter is required")
	}
	return o, nil
}

// SourceNames returns all registered sources in registration order. The
// engine uses this as the default source set for a research intent.
func (o *Orchestrator) SourceNames() []string {
	return append([]string(nil), o.order...)
}

// Gather dispatches one adapter call per requested source concurrently and
// blocks until all have resolved: success, failure, or timeout. The batch
// preserves dispatch order and contains exactly one entry per requested
// source. Unknown or duplicate source names yield source_unavailable entries
// rather than silent drops.
func (o *Orchestrator) Gather(ctx context.Context, req contractx.ResearchRequest, progress contractx.ProgressFunc) (contractx.ResearchBatch, error) {
	sources := dedupe(req.Sources)
	if len(sources) == 0 {
		return contractx.ResearchBatch{}, ErrNoSources
	}
	if progress == nil {
		progress = func(statex.ProgressEvent) {}
	}

	results := make([]contractx.ResearchResult, len(sources))
	var wg sync.WaitGroup

	for i, name := range sources {
		adapter, ok := o.adapters[name]

		progress(statex.ProgressEvent{
			Source: name,
			Stage:  statex.StageStarted,
			At:     o.now().UTC(),
		})

		if !ok {
			results[i] = contractx.ResearchResult{
				Source: name,
				Status: contractx.StatusSourceUnavailable,
				Detail: "no adapter registered for source",
			}
			progress(statex.ProgressEvent{
				Source: name,
				Stage:  statex.StageFailed,
				Detail: results[i].Detail,
				At:     o.now().UTC(),
			})
			continue
		}

		wg.Add(1)
		go func(i int, name string, adapter contractx.SourceAdapter) {
			defer wg.Done()
			results[i] = o.fetchOne(ctx, adapter, req)

			ev := statex.ProgressEvent{
				Source: name,
				Stage:  statex.StageCompleted,
				At:     o.now().UTC(),
			}
			if !results[i].OK() {
				ev.Stage = statex.StageFailed
				ev.Detail = results[i].Detail
			}
			progress(ev)
		}(i, name, adapter)
	}

	wg.Wait()

	return contractx.ResearchBatch{
		Company: req.Company,
		Results: results,
	}, nil
}

func (o *Orchestrator) fetchOne(ctx context.Context, adapter contractx.SourceAdapter, req contractx.ResearchRequest) contractx.ResearchResult {
	name := adapter.Name()

	fetchCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	facts, err := adapter.Fetch(fetchCtx, req.Company, req.Hint)
	if err != nil {
		if fetchCtx.Err() != nil {
			err = fmt.Errorf("%w: %v", contractx.ErrTimeout, err)
		}
		status := contractx.StatusForError(err)
		log.Warn().
			Str("source", name).
			Str("company", req.Company).
			Str("status", string(status)).
			Err(err).
			Msg("source fetch failed")
		return contractx.ResearchResult{
			Source: name,
			Status: status,
			Detail: err.Error(),
		}
	}

	return contractx.ResearchResult{
		Source: name,
		Status: contractx.StatusOK,
		Facts:  facts,
	}
}

func dedupe(sources []string) []string {
	seen := make(map[string]struct{}, len(sources))
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		name := strings.TrimSpace(s)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
