package research

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	contractx "github.com/planscout/planscout/agent/contract"
	statex "github.com/planscout/planscout/agent/state"
)

type fakeAdapter struct {
	name  string
	facts []contractx.Fact
	err   error
	delay time.Duration

	mu    sync.Mutex
	calls int
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(ctx context.Context, company, hint string) ([]contractx.Fact, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.facts, nil
}

type progressRecorder struct {
	mu     sync.Mutex
	events []statex.ProgressEvent
}

func (p *progressRecorder) record(ev statex.ProgressEvent) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *progressRecorder) snapshot() []statex.ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]statex.ProgressEvent(nil), p.events...)
}

func TestGatherJoinsAllSources(t *testing.T) {
	t.Parallel()

	wiki := &fakeAdapter{name: "wikipedia", facts: []contractx.Fact{{Text: "Acme makes anvils.", Label: "summary", Confidence: 0.9}}}
	site := &fakeAdapter{name: "website", facts: []contractx.Fact{{Text: "Contact sales for pricing.", Label: "website", Confidence: 0.5}}}

	o, err := NewOrchestrator(Config{}, wiki, site)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	rec := &progressRecorder{}
	batch, err := o.Gather(context.Background(), contractx.ResearchRequest{
		Company: "Acme",
		Sources: []string{"wikipedia", "website"},
	}, rec.record)
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	if len(batch.Results) != 2 {
		t.Fatalf("got %d results, want one per requested source", len(batch.Results))
	}
	// Dispatch order is preserved in the batch.
	if batch.Results[0].Source != "wikipedia" || batch.Results[1].Source != "website" {
		t.Fatalf("unexpected order: %s, %s", batch.Results[0].Source, batch.Results[1].Source)
	}
	for _, r := range batch.Results {
		if !r.OK() {
			t.Fatalf("source %s status = %s, want ok", r.Source, r.Status)
		}
	}

	events := rec.snapshot()
	started, resolved := 0, 0
	for _, ev := range events {
		if ev.Stage == statex.StageStarted {
			started++
		} else {
			resolved++
		}
	}
	if started != 2 || resolved != 2 {
		t.Fatalf("events started=%d resolved=%d, want 2 each", started, resolved)
	}
}

func TestGatherPartialFailure(t *testing.T) {
	t.Parallel()

	wiki := &fakeAdapter{name: "wikipedia", facts: []contractx.Fact{{Text: "Acme makes anvils."}}}
	news := &fakeAdapter{name: "news", err: fmt.Errorf("%w: http 429", contractx.ErrRateLimited)}

	o, err := NewOrchestrator(Config{}, wiki, news)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	batch, err := o.Gather(context.Background(), contractx.ResearchRequest{
		Company: "Acme",
		Sources: []string{"wikipedia", "news"},
	}, nil)
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	if r, ok := batch.BySource("wikipedia"); !ok || r.Status != contractx.StatusOK {
		t.Fatalf("wikipedia result = (%+v, %v), want ok", r, ok)
	}
	if r, ok := batch.BySource("news"); !ok || r.Status != contractx.StatusRateLimited {
		t.Fatalf("news result = (%+v, %v), want rate_limited", r, ok)
	}
	if batch.AllFailed() {
		t.Fatal("AllFailed() = true with one successful source")
	}
}

func TestGatherTimeoutEntry(t *testing.T) {
	t.Parallel()

	slow := &fakeAdapter{name: "website", delay: time.Second, facts: []contractx.Fact{{Text: "never arrives"}}}
	fast := &fakeAdapter{name: "wikipedia", facts: []contractx.Fact{{Text: "Acme makes anvils."}}}

	o, err := NewOrchestrator(Config{TimeoutPerSourceMs: 20}, fast, slow)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	batch, err := o.Gather(context.Background(), contractx.ResearchRequest{
		Company: "Acme",
		Sources: []string{"wikipedia", "website"},
	}, nil)
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	if r, ok := batch.BySource("website"); !ok || r.Status != contractx.StatusTimeout {
		t.Fatalf("website result = (%+v, %v), want timeout", r, ok)
	}
	if r, ok := batch.BySource("wikipedia"); !ok || r.Status != contractx.StatusOK {
		t.Fatalf("wikipedia result = (%+v, %v), want ok", r, ok)
	}
}

func TestGatherUnknownSource(t *testing.T) {
	t.Parallel()

	wiki := &fakeAdapter{name: "wikipedia", facts: []contractx.Fact{{Text: "Acme makes anvils."}}}
	o, err := NewOrchestrator(Config{}, wiki)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	batch, err := o.Gather(context.Background(), contractx.ResearchRequest{
		Company: "Acme",
		Sources: []string{"wikipedia", "crystal-ball"},
	}, nil)
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	if len(batch.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(batch.Results))
	}
	if got := batch.Results[1].Status; got != contractx.StatusSourceUnavailable {
		t.Fatalf("unknown source status = %s, want source_unavailable", got)
	}
}

func TestGatherDedupesSources(t *testing.T) {
	t.Parallel()

	wiki := &fakeAdapter{name: "wikipedia", facts: []contractx.Fact{{Text: "Acme makes anvils."}}}
	o, err := NewOrchestrator(Config{}, wiki)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	batch, err := o.Gather(context.Background(), contractx.ResearchRequest{
		Company: "Acme",
		Sources: []string{"wikipedia", "wikipedia", " "},
	}, nil)
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	if len(batch.Results) != 1 {
		t.Fatalf("got %d results, want 1 after dedupe", len(batch.Results))
	}
	if wiki.calls != 1 {
		t.Fatalf("adapter called %d times, want 1", wiki.calls)
	}
}

func TestGatherNoSources(t *testing.T) {
	t.Parallel()

	wiki := &fakeAdapter{name: "wikipedia"}
	o, err := NewOrchestrator(Config{}, wiki)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	_, err = o.Gather(context.Background(), contractx.ResearchRequest{Company: "Acme"}, nil)
	if !errors.Is(err, ErrNoSources) {
		t.Fatalf("Gather() error = %v, want ErrNoSources", err)
	}
}

func TestNewOrchestratorRejectsDuplicates(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{name: "wikipedia"}
	b := &fakeAdapter{name: "wikipedia"}
	if _, err := NewOrchestrator(Config{}, a, b); err == nil {
		t.Fatal("expected error for duplicate adapter names")
	}
}
