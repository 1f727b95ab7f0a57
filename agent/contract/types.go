package contract

import (
	statex "github.com/planscout/planscout/agent/state"
)

// Fact is one extracted text fragment from a research source.
type Fact struct {
	Text       string  `json:"text"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ResearchRequest names a company and the sources to consult. A value
// object; it has no identity beyond the turn that built it.
type ResearchRequest struct {
	Company string   `json:"company"`
	Sources []string `json:"sources"`
	Hint    string   `json:"hint,omitempty"`
}

type ResultStatus string

const (
	StatusOK                ResultStatus = "ok"
	StatusSourceUnavailable ResultStatus = "source_unavailable"
	StatusRateLimited       ResultStatus = "rate_limited"
	StatusNotFound          ResultStatus = "not_found"
	StatusTimeout           ResultStatus = "timeout"
)

type ResearchResult struct {
	Source string       `json:"source"`
	Status ResultStatus `json:"status"`
	Facts  []Fact       `json:"facts,omitempty"`
	Detail string       `json:"detail,omitempty"`
}

func (r ResearchResult) OK() bool {
	return r.Status == StatusOK
}

// ResearchBatch collects exactly one result per dispatched source, in
// dispatch order. It is the orchestrator's sole output; adapter failures
// arrive as labeled entries, never as errors.
type ResearchBatch struct {
	Company string           `json:"company"`
	Results []ResearchResult `json:"results"`
}

func (b ResearchBatch) Sources() []string {
	names := make([]string, 0, len(b.Results))
	for _, r := range b.Results {
		names = append(names, r.Source)
	}
	return names
}

func (b ResearchBatch) BySource(name string) (ResearchResult, bool) {
	for _, r := range b.Results {
		if r.Source == name {
			return r, true
		}
	}
	return ResearchResult{}, false
}

// AllFailed reports whether every dispatched source failed. The engine
// derives its research-failed messaging from this; an empty batch is not
// "all failed".
func (b ResearchBatch) AllFailed() bool {
	if len(b.Results) == 0 {
		return false
	}
	for _, r := range b.Results {
		if r.OK() {
			return false
		}
	}
	return true
}

// TurnResponse is what SendUtterance hands back to the surrounding CLI/UI:
// reply text, the current plan render, and the progress events generated
// during this turn.
type TurnResponse struct {
	Reply  string                 `json:"reply"`
	Plan   []statex.Section       `json:"plan"`
	Events []statex.ProgressEvent `json:"events,omitempty"`
}
