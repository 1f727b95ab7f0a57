package research

import (
	"fmt"
	"net/http"
	"strings"

	contractx "github.com/planscout/planscout/agent/contract"
)

// Well-known source names. The engine's source-to-section fold table keys on
// these.
const (
	SourceWikipedia = "wikipedia"
	SourceWebsite   = "website"
	SourceNews      = "news"
)

// statusError maps an HTTP response code to the adapter error taxonomy.
func statusError(source string, code int) error {
	switch {
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s returned 404", contractx.ErrNotFound, source)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s returned 429", contractx.ErrRateLimited, source)
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s returned %d", contractx.ErrTimeout, source, code)
	default:
		return fmt.Errorf("%w: %s returned %d", contractx.ErrSourceUnavailable, source, code)
	}
}

// sentenceFacts splits prose into one fact per sentence, capped at limit.
func sentenceFacts(text, label string, confidence float64, limit int) []contractx.Fact {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var facts []contractx.Fact
	for _, sentence := range splitSentences(text) {
		if len(facts) >= limit {
			break
		}
		facts = append(facts, contractx.Fact{
			Text:       sentence,
			Label:      label,
			Confidence: confidence,
		})
	}
	return facts
}

func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); len(s) > 1 {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); len(s) > 1 {
		out = append(out, s)
	}
	return out
}
