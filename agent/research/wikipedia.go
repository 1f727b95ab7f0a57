package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/planscout/planscout/agent/contract"
)

const (
	wikipediaFactLimit   = 8
	maxAdapterBodyBytes  = 1 << 20
	defaultWikipediaBase = "https://en.wikipedia.org/api/rest_v1"
)

type WikipediaConfig struct {
	BaseURL   string        `envconfig:"BASE_URL" split_words:"true" default:"https://en.wikipedia.org/api/rest_v1"`
	UserAgent string        `envconfig:"USER_AGENT" split_words:"true" default:"planscout/1.0 (account research agent)"`
	Timeout   time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

// WikipediaAdapter fetches the page summary for a company from the Wikipedia
// REST API and turns the extract into sentence facts.
type WikipediaAdapter struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewWikipediaAdapter(cfg WikipediaConfig) (*WikipediaAdapter, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultWikipediaBase
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid wikipedia base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &WikipediaAdapter{
		baseURL:   baseURL,
		userAgent: strings.TrimSpace(cfg.UserAgent),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (a *WikipediaAdapter) Name() string {
	return SourceWikipedia
}

type wikipediaSummary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
}

func (a *WikipediaAdapter) Fetch(ctx context.Context, company, hint string) ([]contractx.Fact, error) {
	title := strings.TrimSpace(company)
	if title == "" {
		return nil, fmt.Errorf("%w: company is empty", contractx.ErrNotFound)
	}

	endpoint := a.baseURL + "/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build wikipedia request: %v", contractx.ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: wikipedia request: %v", contractx.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: wikipedia request: %v", contractx.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(SourceWikipedia, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAdapterBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read wikipedia response: %v", contractx.ErrSourceUnavailable, err)
	}

	var summary wikipediaSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("%w: decode wikipedia response: %v", contractx.ErrSourceUnavailable, err)
	}

	if strings.TrimSpace(summary.Extract) == "" {
		return nil, fmt.Errorf("%w: wikipedia has no extract for %q", contractx.ErrNotFound, title)
	}

	var facts []contractx.Fact
	if desc := strings.TrimSpace(summary.Description); desc != "" {
		facts = append(facts, contractx.Fact{
			Text:       fmt.Sprintf("%s: %s", summary.Title, desc),
			Label:      "description",
			Confidence: 0.9,
		})
	}
	facts = append(facts, sentenceFacts(summary.Extract, "summary", 0.8, wikipediaFactLimit)...)
	return facts, nil
}
