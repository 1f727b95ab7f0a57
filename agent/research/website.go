package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	contractx "github.com/planscout/planscout/agent/contract"
)

const (
	websiteFactLimit   = 6
	defaultScrapeBase  = "https://api.scrapingdog.com/scrape"
	maxScrapeTextBytes = 2000
)

type WebsiteConfig struct {
	BaseURL       string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.scrapingdog.com/scrape"`
	APICredential string        `envconfig:"API_CREDENTIAL" split_words:"true" required:"true"`
	Dynamic       bool          `envconfig:"DYNAMIC" split_words:"true" default:"false"`
	Timeout       time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

// WebsiteAdapter scrapes a company's site through a ScrapingDog-style proxy
// endpoint. The hint, when present, is the site URL; otherwise a
// https://www.<slug>.com guess is derived from the company name.
type WebsiteAdapter struct {
	baseURL    string
	credential string
	dynamic    bool
	httpClient *http.Client
}

func NewWebsiteAdapter(cfg WebsiteConfig) (*WebsiteAdapter, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultScrapeBase
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid scrape base url: %w", err)
	}

	credential := strings.TrimSpace(cfg.APICredential)
	if credential == "" {
		return nil, errors.New("scrape api credential is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &WebsiteAdapter{
		baseURL:    baseURL,
		credential: credential,
		dynamic:    cfg.Dynamic,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (a *WebsiteAdapter) Name() string {
	return SourceWebsite
}

func (a *WebsiteAdapter) Fetch(ctx context.Context, company, hint string) ([]contractx.Fact, error) {
	target := strings.TrimSpace(hint)
	if !strings.HasPrefix(target, "http") {
		target = guessWebsiteURL(company)
	}
	if target == "" {
		return nil, fmt.Errorf("%w: no website url for %q", contractx.ErrNotFound, company)
	}

	query := url.Values{}
	query.Set("api_key", a.credential)
	query.Set("url", target)
	if a.dynamic {
		query.Set("dynamic", "true")
	} else {
		query.Set("dynamic", "false")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build scrape request: %v", contractx.ErrSourceUnavailable, err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: scrape request: %v", contractx.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: scrape request: %v", contractx.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(SourceWebsite, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAdapterBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read scrape response: %v", contractx.ErrSourceUnavailable, err)
	}

	text := truncateOnRuneBoundary(htmlToText(string(raw)), maxScrapeTextBytes)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: scraped page for %q is empty", contractx.ErrNotFound, target)
	}

	facts := sentenceFacts(text, "website", 0.5, websiteFactLimit)
	if len(facts) == 0 {
		facts = []contractx.Fact{{Text: text, Label: "website", Confidence: 0.4}}
	}
	return facts, nil
}

var (
	htmlTagPattern    = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>|<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	nonSlugPattern    = regexp.MustCompile(`[^a-z0-9]`)
)

func htmlToText(raw string) string {
	text := htmlTagPattern.ReplaceAllString(raw, " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// truncateOnRuneBoundary caps s at max bytes without splitting a rune.
func truncateOnRuneBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func guessWebsiteURL(company string) string {
	slug := nonSlugPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(company)), "")
	if slug == "" {
		return ""
	}
	return "https://www." + slug + ".com"
}
