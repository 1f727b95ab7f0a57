package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	contractx "github.com/planscout/planscout/agent/contract"
)

const (
	newsFactLimit   = 6
	defaultNewsBase = "https://gnews.io/api/v4"
)

type NewsConfig struct {
	BaseURL       string        `envconfig:"BASE_URL" split_words:"true" default:"https://gnews.io/api/v4"`
	APICredential string        `envconfig:"API_CREDENTIAL" split_words:"true" required:"true"`
	Language      string        `envconfig:"LANGUAGE" split_words:"true" default:"en"`
	MaxArticles   int           `envconfig:"MAX_ARTICLES" split_words:"true" default:"5"`
	Timeout       time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

// NewsAdapter searches a GNews-style headline API for recent coverage of a
// company. The hint, when present, narrows the search query.
type NewsAdapter struct {
	baseURL     string
	credential  string
	language    string
	maxArticles int
	httpClient  *http.Client
}

func NewNewsAdapter(cfg NewsConfig) (*NewsAdapter, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultNewsBase
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid news base url: %w", err)
	}

	credential := strings.TrimSpace(cfg.APICredential)
	if credential == "" {
		return nil, errors.New("news api credential is required")
	}

	maxArticles := cfg.MaxArticles
	if maxArticles <= 0 {
		maxArticles = 5
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &NewsAdapter{
		baseURL:     baseURL,
		credential:  credential,
		language:    strings.TrimSpace(cfg.Language),
		maxArticles: maxArticles,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (a *NewsAdapter) Name() string {
	return SourceNews
}

type newsSearchResponse struct {
	TotalArticles int `json:"totalArticles"`
	Articles      []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

func (a *NewsAdapter) Fetch(ctx context.Context, company, hint string) ([]contractx.Fact, error) {
	term := strings.TrimSpace(company)
	if term == "" {
		return nil, fmt.Errorf("%w: company is empty", contractx.ErrNotFound)
	}
	if h := strings.TrimSpace(hint); h != "" && !strings.HasPrefix(h, "http") {
		term = term + " " + h
	}

	query := url.Values{}
	query.Set("q", term)
	query.Set("apikey", a.credential)
	query.Set("max", strconv.Itoa(a.maxArticles))
	if a.language != "" {
		query.Set("lang", a.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/search?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build news request: %v", contractx.ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: news request: %v", contractx.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: news request: %v", contractx.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(SourceNews, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAdapterBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read news response: %v", contractx.ErrSourceUnavailable, err)
	}

	var search newsSearchResponse
	if err := json.Unmarshal(raw, &search); err != nil {
		return nil, fmt.Errorf("%w: decode news response: %v", contractx.ErrSourceUnavailable, err)
	}

	if len(search.Articles) == 0 {
		return nil, fmt.Errorf("%w: no recent news for %q", contractx.ErrNotFound, term)
	}

	facts := make([]contractx.Fact, 0, newsFactLimit)
	for _, article := range search.Articles {
		if len(facts) == newsFactLimit {
			break
		}
		text := strings.TrimSpace(article.Title)
		if text == "" {
			continue
		}
		if desc := strings.TrimSpace(article.Description); desc != "" {
			text = text + ": " + desc
		}
		facts = append(facts, contractx.Fact{
			Text:       text,
			Label:      "headline",
			Confidence: 0.6,
		})
	}
	if len(facts) == 0 {
		return nil, fmt.Errorf("%w: no usable news for %q", contractx.ErrNotFound, term)
	}
	return facts, nil
}
