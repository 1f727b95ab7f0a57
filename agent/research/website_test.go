package research

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestWebsiteAdapterFetch(t *testing.T) {
	t.Parallel()

	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"api_key": r.URL.Query().Get("api_key"),
			"url":     r.URL.Query().Get("url"),
			"dynamic": r.URL.Query().Get("dynamic"),
		}
		fmt.Fprint(w, `<html><head><style>p{color:red}</style></head><body><h1>Acme</h1><p>We make anvils. Since 1949.</p><script>track()</script></body></html>`)
	}))
	t.Cleanup(server.Close)

	adapter, err := NewWebsiteAdapter(WebsiteConfig{
		BaseURL:       server.URL,
		APICredential: "key-123",
	})
	if err != nil {
		t.Fatalf("NewWebsiteAdapter() error = %v", err)
	}

	facts, err := adapter.Fetch(context.Background(), "Acme Corp", "")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if gotQuery["api_key"] != "key-123" {
		t.Fatalf("api_key = %q", gotQuery["api_key"])
	}
	if gotQuery["url"] != "https://www.acmecorp.com" {
		t.Fatalf("guessed url = %q", gotQuery["url"])
	}
	if gotQuery["dynamic"] != "false" {
		t.Fatalf("dynamic = %q", gotQuery["dynamic"])
	}
	if len(facts) == 0 {
		t.Fatal("expected at least one fact")
	}
	for _, f := range facts {
		if f.Label != "website" {
			t.Fatalf("fact label = %q, want website", f.Label)
		}
	}
}

func TestWebsiteAdapterUsesHintURL(t *testing.T) {
	t.Parallel()

	var gotURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		fmt.Fprint(w, `<p>About us.</p>`)
	}))
	t.Cleanup(server.Close)

	adapter, err := NewWebsiteAdapter(WebsiteConfig{
		BaseURL:       server.URL,
		APICredential: "key-123",
	})
	if err != nil {
		t.Fatalf("NewWebsiteAdapter() error = %v", err)
	}

	if _, err := adapter.Fetch(context.Background(), "Acme", "https://acme.example.com/about"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotURL != "https://acme.example.com/about" {
		t.Fatalf("url = %q, want the hint", gotURL)
	}
}

func TestWebsiteAdapterRequiresCredential(t *testing.T) {
	t.Parallel()

	if _, err := NewWebsiteAdapter(WebsiteConfig{}); err == nil {
		t.Fatal("expected error for missing credential")
	}
}

func TestHTMLToText(t *testing.T) {
	t.Parallel()

	got := htmlToText(`<div><script>x()</script>Hello <b>world</b>.<style>a{}</style></div>`)
	if got != "Hello world ." {
		t.Fatalf("htmlToText() = %q", got)
	}
}

func TestTruncateOnRuneBoundary(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", maxScrapeTextBytes-1) + "é"
	got := truncateOnRuneBoundary(long, maxScrapeTextBytes)
	if got != strings.Repeat("a", maxScrapeTextBytes-1) {
		t.Fatalf("truncation split a rune: last bytes %q", got[len(got)-4:])
	}
	if !utf8.ValidString(got) {
		t.Fatal("truncated text is not valid UTF-8")
	}

	if got := truncateOnRuneBoundary("héllo", 100); got != "héllo" {
		t.Fatalf("short text changed: %q", got)
	}
}

func TestGuessWebsiteURL(t *testing.T) {
	t.Parallel()

	cases := []struct{ company, want string }{
		{"Acme Corp", "https://www.acmecorp.com"},
		{"  ", ""},
		{"K&R Heating", "https://www.krheating.com"},
	}
	for _, tc := range cases {
		if got := guessWebsiteURL(tc.company); got != tc.want {
			t.Fatalf("guessWebsiteURL(%q) = %q, want %q", tc.company, got, tc.want)
		}
	}
}
