package research

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	contractx "github.com/planscout/planscout/agent/contract"
)

func TestWikipediaAdapterFetch(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"title":"Acme Corporation","description":"Fictional manufacturer","extract":"Acme makes anvils. It ships worldwide."}`)
	}))
	t.Cleanup(server.Close)

	adapter, err := NewWikipediaAdapter(WikipediaConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewWikipediaAdapter() error = %v", err)
	}

	facts, err := adapter.Fetch(context.Background(), "Acme Corporation", "")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if gotPath != "/page/summary/Acme_Corporation" {
		t.Fatalf("request path = %q", gotPath)
	}
	if len(facts) != 3 {
		t.Fatalf("got %d facts, want description plus two sentences", len(facts))
	}
	if facts[0].Label != "description" || facts[0].Confidence != 0.9 {
		t.Fatalf("first fact = %+v, want the description fact", facts[0])
	}
	if facts[1].Text != "Acme makes anvils." {
		t.Fatalf("facts[1].Text = %q", facts[1].Text)
	}
}

func TestWikipediaAdapterNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	adapter, err := NewWikipediaAdapter(WikipediaConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewWikipediaAdapter() error = %v", err)
	}

	_, err = adapter.Fetch(context.Background(), "No Such Company", "")
	if !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("Fetch() error = %v, want ErrNotFound", err)
	}
}

func TestWikipediaAdapterRateLimited(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	adapter, err := NewWikipediaAdapter(WikipediaConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewWikipediaAdapter() error = %v", err)
	}

	_, err = adapter.Fetch(context.Background(), "Acme", "")
	if !errors.Is(err, contractx.ErrRateLimited) {
		t.Fatalf("Fetch() error = %v, want ErrRateLimited", err)
	}
}

func TestWikipediaAdapterEmptyExtract(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title":"Acme","description":"","extract":""}`)
	}))
	t.Cleanup(server.Close)

	adapter, err := NewWikipediaAdapter(WikipediaConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewWikipediaAdapter() error = %v", err)
	}

	_, err = adapter.Fetch(context.Background(), "Acme", "")
	if !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("Fetch() error = %v, want ErrNotFound", err)
	}
}

func TestStatusErrorTaxonomy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code int
		want error
	}{
		{404, contractx.ErrNotFound},
		{429, contractx.ErrRateLimited},
		{408, contractx.ErrTimeout},
		{504, contractx.ErrTimeout},
		{500, contractx.ErrSourceUnavailable},
		{503, contractx.ErrSourceUnavailable},
	}
	for _, tc := range cases {
		if err := statusError("wikipedia", tc.code); !errors.Is(err, tc.want) {
			t.Fatalf("statusError(%d) = %v, want %v", tc.code, err, tc.want)
		}
	}
}
