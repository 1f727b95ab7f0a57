package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	statex "github.com/planscout/planscout/agent/state"
)

func TestPublish(t *testing.T) {
	t.Parallel()

	var gotAuth, gotContentType string
	var gotEvent statex.ProgressEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotEvent); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL, Token: "hook-token"})

	ev := statex.ProgressEvent{
		Source: "wikipedia",
		Stage:  statex.StageCompleted,
		At:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := client.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if gotAuth != "Bearer hook-token" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Fatalf("content-type = %q", gotContentType)
	}
	if gotEvent.Source != "wikipedia" || gotEvent.Stage != statex.StageCompleted {
		t.Fatalf("delivered event = %+v", gotEvent)
	}
}

func TestPublishNon2xxIsError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL})
	if err := client.Publish(context.Background(), statex.ProgressEvent{Source: "news"}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for missing url")
	}
}

func TestMustNewPanicsOnBadConfig(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for invalid config")
		}
	}()
	MustNew(Config{URL: "::not-a-url"})
}
