package nlp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meeting-secretary-team/meeting-secretary/errors"
	"github.com/meeting-secretary-team/meeting-secretary/pkg/config"
)

func newTestClient(baseURL string, retries int) *Client {
	return NewClient(&config.ExtractorConfig{
		BaseURL: baseURL,
		Timeout: time.Second,
		Retries: retries,
	}, nil)
}

func TestExtractParsesEnrichedTasks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract-tasks" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if payload["text"] == "" {
			t.Fatalf("missing text in payload")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"tasks":[
			{"summary":"prepare the demo","confidence":1.7,"labels":["Design ","design"]},
			{"summary":"  ","confidence":0.9},
			{"summary":"send notes","confidence":"not a number"}
		]}`))
	}))
	defer ts.Close()

	items, err := newTestClient(ts.URL, 0).Extract(context.Background(), "meeting transcript")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items (blank summary dropped), got %d", len(items))
	}
	if items[0].Confidence != 1 {
		t.Fatalf("confidence not clamped: %v", items[0].Confidence)
	}
	if len(items[0].Labels) != 2 || items[0].Labels[0] != "Design" || items[0].Labels[1] != "design" {
		t.Fatalf("labels not normalized: %v", items[0].Labels)
	}
	if items[1].Confidence != 0 {
		t.Fatalf("non-numeric confidence must coerce to 0, got %v", items[1].Confidence)
	}
}

func TestExtractParsesPlainStringTasks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tasks":["review the budget","schedule a follow-up"]}`))
	}))
	defer ts.Close()

	items, err := newTestClient(ts.URL, 0).Extract(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(items) != 2 || items[0].Summary != "review the budget" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestExtractRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"tasks":[{"summary":"ship it","confidence":0.8}]}`))
	}))
	defer ts.Close()

	items, err := newTestClient(ts.URL, 2).Extract(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("Extract should succeed on third attempt: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if len(items) != 1 {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestExtractSurfacesStatusAfterExhaustedRetries(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"detail":"model is loading"}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL, 2).Extract(context.Background(), "transcript")
	if err == nil {
		t.Fatalf("expected error after exhausted retries")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts (1 + 2 retries), got %d", attempts)
	}
	var appErr errors.AppError
	if !errors.AsAppError(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != errors.ErrorCode_REMOTE_STATUS {
		t.Fatalf("expected remote status error, got %v", appErr.Code)
	}
	if appErr.Details["status"] != "503" {
		t.Fatalf("expected status detail 503, got %v", appErr.Details)
	}
	if appErr.Message != "model is loading" {
		t.Fatalf("expected message from error body, got %q", appErr.Message)
	}
}

func TestExtractConnectivityError(t *testing.T) {
	// Point at a closed server so every attempt fails at the transport level.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	_, err := newTestClient(ts.URL, 1).Extract(context.Background(), "transcript")
	if errors.CodeOf(err) != errors.ErrorCode_REMOTE_UNREACHABLE {
		t.Fatalf("expected connectivity error, got %v", err)
	}
}
