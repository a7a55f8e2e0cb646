package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/vlei-verifier-client/internal/config"
	"github.com/samvad-hq/vlei-verifier-client/pkg/publishers"
	"github.com/samvad-hq/vlei-verifier-client/pkg/verifier"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		VerifierBaseURL:   baseURL,
		RouteCache:        "none",
		RouteCacheTTL:     time.Minute,
		RouteCacheCleanup: time.Minute,
	}
}

func TestNewRunnerRequiresConfig(t *testing.T) {
	if _, err := NewRunner(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestNewRunnerRejectsInvalidBaseURL(t *testing.T) {
	if _, err := NewRunner(context.Background(), testConfig("not a url"), nil); err == nil {
		t.Fatalf("expected error for invalid base url")
	}
}

func TestRunnerPublishesOutcome(t *testing.T) {
	verifierSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/presentations/S1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"msg":"S1 is a valid credential"}`)
	}))
	defer verifierSrv.Close()

	var (
		mu     sync.Mutex
		events []publishers.Event
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			t.Errorf("decode event: %v", err)
		}
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	pubFile := filepath.Join(t.TempDir(), "publishers.yaml")
	raw := "publishers:\n  - id: hook\n    type: http\n    http:\n      url: " + hook.URL + "\n"
	if err := os.WriteFile(pubFile, []byte(raw), 0o644); err != nil {
		t.Fatalf("write publishers file: %v", err)
	}

	cfg := testConfig(verifierSrv.URL)
	cfg.PublishersFile = pubFile
	runner, err := NewRunner(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	defer runner.Close()

	res, err := runner.Run(context.Background(), "presentation", "S1", func(ctx context.Context, c *verifier.Client) (*verifier.Response, error) {
		return c.Presentation(ctx, "S1", "CESR-DATA")
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Code != http.StatusAccepted || res.Message != "S1 is a valid credential" {
		t.Fatalf("unexpected response %#v", res)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(events))
	}
	if events[0].Operation != "presentation" || events[0].Identifier != "S1" || events[0].Code != http.StatusAccepted {
		t.Fatalf("unexpected event %#v", events[0])
	}
}

func TestRunnerPublishFailureDoesNotFailOperation(t *testing.T) {
	verifierSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"msg":"bad signature"}`)
	}))
	defer verifierSrv.Close()
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer hook.Close()

	pubFile := filepath.Join(t.TempDir(), "publishers.json")
	raw := `{"publishers":[{"id":"hook","type":"http","http":{"url":"` + hook.URL + `"}}]}`
	if err := os.WriteFile(pubFile, []byte(raw), 0o644); err != nil {
		t.Fatalf("write publishers file: %v", err)
	}

	cfg := testConfig(verifierSrv.URL)
	cfg.PublishersFile = pubFile
	runner, err := NewRunner(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	defer runner.Close()

	res, err := runner.Run(context.Background(), "verify_signature", "ESigner", func(ctx context.Context, c *verifier.Client) (*verifier.Response, error) {
		return c.VerifySignature(ctx, "sig", "ESigner", "digest")
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 to pass through, got %d", res.Code)
	}
}

func TestRunnerUsesMemoryRouteCache(t *testing.T) {
	var (
		mu          sync.Mutex
		statusCalls int
	)
	var backendURL string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"msg":"authorized"}`)
	}))
	defer backend.Close()
	backendURL = backend.URL

	router := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status/":
			mu.Lock()
			statusCalls++
			mu.Unlock()
			_, _ = io.WriteString(w, `{"mode":"router"}`)
		case "/get_verifier_url_for_aid/EAID":
			_, _ = io.WriteString(w, `{"verifier_url":"`+backendURL+`"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer router.Close()

	cfg := testConfig(router.URL)
	cfg.RouteCache = "memory"
	runner, err := NewRunner(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	defer runner.Close()

	for i := 0; i < 3; i++ {
		res, err := runner.Run(context.Background(), "authorization", "EAID", func(ctx context.Context, c *verifier.Client) (*verifier.Response, error) {
			return c.CheckAuthorization(ctx, "EAID")
		})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.Message != "authorized" {
			t.Fatalf("unexpected message %q", res.Message)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if statusCalls != 1 {
		t.Fatalf("expected a single status call with caching, got %d", statusCalls)
	}
}

func TestRunnerWrapsOperationErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	runner, err := NewRunner(context.Background(), testConfig(base), nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	defer runner.Close()

	_, err = runner.Run(context.Background(), "status", "", func(ctx context.Context, c *verifier.Client) (*verifier.Response, error) {
		return c.Status(ctx)
	})
	if err == nil {
		t.Fatalf("expected transport error")
	}
}
