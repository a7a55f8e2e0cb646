package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samvad-hq/vlei-verifier-client/pkg/httpclient"
)

const (
	eventContentType = "application/json"

	headerOperation    = "X-Verifier-Operation"
	headerIdentifier   = "X-Verifier-Identifier"
	headerVerifierCode = "X-Verifier-Status"
)

// webhookPublisher posts verifier outcomes to an HTTP endpoint. Each delivery
// carries the operation, identifier and verifier status as headers so
// receivers can route without decoding the body.
type webhookPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  httpclient.Client
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	method := cfg.HTTP.Method
	if method == "" {
		method = httpDefaultMethod
	}

	return &webhookPublisher{
		id:      cfg.ID,
		method:  method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second),
		log:     ensureLogger(log),
	}, nil
}

func (w *webhookPublisher) ID() string   { return w.id }
func (w *webhookPublisher) Type() string { return TypeHTTP }

func (w *webhookPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	res, err := w.client.Do(ctx, httpclient.Request{
		URL:     w.url,
		Method:  w.method,
		Headers: w.eventHeaders(evt),
		Body:    payload,
	})
	if err != nil {
		return fmt.Errorf("deliver %s event: %w", evt.Operation, err)
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return fmt.Errorf("webhook answered %d for %s event: %s", res.StatusCode(), evt.Operation, readBodySnippet(res.Body()))
	}
	w.log.DebugObj("webhook delivered verifier event", "publisher_http_delivery", map[string]any{
		"publisher_id": w.id,
		"operation":    evt.Operation,
		"status":       res.StatusCode(),
	})
	return nil
}

// eventHeaders merges configured headers with the per-event routing headers.
// Event headers override configured ones.
func (w *webhookPublisher) eventHeaders(evt Event) map[string]string {
	headers := make(map[string]string, len(w.headers)+4)
	for k, v := range w.headers {
		headers[k] = v
	}
	headers["Content-Type"] = eventContentType
	headers[headerVerifierCode] = strconv.Itoa(evt.Code)
	if evt.Operation != "" {
		headers[headerOperation] = evt.Operation
	}
	if evt.Identifier != "" {
		headers[headerIdentifier] = evt.Identifier
	}
	return headers
}

func readBodySnippet(body []byte) string {
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
