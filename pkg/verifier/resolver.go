package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/vlei-verifier-client/pkg/httpclient"
)

// Mode is the topology a verifier instance reports on its status endpoint.
type Mode string

const (
	// ModeRouter means the instance forwards each AID to a backend verifier.
	ModeRouter Mode = "router"
	// ModeDirect means the instance serves authorizations itself.
	ModeDirect Mode = "direct"
)

var (
	// ErrMissingVerifierURL is returned when a router does not name a backend for an AID.
	ErrMissingVerifierURL = errors.New("router returned no verifier_url")
	// ErrUnexpectedStatus is returned when a resolution call answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected status from verifier")
)

// RouteCache stores router-mode resolutions keyed by AID. Implementations
// must be safe for concurrent use.
type RouteCache interface {
	Lookup(aid string) (string, bool, error)
	Remember(aid, verifierURL string) error
	Forget(aid string) error
}

type statusBody struct {
	Mode Mode `json:"mode"`
}

type verifierURLBody struct {
	VerifierURL string `json:"verifier_url"`
}

// Mode queries the status endpoint and returns the reported topology.
// Values other than "router" are treated as direct.
func (a *Adapter) Mode(ctx context.Context) (Mode, error) {
	var body statusBody
	if err := a.getJSON(ctx, "status", a.StatusRequest().URL, &body); err != nil {
		return "", err
	}
	mode := Mode(strings.ToLower(strings.TrimSpace(string(body.Mode))))
	if mode != ModeRouter {
		mode = ModeDirect
	}
	return mode, nil
}

// VerifierURLForAID asks a router which backend verifier serves aid.
func (a *Adapter) VerifierURLForAID(ctx context.Context, aid string) (string, error) {
	var body verifierURLBody
	if err := a.getJSON(ctx, "verifier url lookup", a.VerifierURLRequest(aid).URL, &body); err != nil {
		return "", err
	}
	if strings.TrimSpace(body.VerifierURL) == "" {
		return "", fmt.Errorf("verifier url lookup for %s: %w", aid, ErrMissingVerifierURL)
	}
	resolved, err := normalizeBaseURL(body.VerifierURL)
	if err != nil {
		return "", fmt.Errorf("verifier url lookup for %s: %w", aid, err)
	}
	return resolved, nil
}

// ResolveBaseURL returns the base URL that serves authorization checks for aid.
func (a *Adapter) ResolveBaseURL(ctx context.Context, aid string) (string, error) {
	if cached, ok := a.cachedRoute(aid); ok {
		return cached, nil
	}

	mode, err := a.Mode(ctx)
	if err != nil {
		return "", err
	}
	a.log.DebugObj("verifier topology resolved", "verifier_mode", map[string]any{
		"aid":  aid,
		"mode": string(mode),
	})
	if mode != ModeRouter {
		return a.baseURL, nil
	}

	resolved, err := a.VerifierURLForAID(ctx, aid)
	if err != nil {
		return "", err
	}
	a.rememberRoute(aid, resolved)
	a.log.DebugObj("verifier url resolved", "verifier_route", map[string]any{
		"aid":          aid,
		"verifier_url": resolved,
	})
	return resolved, nil
}

// ForgetRoute drops any cached resolution for aid.
func (a *Adapter) ForgetRoute(aid string) error {
	if a.routes == nil {
		return nil
	}
	return a.routes.Forget(aid)
}

func (a *Adapter) cachedRoute(aid string) (string, bool) {
	if a.routes == nil {
		return "", false
	}
	resolved, ok, err := a.routes.Lookup(aid)
	if err != nil {
		a.log.ErrorObj("route cache lookup failed", "route_cache_error", map[string]any{
			"aid":   aid,
			"error": err.Error(),
		})
		return "", false
	}
	return resolved, ok && resolved != ""
}

func (a *Adapter) rememberRoute(aid, resolved string) {
	if a.routes == nil {
		return
	}
	if err := a.routes.Remember(aid, resolved); err != nil {
		a.log.ErrorObj("route cache store failed", "route_cache_error", map[string]any{
			"aid":   aid,
			"error": err.Error(),
		})
	}
}

func (a *Adapter) getJSON(ctx context.Context, op, url string, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := a.http.Get(ctx, url, nil)
	if err != nil {
		a.log.ErrorObj("verifier request failed", "verifier_error", map[string]any{
			"operation": op,
			"url":       url,
			"error":     err.Error(),
		})
		return fmt.Errorf("%s request: %w", op, err)
	}
	if !isSuccess(res) {
		return fmt.Errorf("%s request: %w %d: %s", op, ErrUnexpectedStatus, res.StatusCode(), bodySnippet(res.Body()))
	}
	if err := json.Unmarshal(res.Body(), out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func isSuccess(res httpclient.Response) bool {
	return res.StatusCode() >= 200 && res.StatusCode() < 300
}

func bodySnippet(body []byte) string {
	if len(body) > 256 {
		body = body[:256]
	}
	return strings.TrimSpace(string(body))
}
