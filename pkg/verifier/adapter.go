package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samvad-hq/vlei-verifier-client/pkg/httpclient"
)

// DefaultBaseURL is the verifier address used when none is configured.
const DefaultBaseURL = "http://localhost:7676"

const (
	authorizationsPath  = "/authorizations/"
	presentationsPath   = "/presentations/"
	requestVerifyPath   = "/request/verify/"
	signatureVerifyPath = "/signature/verify/"
	rootOfTrustPath     = "/root_of_trust/"
	statusPath          = "/status/"
	verifierURLPath     = "/get_verifier_url_for_aid/"

	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
	contentTypeCESR   = "application/json+cesr"
)

// ErrInvalidBaseURL is returned when the configured verifier URL is not absolute.
var ErrInvalidBaseURL = errors.New("verifier base url must be an absolute http(s) url")

// Adapter builds verifier requests and sends them over the configured transport.
type Adapter struct {
	baseURL string
	http    httpclient.Client
	timeout time.Duration
	routes  RouteCache
	log     Logger
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithHTTPClient replaces the default resty transport.
func WithHTTPClient(c httpclient.Client) Option {
	return func(a *Adapter) {
		if c != nil {
			a.http = c
		}
	}
}

// WithLogger injects the logger used for request tracing.
func WithLogger(log Logger) Option {
	return func(a *Adapter) { a.log = ensureLogger(log) }
}

// WithRouteCache enables caching of router-mode resolutions.
func WithRouteCache(c RouteCache) Option {
	return func(a *Adapter) { a.routes = c }
}

// WithTimeout bounds each request made by the default transport. It has no
// effect when a transport is injected with WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(a *Adapter) { a.timeout = timeout }
}

// NewAdapter creates an adapter for the verifier at baseURL. An empty baseURL
// selects DefaultBaseURL.
func NewAdapter(baseURL string, opts ...Option) (*Adapter, error) {
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	a := &Adapter{
		baseURL: base,
		log:     noopLogger{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.http == nil {
		a.http = httpclient.NewRestyClient(a.timeout)
	}
	return a, nil
}

// BaseURL returns the configured verifier address without a trailing slash.
func (a *Adapter) BaseURL() string { return a.baseURL }

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultBaseURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

// AuthorizationRequestFor builds the authorization check against base.
func AuthorizationRequestFor(base, aid string) httpclient.Request {
	return httpclient.Request{
		URL:     strings.TrimRight(base, "/") + authorizationsPath + url.PathEscape(aid),
		Method:  http.MethodGet,
		Headers: map[string]string{headerContentType: contentTypeJSON},
	}
}

// BuildAuthorizationRequest resolves the verifier responsible for aid and
// builds the authorization check against it.
func (a *Adapter) BuildAuthorizationRequest(ctx context.Context, aid string) (httpclient.Request, error) {
	base, err := a.ResolveBaseURL(ctx, aid)
	if err != nil {
		return httpclient.Request{}, err
	}
	return AuthorizationRequestFor(base, aid), nil
}

// Authorization sends a previously built authorization request.
func (a *Adapter) Authorization(ctx context.Context, aid string, req httpclient.Request) (httpclient.Response, error) {
	a.log.InfoObj("authorization request sent", "authorization_request", map[string]any{
		"aid": aid,
		"url": req.URL,
	})
	return a.send(ctx, "authorization", req)
}

// PresentationRequest builds the PUT carrying a CESR credential presentation.
func (a *Adapter) PresentationRequest(said, vlei string) httpclient.Request {
	return httpclient.Request{
		URL:     a.baseURL + presentationsPath + url.PathEscape(said),
		Method:  http.MethodPut,
		Headers: map[string]string{headerContentType: contentTypeCESR},
		Body:    []byte(vlei),
	}
}

// Presentation submits a credential presentation for said.
func (a *Adapter) Presentation(ctx context.Context, said, vlei string) (httpclient.Response, error) {
	a.log.InfoObj("presentation request sent", "presentation_request", map[string]any{
		"said": said,
	})
	return a.send(ctx, "presentation", a.PresentationRequest(said, vlei))
}

// VerifySignedHeadersRequest builds the signed header verification call.
// The signature and serialized data travel as query parameters.
func (a *Adapter) VerifySignedHeadersRequest(aid, sig, ser string) httpclient.Request {
	return httpclient.Request{
		URL: a.baseURL + requestVerifyPath + url.PathEscape(aid) +
			"?sig=" + url.QueryEscape(sig) + "&data=" + url.QueryEscape(ser),
		Method: http.MethodPost,
	}
}

// VerifySignedHeaders asks the verifier to check a signed request.
func (a *Adapter) VerifySignedHeaders(ctx context.Context, aid, sig, ser string) (httpclient.Response, error) {
	a.log.InfoObj("signed headers verification request sent", "verify_headers_request", map[string]any{
		"aid": aid,
		"sig": sig,
		"ser": ser,
	})
	return a.send(ctx, "verify signed headers", a.VerifySignedHeadersRequest(aid, sig, ser))
}

type signaturePayload struct {
	Signature         string `json:"signature"`
	SignerAID         string `json:"signer_aid"`
	NonPrefixedDigest string `json:"non_prefixed_digest"`
}

// VerifySignatureRequest builds the raw signature verification call.
func (a *Adapter) VerifySignatureRequest(signature, signerAID, nonPrefixedDigest string) (httpclient.Request, error) {
	body, err := json.Marshal(signaturePayload{
		Signature:         signature,
		SignerAID:         signerAID,
		NonPrefixedDigest: nonPrefixedDigest,
	})
	if err != nil {
		return httpclient.Request{}, fmt.Errorf("marshal signature payload: %w", err)
	}
	return httpclient.Request{
		URL:     a.baseURL + signatureVerifyPath,
		Method:  http.MethodPost,
		Headers: map[string]string{headerContentType: contentTypeJSON},
		Body:    body,
	}, nil
}

// VerifySignature asks the verifier to check signature over the digest for signerAID.
func (a *Adapter) VerifySignature(ctx context.Context, signature, signerAID, nonPrefixedDigest string) (httpclient.Response, error) {
	a.log.InfoObj("signature verification request sent", "verify_signature_request", map[string]any{
		"signature": signature,
		"submitter": signerAID,
		"digest":    nonPrefixedDigest,
	})
	req, err := a.VerifySignatureRequest(signature, signerAID, nonPrefixedDigest)
	if err != nil {
		return nil, err
	}
	return a.send(ctx, "verify signature", req)
}

type rootOfTrustPayload struct {
	VLEI string `json:"vlei"`
	OOBI string `json:"oobi"`
}

// AddRootOfTrustRequest builds the root-of-trust registration call.
func (a *Adapter) AddRootOfTrustRequest(aid, vlei, oobi string) (httpclient.Request, error) {
	body, err := json.Marshal(rootOfTrustPayload{VLEI: vlei, OOBI: oobi})
	if err != nil {
		return httpclient.Request{}, fmt.Errorf("marshal root of trust payload: %w", err)
	}
	return httpclient.Request{
		URL:     a.baseURL + rootOfTrustPath + url.PathEscape(aid),
		Method:  http.MethodPost,
		Headers: map[string]string{headerContentType: contentTypeJSON},
		Body:    body,
	}, nil
}

// AddRootOfTrust registers a root-of-trust credential and its OOBI.
func (a *Adapter) AddRootOfTrust(ctx context.Context, aid, vlei, oobi string) (httpclient.Response, error) {
	a.log.InfoObj("add root of trust request sent", "root_of_trust_request", map[string]any{
		"aid":  aid,
		"oobi": oobi,
	})
	req, err := a.AddRootOfTrustRequest(aid, vlei, oobi)
	if err != nil {
		return nil, err
	}
	return a.send(ctx, "add root of trust", req)
}

// StatusRequest builds the topology status query.
func (a *Adapter) StatusRequest() httpclient.Request {
	return httpclient.Request{URL: a.baseURL + statusPath, Method: http.MethodGet}
}

// Status queries the verifier's status endpoint.
func (a *Adapter) Status(ctx context.Context) (httpclient.Response, error) {
	return a.send(ctx, "status", a.StatusRequest())
}

// VerifierURLRequest builds the per-AID backend lookup used in router mode.
func (a *Adapter) VerifierURLRequest(aid string) httpclient.Request {
	return httpclient.Request{
		URL:    a.baseURL + verifierURLPath + url.PathEscape(aid),
		Method: http.MethodGet,
	}
}

func (a *Adapter) send(ctx context.Context, op string, req httpclient.Request) (httpclient.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := a.http.Do(ctx, req)
	if err != nil {
		a.log.ErrorObj("verifier request failed", "verifier_error", map[string]any{
			"operation": op,
			"method":    req.Method,
			"url":       req.URL,
			"error":     err.Error(),
		})
		return nil, fmt.Errorf("%s request: %w", op, err)
	}
	a.log.DebugObj("verifier responded", "verifier_response", map[string]any{
		"operation": op,
		"status":    res.StatusCode(),
	})
	return res, nil
}
