package verifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAuthorizationRequestDirectModeUsesBaseURL(t *testing.T) {
	transport := &fakeTransport{responses: map[string]fakeResponse{
		"http://v/status/": {status: 200, body: `{"mode":"direct"}`},
	}}
	a, err := NewAdapter("http://v", WithHTTPClient(transport))
	require.NoError(t, err)

	req, err := a.BuildAuthorizationRequest(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, "http://v/authorizations/A1", req.URL)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "application/json", req.Headers["Content-Type"])
	assert.Equal(t, []string{"http://v/status/"}, transport.urls())
}

func TestBuildAuthorizationRequestRouterModeUsesResolvedURL(t *testing.T) {
	transport := &fakeTransport{responses: map[string]fakeResponse{
		"http://v/status/":                     {status: 200, body: `{"mode":"router"}`},
		"http://v/get_verifier_url_for_aid/A1": {status: 200, body: `{"verifier_url":"http://backend2"}`},
	}}
	a, err := NewAdapter("http://v", WithHTTPClient(transport))
	require.NoError(t, err)

	req, err := a.BuildAuthorizationRequest(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, "http://backend2/authorizations/A1", req.URL)
	assert.Equal(t, []string{"http://v/status/", "http://v/get_verifier_url_for_aid/A1"}, transport.urls())
}

func TestUnknownModeIsTreatedAsDirect(t *testing.T) {
	transport := &fakeTransport{responses: map[string]fakeResponse{
		"http://v/status/": {status: 200, body: `{"status":"ok"}`},
	}}
	a, err := NewAdapter("http://v", WithHTTPClient(transport))
	require.NoError(t, err)

	mode, err := a.Mode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeDirect, mode)
}

func TestResolutionIsRepeatedWithoutCache(t *testing.T) {
	transport := &fakeTransport{responses: map[string]fakeResponse{
		"http://v/status/":                     {status: 200, body: `{"mode":"router"}`},
		"http://v/get_verifier_url_for_aid/A1": {status: 200, body: `{"verifier_url":"http://backend2/"}`},
	}}
	a, err := NewAdapter("http://v", WithHTTPClient(transport))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		base, err := a.ResolveBaseURL(context.Background(), "A1")
		require.NoError(t, err)
		assert.Equal(t, "http://backend2", base)
	}
	assert.Len(t, transport.urls(), 4)
}

func TestRouteCacheSkipsResolutionUntilForgotten(t *testing.T) {
	transport := &fakeTransport{responses: map[string]fakeResponse{
		"http://v/status/":                     {status: 200, body: `{"mode":"router"}`},
		"http://v/get_verifier_url_for_aid/A1": {status: 200, body: `{"verifier_url":"http://backend2"}`},
	}}
	cache := &mapRouteCache{}
	a, err := NewAdapter("http://v", WithHTTPClient(transport), WithRouteCache(cache))
	require.NoError(t, err)

	_, err = a.ResolveBaseURL(context.Background(), "A1")
	require.NoError(t, err)
	base, err := a.ResolveBaseURL(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, "http://backend2", base)
	assert.Len(t, transport.urls(), 2)

	require.NoError(t, a.ForgetRoute("A1"))
	_, err = a.ResolveBaseURL(context.Background(), "A1")
	require.NoError(t, err)
	assert.Len(t, transport.urls(), 4)
}

func TestRouteCacheFailureFallsBackToNetwork(t *testing.T) {
	transport := &fakeTransport{responses: map[string]fakeResponse{
		"http://v/status/": {status: 200, body: `{"mode":"direct"}`},
	}}
	a, err := NewAdapter("http://v", WithHTTPClient(transport), WithRouteCache(&mapRouteCache{err: errors.New("disk gone")}))
	require.NoError(t, err)

	base, err := a.ResolveBaseURL(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, "http://v", base)
}

func TestDirectModeIsNotCached(t *testing.T) {
	transport := &fakeTransport{responses: map[string]fakeResponse{
		"http://v/status/": {status: 200, body: `{"mode":"direct"}`},
	}}
	cache := &mapRouteCache{}
	a, err := NewAdapter("http://v", WithHTTPClient(transport), WithRouteCache(cache))
	require.NoError(t, err)

	_, err = a.ResolveBaseURL(context.Background(), "A1")
	require.NoError(t, err)
	assert.Empty(t, cache.entries)
}

func TestResolutionFailuresPropagate(t *testing.T) {
	cases := map[string]map[string]fakeResponse{
		"status error": {
			"http://v/status/": {status: 500, body: `{"msg":"down"}`},
		},
		"status not json": {
			"http://v/status/": {status: 200, body: `<html>`},
		},
		"missing verifier url": {
			"http://v/status/":                     {status: 200, body: `{"mode":"router"}`},
			"http://v/get_verifier_url_for_aid/A1": {status: 200, body: `{}`},
		},
		"relative verifier url": {
			"http://v/status/":                     {status: 200, body: `{"mode":"router"}`},
			"http://v/get_verifier_url_for_aid/A1": {status: 200, body: `{"verifier_url":"backend2"}`},
		},
		"lookup not found": {
			"http://v/status/":                     {status: 200, body: `{"mode":"router"}`},
			"http://v/get_verifier_url_for_aid/A1": {status: 404, body: `{"msg":"unknown aid"}`},
		},
	}
	for name, responses := range cases {
		t.Run(name, func(t *testing.T) {
			a, err := NewAdapter("http://v", WithHTTPClient(&fakeTransport{responses: responses}))
			require.NoError(t, err)

			_, err = a.BuildAuthorizationRequest(context.Background(), "A1")
			require.Error(t, err)
		})
	}
}

func TestMissingVerifierURLIsSentinel(t *testing.T) {
	transport := &fakeTransport{responses: map[string]fakeResponse{
		"http://v/get_verifier_url_for_aid/A1": {status: 200, body: `{"verifier_url":""}`},
	}}
	a, err := NewAdapter("http://v", WithHTTPClient(transport))
	require.NoError(t, err)

	_, err = a.VerifierURLForAID(context.Background(), "A1")
	assert.ErrorIs(t, err, ErrMissingVerifierURL)
}

func TestResolutionTransportErrorPropagates(t *testing.T) {
	a, err := NewAdapter("http://v", WithHTTPClient(&fakeTransport{err: errors.New("dial tcp: refused")}))
	require.NoError(t, err)

	_, err = a.ResolveBaseURL(context.Background(), "A1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status request")
}

func TestUnusableVerifierURLIsNotCached(t *testing.T) {
	transport := &fakeTransport{responses: map[string]fakeResponse{
		"http://v/status/":                     {status: 200, body: `{"mode":"router"}`},
		"http://v/get_verifier_url_for_aid/A1": {status: 200, body: `{"verifier_url":"backend2"}`},
	}}
	cache := &mapRouteCache{}
	a, err := NewAdapter("http://v", WithHTTPClient(transport), WithRouteCache(cache))
	require.NoError(t, err)

	req, err := a.BuildAuthorizationRequest(context.Background(), "A1")
	require.ErrorIs(t, err, ErrInvalidBaseURL)
	assert.Empty(t, req.URL)
	assert.Empty(t, cache.entries)
}
