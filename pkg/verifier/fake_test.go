package verifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/samvad-hq/vlei-verifier-client/pkg/httpclient"
)

type fakeResponse struct {
	status int
	body   string
}

func (r fakeResponse) Body() []byte    { return []byte(r.body) }
func (r fakeResponse) StatusCode() int { return r.status }

// fakeTransport answers by URL and records every request it sees.
type fakeTransport struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	err       error
	requests  []httpclient.Request
}

func (f *fakeTransport) Get(ctx context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	return f.Do(ctx, httpclient.Request{URL: url, Method: "GET", Headers: headers})
}

func (f *fakeTransport) Do(_ context.Context, req httpclient.Request) (httpclient.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	res, ok := f.responses[req.URL]
	if !ok {
		return nil, fmt.Errorf("no response for %s", req.URL)
	}
	return res, nil
}

func (f *fakeTransport) urls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.URL)
	}
	return out
}

type mapRouteCache struct {
	mu      sync.Mutex
	entries map[string]string
	err     error
}

func (m *mapRouteCache) Lookup(aid string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.entries[aid]
	return v, ok, nil
}

func (m *mapRouteCache) Remember(aid, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]string)
	}
	m.entries[aid] = url
	return nil
}

func (m *mapRouteCache) Forget(aid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, aid)
	return nil
}
