package publishers

import (
	"context"
	"errors"
	"testing"
)

type stubPublisher struct {
	id    string
	typ   string
	err   error
	calls int
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(context.Context, Event) error {
	s.calls++
	return s.err
}

func TestFanoutPublishAggregatesErrors(t *testing.T) {
	fanout := NewFanout([]Publisher{
		&stubPublisher{id: "ok", typ: "http"},
		&stubPublisher{id: "bad", typ: "http", err: errors.New("failed")},
	})

	count, err := fanout.Publish(context.Background(), Event{})
	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
}

type closingPublisher struct {
	stubPublisher
	closed bool
}

func (c *closingPublisher) Close() error {
	c.closed = true
	return nil
}

func TestFanoutCloseReleasesClosers(t *testing.T) {
	closer := &closingPublisher{stubPublisher: stubPublisher{id: "ps", typ: TypePubSub}}
	fanout := NewFanout([]Publisher{&stubPublisher{id: "h", typ: TypeHTTP}, closer, nil})
	if fanout.Size() != 2 {
		t.Fatalf("expected nil publishers to be dropped, got %d", fanout.Size())
	}
	if err := fanout.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !closer.closed {
		t.Fatalf("expected closer to be closed")
	}
}

func TestBuildAllUnknownTypeFails(t *testing.T) {
	_, err := BuildAll(context.Background(), DefaultRegistry(), []PublisherConfig{{ID: "k", Type: "kafka"}}, nil)
	if err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{
		{ID: "http", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://example.com"}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 {
		t.Fatalf("expected 1 publisher, got %d", len(pubs))
	}
}

func TestBuildAllClosesBuiltPublishersOnFailure(t *testing.T) {
	built := &closingPublisher{stubPublisher: stubPublisher{id: "ps", typ: TypePubSub}}
	reg := NewRegistry(map[string]Builder{
		TypePubSub: func(context.Context, PublisherConfig, Logger) (Publisher, error) { return built, nil },
		TypeHTTP: func(context.Context, PublisherConfig, Logger) (Publisher, error) {
			return nil, errors.New("bad webhook")
		},
	})

	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{
		{ID: "ps", Type: TypePubSub},
		{ID: "hook", Type: TypeHTTP},
	}, nil)
	if err == nil {
		t.Fatalf("expected build error")
	}
	if pubs != nil {
		t.Fatalf("expected no publishers on failure, got %d", len(pubs))
	}
	if !built.closed {
		t.Fatalf("expected already built publisher to be closed")
	}
}

func TestFanoutHonoursOperationFilters(t *testing.T) {
	all := &stubPublisher{id: "all", typ: TypeHTTP}
	authOnly := &closingPublisher{stubPublisher: stubPublisher{id: "auth", typ: TypePubSub}}
	reg := NewRegistry(map[string]Builder{
		TypeHTTP:   func(context.Context, PublisherConfig, Logger) (Publisher, error) { return all, nil },
		TypePubSub: func(context.Context, PublisherConfig, Logger) (Publisher, error) { return authOnly, nil },
	})
	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{
		{ID: "all", Type: TypeHTTP},
		{ID: "auth", Type: TypePubSub, Operations: []string{OperationAuthorization}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	fanout := NewFanout(pubs)

	delivered, err := fanout.Publish(context.Background(), Event{Operation: OperationPresentation})
	if err != nil || delivered != 1 {
		t.Fatalf("presentation: delivered=%d err=%v", delivered, err)
	}
	delivered, err = fanout.Publish(context.Background(), Event{Operation: OperationAuthorization})
	if err != nil || delivered != 2 {
		t.Fatalf("authorization: delivered=%d err=%v", delivered, err)
	}
	if all.calls != 2 || authOnly.calls != 1 {
		t.Fatalf("unexpected calls all=%d auth=%d", all.calls, authOnly.calls)
	}

	if err := fanout.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !authOnly.closed {
		t.Fatalf("expected filtered publisher to be closed through the filter")
	}
}
