package publishers

import (
	"context"
	"io"
	"strings"
)

// operationFilter restricts a publisher to the operations listed in its config.
type operationFilter struct {
	Publisher
	operations map[string]struct{}
}

func newOperationFilter(pub Publisher, operations []string) *operationFilter {
	set := make(map[string]struct{}, len(operations))
	for _, op := range operations {
		set[normalizeOperation(op)] = struct{}{}
	}
	return &operationFilter{Publisher: pub, operations: set}
}

func (f *operationFilter) Accepts(operation string) bool {
	_, ok := f.operations[normalizeOperation(operation)]
	return ok
}

func (f *operationFilter) Publish(ctx context.Context, evt Event) error {
	if !f.Accepts(evt.Operation) {
		return nil
	}
	return f.Publisher.Publish(ctx, evt)
}

// Close releases the wrapped publisher when it holds connections.
func (f *operationFilter) Close() error {
	if c, ok := f.Publisher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func normalizeOperation(op string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(op)), "-", "_")
}
