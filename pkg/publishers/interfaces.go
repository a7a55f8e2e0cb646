package publishers

import "context"

// Publisher sends events to a downstream sink (SQS, SNS, Pub/Sub, HTTP).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// OperationFilter is implemented by publishers restricted to a subset of
// verifier operations.
type OperationFilter interface {
	Accepts(operation string) bool
}
