package publishers

import (
	"time"

	"github.com/samvad-hq/vlei-verifier-client/pkg/verifier"
)

// Event represents a verifier outcome published downstream.
type Event struct {
	Operation  string    `json:"operation"`
	Identifier string    `json:"identifier"`
	Code       int       `json:"code"`
	Message    string    `json:"message,omitempty"`
	HasMessage bool      `json:"has_message"`
	Body       any       `json:"body,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewEvent constructs an Event for the given operation and verifier response.
func NewEvent(operation, identifier string, res *verifier.Response) Event {
	evt := Event{
		Operation:  operation,
		Identifier: identifier,
		RecordedAt: time.Now().UTC(),
	}
	if res != nil {
		evt.Code = res.Code
		evt.Message = res.Message
		evt.HasMessage = res.HasMessage
		evt.Body = res.Body
	}
	return evt
}

// attributes returns the non-empty routing attributes attached to queue and topic messages.
func (e Event) attributes() map[string]string {
	attrs := make(map[string]string, 2)
	if e.Operation != "" {
		attrs["operation"] = e.Operation
	}
	if e.Identifier != "" {
		attrs["identifier"] = e.Identifier
	}
	return attrs
}
