package verifier

import (
	"encoding/json"

	"github.com/samvad-hq/vlei-verifier-client/pkg/httpclient"
)

// Response is the uniform result of a verifier call.
//
// Code is always the HTTP status. Message holds the body's "msg" string when
// HasMessage is true. Body is the decoded JSON, or nil when the payload was
// not JSON; Raw keeps the bytes either way.
type Response struct {
	Code       int    `json:"code"`
	Message    string `json:"message,omitempty"`
	HasMessage bool   `json:"has_message"`
	Body       any    `json:"body"`
	Raw        []byte `json:"-"`
}

// OK reports whether the verifier answered with a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Code >= 200 && r.Code < 300
}

// newResponse decodes the transport response without failing on malformed bodies.
func newResponse(res httpclient.Response) *Response {
	raw := res.Body()
	out := &Response{Code: res.StatusCode(), Raw: raw}

	var body any
	if len(raw) == 0 || json.Unmarshal(raw, &body) != nil {
		return out
	}
	out.Body = body

	if obj, ok := body.(map[string]any); ok {
		if msg, ok := obj["msg"].(string); ok {
			out.Message = msg
			out.HasMessage = true
		}
	}
	return out
}
