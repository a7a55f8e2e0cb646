// Package verifier is a client for the vLEI verifier service. The Adapter
// builds and sends one request per endpoint; the Client wraps every answer
// in a uniform Response.
package verifier

import (
	"context"

	"github.com/samvad-hq/vlei-verifier-client/pkg/httpclient"
)

// Client is the facade over Adapter that decodes verifier answers.
type Client struct {
	adapter *Adapter
}

// NewClient creates a client for the verifier at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	adapter, err := NewAdapter(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{adapter: adapter}, nil
}

// Adapter exposes the underlying request builder.
func (c *Client) Adapter() *Adapter { return c.adapter }

// BuildAuthorizationRequest resolves the serving verifier for aid and returns
// the request to send with Authorization.
func (c *Client) BuildAuthorizationRequest(ctx context.Context, aid string) (httpclient.Request, error) {
	return c.adapter.BuildAuthorizationRequest(ctx, aid)
}

// Authorization sends a built authorization request for aid.
func (c *Client) Authorization(ctx context.Context, aid string, req httpclient.Request) (*Response, error) {
	return decode(c.adapter.Authorization(ctx, aid, req))
}

// CheckAuthorization builds and sends the authorization check for aid.
func (c *Client) CheckAuthorization(ctx context.Context, aid string) (*Response, error) {
	req, err := c.adapter.BuildAuthorizationRequest(ctx, aid)
	if err != nil {
		return nil, err
	}
	return c.Authorization(ctx, aid, req)
}

// Presentation submits the CESR encoded credential vlei under said.
func (c *Client) Presentation(ctx context.Context, said, vlei string) (*Response, error) {
	return decode(c.adapter.Presentation(ctx, said, vlei))
}

// VerifySignedHeaders checks a signature sig over the serialized headers ser.
func (c *Client) VerifySignedHeaders(ctx context.Context, aid, sig, ser string) (*Response, error) {
	return decode(c.adapter.VerifySignedHeaders(ctx, aid, sig, ser))
}

// VerifySignature checks a raw signature made by signerAID.
func (c *Client) VerifySignature(ctx context.Context, signature, signerAID, nonPrefixedDigest string) (*Response, error) {
	return decode(c.adapter.VerifySignature(ctx, signature, signerAID, nonPrefixedDigest))
}

// AddRootOfTrust registers vlei as a root of trust for aid, introduced by oobi.
func (c *Client) AddRootOfTrust(ctx context.Context, aid, vlei, oobi string) (*Response, error) {
	return decode(c.adapter.AddRootOfTrust(ctx, aid, vlei, oobi))
}

// Status returns the verifier's status document.
func (c *Client) Status(ctx context.Context) (*Response, error) {
	return decode(c.adapter.Status(ctx))
}

// ResolveBaseURL reports which verifier serves authorization checks for aid.
func (c *Client) ResolveBaseURL(ctx context.Context, aid string) (string, error) {
	return c.adapter.ResolveBaseURL(ctx, aid)
}

// ForgetRoute invalidates a cached router resolution for aid.
func (c *Client) ForgetRoute(aid string) error {
	return c.adapter.ForgetRoute(aid)
}

func decode(res httpclient.Response, err error) (*Response, error) {
	if err != nil {
		return nil, err
	}
	return newResponse(res), nil
}
