package http

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// RestyTransport adapts a resty client to Transport. Resty's own retry
// support is left disabled.
type RestyTransport struct {
	client *resty.Client
}

// NewRestyTransport creates a resty-backed transport with the given timeout.
func NewRestyTransport(timeout time.Duration) *RestyTransport {
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetRetryCount(0)
	c.SetAllowGetMethodPayload(true)
	return &RestyTransport{client: c}
}

// NewInsecureRestyTransport disables TLS certificate verification.
// WARNING: This should only be used for testing purposes.
func NewInsecureRestyTransport(timeout time.Duration) *RestyTransport {
	t := NewRestyTransport(timeout)
	t.client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	return t
}

// NewRestyTransportWithClient wraps an existing resty client.
func NewRestyTransportWithClient(client *resty.Client) *RestyTransport {
	return &RestyTransport{client: client}
}

// Send replays the built request through resty.
func (t *RestyTransport) Send(ctx context.Context, req *http.Request) (*Reply, error) {
	r := t.client.R().SetContext(ctx)
	r.Header = req.Header.Clone()

	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		payload, err := io.ReadAll(body)
		_ = body.Close()
		if err != nil {
			return nil, err
		}
		r.SetBody(payload)
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.URL.String())
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.RawResponse == nil {
		return nil, nil
	}

	return &Reply{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Header:     resp.Header(),
		Body:       resp.Body(),
		Timing: TimingInfo{
			StartTime: start,
			TotalTime: resp.Time(),
		},
	}, nil
}
