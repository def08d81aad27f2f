package http

import "context"

// Endpoint is a typed definition of one API operation: Req is the body it
// accepts, Res the body it returns. Endpoints are immutable and may be
// shared between goroutines.
type Endpoint[Req, Res any] struct {
	Method  Method
	Path    string
	Status  int
	Headers []Header

	expect Expectation[Res]
	// bodyless endpoints never attach a payload, whatever Send or Go is given.
	bodyless bool
}

// NewEndpoint defines an operation that answers with a JSON body of type Res.
func NewEndpoint[Req, Res any](method Method, path string, status int, headers ...Header) *Endpoint[Req, Res] {
	return &Endpoint[Req, Res]{
		Method:  method,
		Path:    path,
		Status:  status,
		Headers: headers,
		expect:  JSON[Res](),
	}
}

// NewCommand defines an operation that answers with no body.
func NewCommand[Req any](method Method, path string, status int, headers ...Header) *Endpoint[Req, Empty] {
	return &Endpoint[Req, Empty]{
		Method:  method,
		Path:    path,
		Status:  status,
		Headers: headers,
		expect:  Nothing(),
	}
}

// NewQuery defines an operation that takes no request body and answers with
// a JSON body of type Res.
func NewQuery[Res any](method Method, path string, status int, headers ...Header) *Endpoint[Empty, Res] {
	e := NewEndpoint[Empty, Res](method, path, status, headers...)
	e.bodyless = true
	return e
}

// NewAction defines an operation with no body in either direction.
func NewAction(method Method, path string, status int, headers ...Header) *Endpoint[Empty, Empty] {
	e := NewCommand[Empty](method, path, status, headers...)
	e.bodyless = true
	return e
}

// SendsBody reports whether Send and Go attach their body argument.
func (e *Endpoint[Req, Res]) SendsBody() bool { return !e.bodyless }

// Expectation returns what the endpoint expects back.
func (e *Endpoint[Req, Res]) Expectation() Expectation[Res] { return e.expect }

// NewRequest returns a fresh Request for the endpoint with opts applied.
func (e *Endpoint[Req, Res]) NewRequest(opts ...RequestOption) *Request {
	req := NewRequest(e.Method, e.Path)
	req.ExpectedStatus = e.Status
	req.Headers = append(req.Headers, e.Headers...)
	return req.Apply(opts...)
}

// Call executes the endpoint without a request body.
func (e *Endpoint[Req, Res]) Call(ctx context.Context, c *Client, opts ...RequestOption) (Res, error) {
	return Execute(ctx, c, e.NewRequest(opts...), e.expect)
}

// Send executes the endpoint with body encoded as JSON. Bodyless endpoints
// ignore body.
func (e *Endpoint[Req, Res]) Send(ctx context.Context, c *Client, body Req, opts ...RequestOption) (Res, error) {
	req := e.NewRequest(opts...)
	if !e.bodyless {
		req.WithBody(body)
	}
	return Execute(ctx, c, req, e.expect)
}

// Go executes the endpoint asynchronously. A nil body, or a bodyless
// endpoint, sends no payload.
func (e *Endpoint[Req, Res]) Go(ctx context.Context, c *Client, body *Req, opts ...RequestOption) <-chan Outcome[Res] {
	req := e.NewRequest(opts...)
	if body != nil && !e.bodyless {
		req.WithBody(*body)
	}
	return Go(ctx, c, req, e.expect)
}
