package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Expectation declares what the caller wants back: a decoded body of type T,
// or no body at all. It is chosen statically by the caller. The zero value
// requires a body and decodes it as JSON; only Nothing accepts an empty reply.
type Expectation[T any] struct {
	empty  bool
	decode func([]byte) (T, error)
}

// JSON expects a body and decodes it into T.
func JSON[T any]() Expectation[T] {
	return Expectation[T]{decode: decodeJSON[T]}
}

// Nothing expects an empty body; any payload is an error.
func Nothing() Expectation[Empty] {
	return Expectation[Empty]{empty: true}
}

// WantsBody reports whether the expectation requires a response body.
func (e Expectation[T]) WantsBody() bool { return !e.empty }

func (e Expectation[T]) decodeBody(body []byte) (T, error) {
	if e.decode == nil {
		return decodeJSON[T](body)
	}
	return e.decode(body)
}

func decodeJSON[T any](body []byte) (T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Outcome is the single result of a call.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Execute builds req, sends it over the client's transport and classifies
// the reply against the expected status and want.
func Execute[T any](ctx context.Context, c *Client, req *Request, want Expectation[T]) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}

	httpReq, err := req.Build(ctx, c.baseURL, c.headers)
	if err != nil {
		c.logFailure(err)
		return zero, err
	}
	c.logBuilt(httpReq)

	start := time.Now()
	reply, err := c.transport.Send(ctx, httpReq)
	dur := time.Since(start)
	for _, h := range c.after {
		if h != nil {
			h(httpReq, reply, err, dur)
		}
	}

	value, err := classify(httpReq, reply, err, req.expectedStatus(), want)
	if err != nil {
		c.logFailure(err)
		return zero, err
	}
	return value, nil
}

// Go runs Execute on its own goroutine. The returned channel receives exactly
// one Outcome and is then closed.
func Go[T any](ctx context.Context, c *Client, req *Request, want Expectation[T]) <-chan Outcome[T] {
	ch := make(chan Outcome[T], 1)
	go func() {
		defer close(ch)
		value, err := Execute(ctx, c, req, want)
		ch <- Outcome[T]{Value: value, Err: err}
	}()
	return ch
}

// Dispatch runs Execute on its own goroutine and calls done exactly once with the result.
func Dispatch[T any](ctx context.Context, c *Client, req *Request, want Expectation[T], done func(T, error)) {
	go func() {
		value, err := Execute(ctx, c, req, want)
		if done != nil {
			done(value, err)
		}
	}()
}

func classify[T any](req *http.Request, reply *Reply, sendErr error, expected int, want Expectation[T]) (T, error) {
	var zero T
	fail := func(kind Kind, cause error) *Error {
		return &Error{
			Kind:   kind,
			Method: req.Method,
			URL:    req.URL.String(),
			Cause:  cause,
		}
	}

	if sendErr != nil {
		return zero, fail(KindTransport, sendErr)
	}
	if reply == nil || reply.StatusCode == 0 {
		return zero, fail(KindInvalidResponse, errors.New("response has no status line"))
	}
	if reply.StatusCode != expected {
		e := fail(KindUnexpectedStatusCode, nil)
		e.StatusCode = reply.StatusCode
		e.Description = http.StatusText(reply.StatusCode)
		if len(reply.Body) > 0 {
			e.RawBody = reply.Body
		}
		return zero, e
	}

	empty := len(bytes.TrimSpace(reply.Body)) == 0
	if want.empty {
		if !empty {
			e := fail(KindUnexpectedData, nil)
			e.RawBody = reply.Body
			return zero, e
		}
		return zero, nil
	}

	if empty {
		return zero, fail(KindNoData, io.ErrUnexpectedEOF)
	}
	value, err := want.decodeBody(reply.Body)
	if err != nil {
		e := fail(KindDecoding, err)
		e.RawBody = reply.Body
		return zero, e
	}
	return value, nil
}

func (c *Client) logBuilt(req *http.Request) {
	if ce := c.logger.Check(zap.DebugLevel, "request built"); ce != nil {
		fields := []zap.Field{
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Any("headers", req.Header),
		}
		if req.GetBody != nil {
			if rc, err := req.GetBody(); err == nil {
				payload, _ := io.ReadAll(rc)
				_ = rc.Close()
				fields = append(fields, zap.ByteString("body", payload))
			}
		}
		ce.Write(fields...)
	}
}

func (c *Client) logFailure(err error) {
	he, ok := AsError(err)
	if !ok {
		c.logger.Error("request failed", zap.Error(err))
		return
	}
	fields := []zap.Field{
		zap.Stringer("kind", he.Kind),
		zap.String("method", he.Method),
		zap.String("url", he.URL),
	}
	if he.StatusCode != 0 {
		fields = append(fields, zap.Int("status", he.StatusCode))
	}
	if he.Kind == KindDecoding || he.Kind == KindUnexpectedData {
		fields = append(fields, zap.ByteString("raw_body", he.RawBody))
	}
	if he.Cause != nil {
		fields = append(fields, zap.NamedError("cause", he.Cause))
	}
	c.logger.Error("request failed", fields...)
}
