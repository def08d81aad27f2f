package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Request describes a single call before it is turned into a wire request.
type Request struct {
	Method  Method
	URL     string
	Headers []Header
	Query   []QueryItem

	// ExpectedStatus is the one status code accepted as success. Zero means 200.
	ExpectedStatus int

	body    any
	hasBody bool
}

// RequestOption mutates a Request. Endpoints accept these per call.
type RequestOption func(*Request)

// NewRequest creates a new request for the given method and address.
// The address may be absolute or relative to the client's base URL.
func NewRequest(method Method, rawURL string) *Request {
	return &Request{
		Method: method,
		URL:    rawURL,
	}
}

// WithHeader appends a header. Duplicate keys are all sent.
func (r *Request) WithHeader(key, value string) *Request {
	r.Headers = append(r.Headers, Header{Key: key, Value: value})
	return r
}

// WithQueryParam appends a query item. Once any item is present the
// address's own query string is discarded.
func (r *Request) WithQueryParam(key, value string) *Request {
	r.Query = append(r.Query, QueryItem{Key: key, Value: value})
	return r
}

// WithBody attaches a value that is sent as JSON.
func (r *Request) WithBody(body any) *Request {
	r.body = body
	r.hasBody = true
	return r
}

// WithExpectedStatus sets the status code the caller accepts.
func (r *Request) WithExpectedStatus(code int) *Request {
	r.ExpectedStatus = code
	return r
}

// Apply runs the options against r.
func (r *Request) Apply(opts ...RequestOption) *Request {
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// HasBody reports whether a body was attached.
func (r *Request) HasBody() bool { return r.hasBody }

// Body returns the attached body value, if any.
func (r *Request) Body() any { return r.body }

func (r *Request) expectedStatus() int {
	if r.ExpectedStatus == 0 {
		return http.StatusOK
	}
	return r.ExpectedStatus
}

// AddHeader is a RequestOption appending a header.
func AddHeader(key, value string) RequestOption {
	return func(r *Request) { r.WithHeader(key, value) }
}

// AddQuery is a RequestOption appending a query item.
func AddQuery(key, value string) RequestOption {
	return func(r *Request) { r.WithQueryParam(key, value) }
}

// ExpectStatus is a RequestOption overriding the expected status.
func ExpectStatus(code int) RequestOption {
	return func(r *Request) { r.ExpectedStatus = code }
}

// PathParam replaces "{name}" in the address with the escaped value.
func PathParam(name, value string) RequestOption {
	return func(r *Request) {
		r.URL = strings.ReplaceAll(r.URL, "{"+name+"}", url.PathEscape(value))
	}
}

// Build constructs the wire request. Defaults are sent after Accept and before
// the request's own headers.
func (r *Request) Build(ctx context.Context, baseURL string, defaults []Header) (*http.Request, error) {
	method := r.Method
	if !method.Valid() {
		return nil, r.fail(KindInvalidRequest, fmt.Errorf("unsupported method %q", string(method)))
	}

	reqURL, err := r.resolveURL(baseURL)
	if err != nil {
		return nil, r.fail(KindInvalidRequest, err)
	}

	if len(r.Query) > 0 {
		rawQuery, err := encodeQuery(r.Query)
		if err != nil {
			return nil, r.fail(KindInvalidQueryParams, err)
		}
		reqURL.RawQuery = rawQuery
		reqURL.ForceQuery = false
	}

	var bodyReader io.Reader
	if r.hasBody {
		payload, err := json.MarshalIndent(r.body, "", "  ")
		if err != nil {
			return nil, r.fail(KindInvalidRequestPayload, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, method.String(), reqURL.String(), bodyReader)
	if err != nil {
		return nil, r.fail(KindInvalidRequest, err)
	}

	req.Header.Set("Accept", string(ContentTypeJSON))
	if r.hasBody {
		req.Header.Set("Content-Type", string(ContentTypeJSON))
	}
	for _, h := range defaults {
		req.Header.Add(h.Key, h.Value)
	}
	for _, h := range r.Headers {
		req.Header.Add(h.Key, h.Value)
	}

	return req, nil
}

// resolveURL joins a relative address onto baseURL the same way paths are
// concatenated elsewhere: one slash between the two halves.
func (r *Request) resolveURL(baseURL string) (*url.URL, error) {
	raw := strings.TrimSpace(r.URL)
	target, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if target.IsAbs() {
		if target.Host == "" {
			return nil, fmt.Errorf("address %q has no host", raw)
		}
		return target, nil
	}

	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("relative address %q requires a base URL", raw)
	}
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, errors.New("base URL must be absolute")
	}

	joined := *base
	if target.Path != "" {
		joined.Path = joinPath(base.Path, target.Path)
		joined.RawPath = joinPath(base.EscapedPath(), target.EscapedPath())
	}
	if target.RawQuery != "" {
		joined.RawQuery = target.RawQuery
	}
	if target.Fragment != "" {
		joined.Fragment = target.Fragment
	}
	return &joined, nil
}

func joinPath(base, rel string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(rel, "/")
}

// encodeQuery keeps the caller's order, unlike url.Values.Encode which sorts by key.
func encodeQuery(items []QueryItem) (string, error) {
	var b strings.Builder
	for i, item := range items {
		if item.Key == "" {
			return "", fmt.Errorf("query item %d has an empty key", i)
		}
		if !utf8.ValidString(item.Key) || !utf8.ValidString(item.Value) {
			return "", fmt.Errorf("query item %q is not valid UTF-8", item.Key)
		}
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(item.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(item.Value))
	}
	return b.String(), nil
}

func (r *Request) fail(kind Kind, cause error) *Error {
	return &Error{
		Kind:   kind,
		Method: r.Method.String(),
		URL:    r.URL,
		Cause:  cause,
	}
}
