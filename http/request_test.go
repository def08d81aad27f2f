package http

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Build(t *testing.T) {
	tests := []struct {
		name           string
		method         Method
		url            string
		baseURL        string
		query          []QueryItem
		expectedURL    string
		expectedMethod string
	}{
		{
			name:           "Simple GET request",
			method:         MethodGet,
			url:            "/users",
			baseURL:        "https://api.example.com",
			expectedURL:    "https://api.example.com/users",
			expectedMethod: "GET",
		},
		{
			name:           "Zero method defaults to GET",
			url:            "https://api.example.com/users",
			expectedURL:    "https://api.example.com/users",
			expectedMethod: "GET",
		},
		{
			name:           "Base URL with path prefix and trailing slash",
			method:         MethodDelete,
			url:            "users/7",
			baseURL:        "https://api.example.com/v1/",
			expectedURL:    "https://api.example.com/v1/users/7",
			expectedMethod: "DELETE",
		},
		{
			name:           "Absolute address ignores base URL",
			method:         MethodGet,
			url:            "https://other.example.com/ping",
			baseURL:        "https://api.example.com",
			expectedURL:    "https://other.example.com/ping",
			expectedMethod: "GET",
		},
		{
			name:           "Query keeps caller order",
			method:         MethodGet,
			url:            "/search",
			baseURL:        "https://api.example.com",
			query:          []QueryItem{{"page", "2"}, {"limit", "10"}, {"page", "3"}},
			expectedURL:    "https://api.example.com/search?page=2&limit=10&page=3",
			expectedMethod: "GET",
		},
		{
			name:           "Query replaces existing query string",
			method:         MethodGet,
			url:            "https://api.example.com/search?old=1&stale=yes",
			query:          []QueryItem{{"b", "2"}, {"a", "1"}},
			expectedURL:    "https://api.example.com/search?b=2&a=1",
			expectedMethod: "GET",
		},
		{
			name:           "Query replacement keeps path and fragment",
			method:         MethodGet,
			url:            "https://api.example.com/a/b?x=0#frag",
			query:          []QueryItem{{"x", "1"}},
			expectedURL:    "https://api.example.com/a/b?x=1#frag",
			expectedMethod: "GET",
		},
		{
			name:           "Query values are escaped",
			method:         MethodGet,
			url:            "https://api.example.com/search",
			query:          []QueryItem{{"q", "a b&c"}},
			expectedURL:    "https://api.example.com/search?q=a+b%26c",
			expectedMethod: "GET",
		},
		{
			name:           "Existing query kept without query items",
			method:         MethodGet,
			url:            "https://api.example.com/search?keep=1",
			expectedURL:    "https://api.example.com/search?keep=1",
			expectedMethod: "GET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest(tt.method, tt.url)
			for _, q := range tt.query {
				req.WithQueryParam(q.Key, q.Value)
			}

			httpReq, err := req.Build(context.Background(), tt.baseURL, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedMethod, httpReq.Method)
			assert.Equal(t, tt.expectedURL, httpReq.URL.String())
			assert.Equal(t, "application/json", httpReq.Header.Get("Accept"))
			assert.Empty(t, httpReq.Header.Get("Content-Type"))
			assert.Nil(t, httpReq.Body)
		})
	}
}

func TestRequest_QueryStringEqualsSuppliedItems(t *testing.T) {
	items := []QueryItem{{"z", "26"}, {"a", "1"}, {"m", "x y"}}
	req := NewRequest(MethodGet, "https://api.example.com/list?a=old&q=gone")
	for _, it := range items {
		req.WithQueryParam(it.Key, it.Value)
	}

	httpReq, err := req.Build(context.Background(), "", nil)
	require.NoError(t, err)

	parsed := httpReq.URL.Query()
	assert.Len(t, parsed, 3)
	assert.Equal(t, []string{"1"}, parsed["a"])
	assert.Equal(t, []string{"26"}, parsed["z"])
	assert.Equal(t, []string{"x y"}, parsed["m"])
	assert.NotContains(t, httpReq.URL.RawQuery, "q=")
}

func TestRequest_AcceptAlwaysJSON(t *testing.T) {
	req := NewRequest(MethodGet, "https://api.example.com/").
		WithHeader("Accept", "text/plain")

	httpReq, err := req.Build(context.Background(), "", []Header{{Key: "Accept", Value: "text/html"}})
	require.NoError(t, err)

	assert.Equal(t, "application/json", httpReq.Header.Get("Accept"))
	assert.Equal(t, []string{"application/json", "text/html", "text/plain"}, httpReq.Header.Values("Accept"))
}

func TestRequest_HeadersAppendInOrder(t *testing.T) {
	req := NewRequest(MethodGet, "https://api.example.com/").
		WithHeader("X-Tag", "a").
		WithHeader("X-Tag", "b")

	httpReq, err := req.Build(context.Background(), "", []Header{{Key: "X-Tag", Value: "default"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"default", "a", "b"}, httpReq.Header.Values("X-Tag"))
}

type widget struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

func TestRequest_BodyRoundTrip(t *testing.T) {
	in := widget{Name: "sprocket", Count: 3, Tags: []string{"a", "b"}}
	req := NewRequest(MethodPost, "https://api.example.com/widgets").WithBody(in)

	httpReq, err := req.Build(context.Background(), "", nil)
	require.NoError(t, err)

	assert.Equal(t, "application/json", httpReq.Header.Get("Content-Type"))
	require.NotNil(t, httpReq.Body)

	payload, err := io.ReadAll(httpReq.Body)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "\n  \"name\"")

	var out widget
	require.NoError(t, json.Unmarshal(payload, &out))
	assert.Equal(t, in, out)

	// GetBody must replay the same payload
	require.NotNil(t, httpReq.GetBody)
	rc, err := httpReq.GetBody()
	require.NoError(t, err)
	replay, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, replay)
}

func TestRequest_BuildFailures(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
		base string
		kind Kind
	}{
		{
			name: "Unserializable body",
			req:  NewRequest(MethodPost, "https://api.example.com/").WithBody(make(chan int)),
			kind: KindInvalidRequestPayload,
		},
		{
			name: "Unsupported float value",
			req:  NewRequest(MethodPost, "https://api.example.com/").WithBody(map[string]float64{"x": math.Inf(1)}),
			kind: KindInvalidRequestPayload,
		},
		{
			name: "Empty query key",
			req:  NewRequest(MethodGet, "https://api.example.com/").WithQueryParam("", "v"),
			kind: KindInvalidQueryParams,
		},
		{
			name: "Invalid UTF-8 query value",
			req:  NewRequest(MethodGet, "https://api.example.com/").WithQueryParam("k", "\xff"),
			kind: KindInvalidQueryParams,
		},
		{
			name: "Unsupported method",
			req:  NewRequest(Method("TRACE"), "https://api.example.com/"),
			kind: KindInvalidRequest,
		},
		{
			name: "Relative address without base URL",
			req:  NewRequest(MethodGet, "/users"),
			kind: KindInvalidRequest,
		},
		{
			name: "Unparseable address",
			req:  NewRequest(MethodGet, "http://[::1"),
			kind: KindInvalidRequest,
		},
		{
			name: "Relative base URL",
			req:  NewRequest(MethodGet, "/users"),
			base: "api.example.com",
			kind: KindInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpReq, err := tt.req.Build(context.Background(), tt.base, nil)
			require.Error(t, err)
			assert.Nil(t, httpReq)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestRequest_Options(t *testing.T) {
	req := NewRequest(MethodGet, "/users/{id}/posts").Apply(
		PathParam("id", "a/b"),
		AddQuery("limit", "5"),
		AddHeader("X-Trace", "1"),
		ExpectStatus(202),
	)

	assert.Equal(t, "/users/a%2Fb/posts", req.URL)
	assert.Equal(t, []QueryItem{{"limit", "5"}}, req.Query)
	assert.Equal(t, []Header{{"X-Trace", "1"}}, req.Headers)
	assert.Equal(t, 202, req.expectedStatus())
	assert.Equal(t, 200, NewRequest(MethodGet, "/").expectedStatus())
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("patch")
	require.NoError(t, err)
	assert.Equal(t, MethodPatch, m)

	m, err = ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodGet, m)

	_, err = ParseMethod("OPTIONS")
	assert.Error(t, err)
}
