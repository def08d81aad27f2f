package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// AfterHook observes every exchange handed to the transport. reply is nil when
// err is set or the transport returned nothing.
type AfterHook func(req *http.Request, reply *Reply, err error, dur time.Duration)

// Client carries everything a call needs: the transport, a base URL,
// default headers and a logger.
// Client is safe for concurrent use by multiple goroutines once constructed.
type Client struct {
	transport Transport
	baseURL   string
	headers   []Header
	logger    *zap.Logger
	after     []AfterHook
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// NewClient creates a client over the given transport.
// A nil transport gets a fresh StdTransport with a 30 second timeout.
//
// Example:
//
//	client := http.NewClient(
//	    http.NewStdTransport(nil),
//	    http.WithBaseURL("https://api.example.com"),
//	    http.WithHeader("Authorization", "Bearer token"),
//	)
func NewClient(transport Transport, options ...ClientOption) *Client {
	if transport == nil {
		transport = NewStdTransport(nil)
	}
	client := &Client{
		transport: transport,
		logger:    zap.NewNop(),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// WithBaseURL sets the base URL relative addresses are joined onto.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHeader adds a header sent with every request, after Accept and
// before the request's own headers.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers = append(c.headers, Header{Key: key, Value: value})
	}
}

// WithLogger sets the diagnostic logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger == nil {
			logger = zap.NewNop()
		}
		c.logger = logger
	}
}

// WithAfterHook registers hooks run after every transport exchange.
// Call this during initialization (before the client is used concurrently).
func WithAfterHook(hooks ...AfterHook) ClientOption {
	return func(c *Client) {
		c.after = append(c.after, hooks...)
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Transport returns the transport requests are sent over.
func (c *Client) Transport() Transport { return c.transport }
