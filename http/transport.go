package http

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

// TimingInfo stores detailed timing information for an exchange.
// Transports fill in what they can observe; unknown phases stay zero.
type TimingInfo struct {
	// StartTime is when the request was handed to the transport
	StartTime time.Time

	// DNSLookupTime is the time spent looking up the DNS address
	DNSLookupTime time.Duration

	// TCPConnectTime is the time spent establishing a TCP connection
	TCPConnectTime time.Duration

	// TLSHandshakeTime is the time spent performing the TLS handshake (for HTTPS)
	TLSHandshakeTime time.Duration

	// TimeToFirstByte is the time from the last connection phase to the first response byte
	TimeToFirstByte time.Duration

	// ContentTransferTime is the time spent reading the response body
	ContentTransferTime time.Duration

	// TotalTime is the total time from request start to the body being read
	TotalTime time.Duration
}

// Reply is what a transport hands back: status line, headers and the whole body.
type Reply struct {
	// StatusCode is zero when the transport produced no status line.
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	Timing     TimingInfo
}

// Transport performs the byte-level exchange. It owns connections, TLS and
// timeouts; the pipeline only classifies what comes back.
type Transport interface {
	Send(ctx context.Context, req *http.Request) (*Reply, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *http.Request) (*Reply, error)

func (f TransportFunc) Send(ctx context.Context, req *http.Request) (*Reply, error) {
	return f(ctx, req)
}

// StdTransport sends requests with a net/http client and records per-phase timing.
// StdTransport is safe for concurrent use.
type StdTransport struct {
	client *http.Client
}

// NewStdTransport wraps client. A nil client gets a new one with a 30 second timeout.
func NewStdTransport(client *http.Client) *StdTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &StdTransport{client: client}
}

// NewInsecureStdTransport disables TLS certificate verification.
// WARNING: This should only be used for testing purposes.
func NewInsecureStdTransport(timeout time.Duration) *StdTransport {
	return NewStdTransport(&http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
}

// Send executes req and reads the full body.
func (t *StdTransport) Send(ctx context.Context, req *http.Request) (*Reply, error) {
	timing := TimingInfo{
		StartTime: time.Now(),
	}

	var dnsStart, connectStart, tlsHandshakeStart time.Time
	var dnsDone, connectDone bool
	// lastPhaseEnd tracks the end of the last completed connection phase
	lastPhaseEnd := timing.StartTime

	trace := &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			dnsStart = time.Now()
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			now := time.Now()
			timing.DNSLookupTime = now.Sub(dnsStart)
			dnsDone = true
			lastPhaseEnd = now
		},
		ConnectStart: func(network, addr string) {
			connectStart = time.Now()
			if !dnsDone {
				lastPhaseEnd = connectStart
			}
		},
		ConnectDone: func(network, addr string, err error) {
			if err == nil {
				now := time.Now()
				timing.TCPConnectTime = now.Sub(connectStart)
				connectDone = true
				lastPhaseEnd = now
			}
		},
		TLSHandshakeStart: func() {
			if connectDone {
				tlsHandshakeStart = time.Now()
			}
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			if err == nil && !tlsHandshakeStart.IsZero() {
				now := time.Now()
				timing.TLSHandshakeTime = now.Sub(tlsHandshakeStart)
				lastPhaseEnd = now
			}
		},
		GotFirstResponseByte: func() {
			timing.TimeToFirstByte = time.Since(lastPhaseEnd)
		},
	}

	if ctx == nil {
		ctx = req.Context()
	}
	resp, err := t.client.Do(req.WithContext(httptrace.WithClientTrace(ctx, trace)))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	transferStart := time.Now()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	timing.ContentTransferTime = time.Since(transferStart)
	timing.TotalTime = time.Since(timing.StartTime)

	return &Reply{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
		Timing:     timing,
	}, nil
}
