package http

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure. Every kind is terminal; none is retried.
type Kind int

const (
	// KindInvalidRequest means the address or method could not form a request.
	KindInvalidRequest Kind = iota + 1
	// KindInvalidRequestPayload means the body failed to serialize before send.
	KindInvalidRequestPayload
	// KindInvalidQueryParams means the query items were malformed.
	KindInvalidQueryParams
	// KindTransport means the transport failed before a response was obtained.
	KindTransport
	// KindInvalidResponse means the response lacked a status line.
	KindInvalidResponse
	// KindUnexpectedStatusCode means the status differs from the expected one.
	KindUnexpectedStatusCode
	// KindUnexpectedData means a body arrived when none was expected.
	KindUnexpectedData
	// KindNoData means no body arrived when one was required.
	KindNoData
	// KindDecoding means the body could not be decoded into the expected type.
	KindDecoding
)

var kindNames = map[Kind]string{
	KindInvalidRequest:        "invalidRequest",
	KindInvalidRequestPayload: "invalidRequestPayload",
	KindInvalidQueryParams:    "invalidQueryParams",
	KindTransport:             "transportError",
	KindInvalidResponse:       "invalidResponse",
	KindUnexpectedStatusCode:  "unexpectedStatusCode",
	KindUnexpectedData:        "unexpectedData",
	KindNoData:                "noData",
	KindDecoding:              "decodingError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrInvalidRequest        = &Error{Kind: KindInvalidRequest}
	ErrInvalidRequestPayload = &Error{Kind: KindInvalidRequestPayload}
	ErrInvalidQueryParams    = &Error{Kind: KindInvalidQueryParams}
	ErrTransport             = &Error{Kind: KindTransport}
	ErrInvalidResponse       = &Error{Kind: KindInvalidResponse}
	ErrUnexpectedStatusCode  = &Error{Kind: KindUnexpectedStatusCode}
	ErrUnexpectedData        = &Error{Kind: KindUnexpectedData}
	ErrNoData                = &Error{Kind: KindNoData}
	ErrDecoding              = &Error{Kind: KindDecoding}
)

// Error is the single error type returned by the pipeline.
type Error struct {
	Kind   Kind
	Method string
	URL    string

	// StatusCode and Description are set for KindUnexpectedStatusCode.
	StatusCode  int
	Description string

	// RawBody holds the response text for KindDecoding and KindUnexpectedData,
	// since the body cannot be recovered after the call returns.
	RawBody []byte

	// Cause is the underlying error (transport failure, JSON error, ...).
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Method != "" {
		b.WriteString(e.Method)
		b.WriteString(" ")
	}
	if e.URL != "" {
		b.WriteString(e.URL)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.StatusCode != 0 {
		b.WriteString(fmt.Sprintf(" %d", e.StatusCode))
		if e.Description != "" {
			b.WriteString(" ")
			b.WriteString(e.Description)
		}
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches kind sentinels: a target *Error carrying only a Kind matches any error of that Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	if t.Method != "" || t.URL != "" || t.StatusCode != 0 || t.Cause != nil {
		return e == t
	}
	return e.Kind == t.Kind
}

// AsError extracts *Error from err.
func AsError(err error) (*Error, bool) {
	var he *Error
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or 0 when err is not a pipeline error.
func KindOf(err error) Kind {
	if he, ok := AsError(err); ok {
		return he.Kind
	}
	return 0
}
