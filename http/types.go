package http

import (
	"fmt"
	"strings"
)

// Method is an HTTP request method supported by the pipeline.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodHead   Method = "HEAD"
	MethodPatch  Method = "PATCH"
)

// Methods lists every supported method.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodDelete, MethodHead, MethodPatch}

// ParseMethod converts case-insensitive text into a Method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if m == "" {
		return MethodGet, nil
	}
	if !m.Valid() {
		return "", fmt.Errorf("unsupported method: %s", s)
	}
	return m, nil
}

// Valid reports whether m is one of the supported methods. The zero value is valid and means GET.
func (m Method) Valid() bool {
	if m == "" {
		return true
	}
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

func (m Method) String() string {
	if m == "" {
		return string(MethodGet)
	}
	return string(m)
}

// ContentType is a media type the pipeline knows how to send and receive.
type ContentType string

// ContentTypeJSON is the only content type currently supported.
const ContentTypeJSON ContentType = "application/json"

// Header is a single header line. Headers are kept as an ordered slice;
// duplicate keys are all sent.
type Header struct {
	Key   string
	Value string
}

// QueryItem is a single key/value pair of a query string.
type QueryItem struct {
	Key   string
	Value string
}

// Empty is the sentinel payload type for "nothing to send" or "nothing to receive".
type Empty struct{}
