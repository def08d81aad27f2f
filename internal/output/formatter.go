package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	rchttp "github.com/yingyang9416/RestAPICaller/http"
	"github.com/yingyang9416/RestAPICaller/internal/stats"
	"github.com/yingyang9416/RestAPICaller/pkg/jsonpath"
)

// Formatter renders requests, replies and failures as human readable text
type Formatter struct {
	Verbose bool
	NoColor bool
	scheme  *ColorScheme
}

// NewFormatter creates a new formatter with the given options
func NewFormatter(verbose, noColor bool) *Formatter {
	scheme := DefaultColorScheme()
	if noColor {
		scheme = NoColorScheme()
	}
	return &Formatter{Verbose: verbose, NoColor: noColor, scheme: scheme}
}

// FormatRequest formats a request as it will be sent: method, resolved URL,
// headers in order and the JSON payload.
func (f *Formatter) FormatRequest(req *rchttp.Request, baseURL string) string {
	var buf strings.Builder

	target := req.URL
	if built, err := req.Build(context.Background(), baseURL, nil); err == nil {
		target = built.URL.String()
	}
	buf.WriteString(fmt.Sprintf("▶ REQUEST: %s %s\n",
		f.scheme.Method.Sprint(req.Method.String()),
		f.scheme.URL.Sprint(target)))

	if len(req.Headers) > 0 {
		buf.WriteString("  Headers:\n")
		for _, h := range req.Headers {
			buf.WriteString(fmt.Sprintf("    %s: %s\n", f.scheme.HeaderKey.Sprint(h.Key), h.Value))
		}
	}

	if req.HasBody() {
		buf.WriteString("  Body: ")
		switch body := req.Body().(type) {
		case json.RawMessage:
			buf.WriteString(formatJSON(body))
		default:
			if data, err := json.Marshal(body); err == nil {
				buf.WriteString(formatJSON(data))
			} else {
				buf.WriteString(fmt.Sprintf("%v", body))
			}
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

// FormatReply formats a transport reply. Verbose mode adds timing and headers.
func (f *Formatter) FormatReply(reply *rchttp.Reply) string {
	var buf strings.Builder

	status := reply.Status
	if status == "" {
		status = fmt.Sprintf("%d", reply.StatusCode)
	}
	buf.WriteString(fmt.Sprintf("◀ RESPONSE: %s (%dms)\n",
		f.scheme.Status(reply.StatusCode).Sprint(status),
		reply.Timing.TotalTime.Milliseconds()))

	if f.Verbose {
		t := reply.Timing
		buf.WriteString("  Timing:\n")
		buf.WriteString(fmt.Sprintf("    DNS Lookup:         %dms\n", t.DNSLookupTime.Milliseconds()))
		buf.WriteString(fmt.Sprintf("    TCP Connection:     %dms\n", t.TCPConnectTime.Milliseconds()))
		buf.WriteString(fmt.Sprintf("    TLS Handshake:      %dms\n", t.TLSHandshakeTime.Milliseconds()))
		buf.WriteString(fmt.Sprintf("    Time to First Byte: %dms\n", t.TimeToFirstByte.Milliseconds()))
		buf.WriteString(fmt.Sprintf("    Content Transfer:   %dms\n", t.ContentTransferTime.Milliseconds()))
		buf.WriteString(fmt.Sprintf("    Total:              %dms\n", t.TotalTime.Milliseconds()))

		keys := make([]string, 0, len(reply.Header))
		for k := range reply.Header {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteString("  Headers:\n")
		for _, k := range keys {
			for _, v := range reply.Header[k] {
				buf.WriteString(fmt.Sprintf("    %s: %s\n", f.scheme.HeaderKey.Sprint(k), v))
			}
		}
	}

	if len(bytes.TrimSpace(reply.Body)) > 0 {
		buf.WriteString("  Body:\n  ")
		buf.WriteString(formatJSON(reply.Body))
		buf.WriteString("\n")
	}

	return buf.String()
}

// FormatError formats a failed call. Pipeline errors show their kind and,
// when kept, the raw body that failed classification.
func (f *Formatter) FormatError(err error) string {
	var buf strings.Builder

	perr, ok := rchttp.AsError(err)
	if !ok {
		buf.WriteString(fmt.Sprintf("%s %s\n", ErrorIcon(f.NoColor), f.scheme.Error.Sprint(err.Error())))
		return buf.String()
	}

	buf.WriteString(fmt.Sprintf("%s %s: %s\n",
		ErrorIcon(f.NoColor),
		f.scheme.Highlight.Sprint(perr.Kind.String()),
		f.scheme.Error.Sprint(perr.Error())))
	if len(perr.RawBody) > 0 {
		buf.WriteString("  Raw body:\n  ")
		buf.WriteString(formatJSON(perr.RawBody))
		buf.WriteString("\n")
	}
	return buf.String()
}

// FormatExtracted lists values pulled out of a response.
func (f *Formatter) FormatExtracted(values []jsonpath.Extracted) string {
	if len(values) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("  Extracted:\n")
	for _, v := range values {
		if v.Err != nil {
			buf.WriteString(fmt.Sprintf("    %s %s (%s): %v\n", ErrorIcon(f.NoColor), v.Name, v.Path, v.Err))
			continue
		}
		buf.WriteString(fmt.Sprintf("    %s = %s\n", f.scheme.HeaderKey.Sprint(v.Name), v.Value))
	}
	return buf.String()
}

// FormatSummary formats the aggregate of a repeated run.
func (f *Formatter) FormatSummary(name string, s stats.Summary) string {
	var buf strings.Builder

	icon := SuccessIcon(f.NoColor)
	if s.Failed > 0 {
		icon = ErrorIcon(f.NoColor)
	}
	buf.WriteString(fmt.Sprintf("%s %s: %d requests, %d succeeded, %d failed (%.1f req/s)\n",
		icon, f.scheme.Label.Sprint(name), s.Total, s.Succeeded(), s.Failed, s.RequestsPerSecond()))
	buf.WriteString(fmt.Sprintf("  Latency: min %s  mean %s  p50 %s  p90 %s  p99 %s  max %s\n",
		ms(s.Min), ms(s.Mean), ms(s.P50), ms(s.P90), ms(s.P99), ms(s.Max)))
	for _, k := range s.Failures {
		buf.WriteString(fmt.Sprintf("    %s: %d\n", f.scheme.Error.Sprint(k.Kind), k.Count))
	}
	return buf.String()
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
}

// formatJSON pretty-prints data when it is JSON and returns it unchanged otherwise
func formatJSON(data []byte) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "  ", "  "); err != nil {
		return string(data)
	}
	return pretty.String()
}
