package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	rchttp "github.com/yingyang9416/RestAPICaller/http"
	"github.com/yingyang9416/RestAPICaller/internal/output"
)

// newMethodCmd builds the command for one HTTP method, e.g. "restcall post URL".
func newMethodCmd(a *app, method rchttp.Method) *cobra.Command {
	name := strings.ToLower(method.String())
	cmd := &cobra.Command{
		Use:   name + " URL",
		Short: fmt.Sprintf("Make a %s request to the specified URL", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.sendOne(cmd, method, args[0])
		},
	}

	cmd.Flags().StringArrayP("header", "H", []string{}, "HTTP header as 'Key: Value' (can be used multiple times)")
	cmd.Flags().StringArrayP("query", "q", []string{}, "Query parameter as key=value (can be used multiple times, order is kept)")
	cmd.Flags().Int("status", 0, "Expected status code (default 200)")
	cmd.Flags().Bool("empty", method == rchttp.MethodHead, "Expect a response without a body")
	if method == rchttp.MethodPost || method == rchttp.MethodPut || method == rchttp.MethodPatch {
		cmd.Flags().StringP("json", "j", "", "JSON request body, or @file to read it from a file")
	}
	return cmd
}

func (a *app) sendOne(cmd *cobra.Command, method rchttp.Method, target string) error {
	headers, _ := cmd.Flags().GetStringArray("header")
	query, _ := cmd.Flags().GetStringArray("query")
	status, _ := cmd.Flags().GetInt("status")
	empty, _ := cmd.Flags().GetBool("empty")

	req := rchttp.NewRequest(method, normalizeURL(target)).WithExpectedStatus(status)
	for _, h := range headers {
		key, value, err := parseHeader(h)
		if err != nil {
			return err
		}
		req.WithHeader(key, value)
	}
	for _, q := range query {
		key, value, err := parseQuery(q)
		if err != nil {
			return err
		}
		req.WithQueryParam(key, value)
	}
	if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
		body, err := readBody(f.Value.String())
		if err != nil {
			return err
		}
		req.WithBody(body)
	}

	out := cmd.OutOrStdout()
	formatter := a.formatter(cmd)
	client := rchttp.NewClient(a.transport,
		rchttp.WithLogger(a.logger),
		rchttp.WithAfterHook(printReply(out, formatter)),
	)

	fmt.Fprint(out, formatter.FormatRequest(req, ""))

	var err error
	if empty {
		_, err = rchttp.Execute(cmd.Context(), client, req, rchttp.Nothing())
	} else {
		_, err = rchttp.Execute(cmd.Context(), client, req, rchttp.JSON[json.RawMessage]())
	}
	if err != nil {
		fmt.Fprint(out, formatter.FormatError(err))
		return ErrFailed
	}
	fmt.Fprintf(out, "%s OK\n", output.SuccessIcon(a.noColor))
	return nil
}

// readBody returns the JSON payload given on the command line. The text is
// passed through unchanged so the pipeline reports invalid JSON as an
// invalid request payload.
func readBody(arg string) (json.RawMessage, error) {
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading body file: %w", err)
		}
		return json.RawMessage(data), nil
	}
	return json.RawMessage(arg), nil
}

// parseHeader splits "Key: Value".
func parseHeader(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, ":")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid header %q (want 'Key: Value')", s)
	}
	return key, strings.TrimSpace(value), nil
}

// parseQuery splits "key=value". An empty key is passed on so the pipeline
// rejects it as invalid query parameters.
func parseQuery(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", fmt.Errorf("invalid query parameter %q (want key=value)", s)
	}
	return key, value, nil
}

// normalizeURL adds http:// when the address has no scheme.
func normalizeURL(s string) string {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	return "http://" + s
}
