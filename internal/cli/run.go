package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	rchttp "github.com/yingyang9416/RestAPICaller/http"
	"github.com/yingyang9416/RestAPICaller/internal/config"
	"github.com/yingyang9416/RestAPICaller/internal/output"
	"github.com/yingyang9416/RestAPICaller/internal/stats"
	"github.com/yingyang9416/RestAPICaller/pkg/jsonpath"
	"github.com/yingyang9416/RestAPICaller/pkg/jsonschema"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run requests from a catalog file",
		Long: `Run executes named requests from a catalog in the given environment.
Requests run in the order given; values extracted from one response are
available as {{variables}} to the requests after it. With --count above 1
each request is sent repeatedly and a latency summary is printed instead.`,
		Args: cobra.NoArgs,
		RunE: a.runCatalog,
	}

	cmd.Flags().StringP("config", "c", "", "Catalog file (required)")
	cmd.Flags().StringP("environment", "e", "", "Environment to use (required)")
	cmd.Flags().StringArrayP("request", "r", []string{}, "Request to run (can be used multiple times)")
	cmd.Flags().StringArray("var", []string{}, "Variable as key=value overriding the environment")
	cmd.Flags().IntP("count", "n", 1, "Number of times to send each request")
	cmd.Flags().IntP("concurrency", "p", 1, "Requests in flight at once when --count is above 1")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("environment")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

func (a *app) runCatalog(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	envName, _ := cmd.Flags().GetString("environment")
	names, _ := cmd.Flags().GetStringArray("request")
	rawVars, _ := cmd.Flags().GetStringArray("var")
	count, _ := cmd.Flags().GetInt("count")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	if count < 1 {
		return fmt.Errorf("--count must be at least 1")
	}
	if concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}

	catalog, err := config.LoadCatalog(path)
	if err != nil {
		return err
	}
	if problems := config.ValidateCatalog(catalog); len(problems) > 0 {
		return fmt.Errorf("invalid catalog: %s (run 'restcall validate' for details)", problems[0])
	}

	vars := make(map[string]string)
	for _, v := range rawVars {
		key, value, ok := strings.Cut(v, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid variable %q (want key=value)", v)
		}
		vars[key] = value
	}

	out := cmd.OutOrStdout()
	formatter := a.formatter(cmd)
	failed := false

	for i, name := range names {
		if len(names) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "=== %s ===\n", name)
		}

		resolved, err := catalog.Resolve(envName, name, vars)
		if err != nil {
			return err
		}
		call, err := newCatalogCall(resolved)
		if err != nil {
			return err
		}

		if count > 1 {
			summary := a.load(cmd.Context(), call, count, concurrency)
			fmt.Fprint(out, formatter.FormatSummary(name, summary))
			failed = failed || summary.Failed > 0
			continue
		}

		extracted, ok := a.runOnce(cmd.Context(), out, formatter, call)
		failed = failed || !ok
		for _, e := range extracted {
			if e.Err == nil {
				vars[e.Name] = e.Value
			}
		}
	}

	if failed {
		return ErrFailed
	}
	return nil
}

// catalogCall is a resolved catalog request ready to be sent.
type catalogCall struct {
	resolved *config.ResolvedRequest
	req      *rchttp.Request
	schema   *jsonschema.Schema
}

func newCatalogCall(resolved *config.ResolvedRequest) (*catalogCall, error) {
	method, err := rchttp.ParseMethod(resolved.Method)
	if err != nil {
		return nil, err
	}

	req := rchttp.NewRequest(method, resolved.URL).WithExpectedStatus(resolved.Expect.Status)
	for _, h := range resolved.Headers {
		req.WithHeader(h.Key, h.Value)
	}
	for _, q := range resolved.Query {
		req.WithQueryParam(q.Key, q.Value)
	}
	if resolved.HasBody {
		req.WithBody(resolved.Body)
	}

	call := &catalogCall{resolved: resolved, req: req}
	if len(resolved.Schema) > 0 {
		call.schema, err = jsonschema.Compile(resolved.Expect.Schema, resolved.Schema)
		if err != nil {
			return nil, err
		}
	}
	return call, nil
}

// execute sends the call through the pipeline and checks the schema. The
// returned body is nil for requests that expect no data.
func (c *catalogCall) execute(ctx context.Context, client *rchttp.Client) (json.RawMessage, error) {
	if c.resolved.Expect.Empty {
		_, err := rchttp.Execute(ctx, client, c.req, rchttp.Nothing())
		return nil, err
	}
	body, err := rchttp.Execute(ctx, client, c.req, rchttp.JSON[json.RawMessage]())
	if err != nil {
		return nil, err
	}
	if c.schema != nil {
		if err := c.schema.Validate(body); err != nil {
			return body, fmt.Errorf("schema %s: %w", c.schema.Name(), err)
		}
	}
	return body, nil
}

func (a *app) client(baseURL string, hooks ...rchttp.AfterHook) *rchttp.Client {
	return rchttp.NewClient(a.transport,
		rchttp.WithBaseURL(baseURL),
		rchttp.WithLogger(a.logger),
		rchttp.WithAfterHook(hooks...),
	)
}

// runOnce sends the call once, printing the exchange and the extracted values.
func (a *app) runOnce(ctx context.Context, out io.Writer, formatter *output.Formatter, call *catalogCall) ([]jsonpath.Extracted, bool) {
	client := a.client(call.resolved.BaseURL, printReply(out, formatter))

	fmt.Fprint(out, formatter.FormatRequest(call.req, call.resolved.BaseURL))
	body, err := call.execute(ctx, client)
	if err != nil {
		fmt.Fprint(out, formatter.FormatError(err))
		return nil, false
	}
	if call.schema != nil {
		fmt.Fprintf(out, "%s Schema %s passed\n", output.SuccessIcon(a.noColor), call.schema.Name())
	}

	ok := true
	var extracted []jsonpath.Extracted
	if len(call.resolved.Extract) > 0 {
		extracted, err = jsonpath.ExtractAll(body, call.resolved.Extract)
		if err != nil {
			a.logger.Warn("extraction incomplete", zap.String("request", call.resolved.Name), zap.Error(err))
			ok = false
		}
		fmt.Fprint(out, formatter.FormatExtracted(extracted))
	}
	if ok {
		fmt.Fprintf(out, "%s OK\n", output.SuccessIcon(a.noColor))
	}
	return extracted, ok
}

// load sends the call count times with at most concurrency in flight and
// aggregates the outcomes.
func (a *app) load(ctx context.Context, call *catalogCall, count, concurrency int) stats.Summary {
	client := a.client(call.resolved.BaseURL)
	rec := stats.NewRecorder()

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			start := time.Now()
			res := <-goCall(ctx, client, call)
			rec.Record(time.Since(start), res.Err)
			return nil
		})
	}
	_ = g.Wait()

	summary := rec.Summary()
	a.logger.Info("load finished",
		zap.String("request", call.resolved.Name),
		zap.Int64("total", summary.Total),
		zap.Int64("failed", summary.Failed),
		zap.Duration("p99", summary.P99))
	return summary
}

// goCall delivers the call's outcome on a channel. Schema validation runs on
// the pipeline's own goroutine.
func goCall(ctx context.Context, client *rchttp.Client, call *catalogCall) <-chan rchttp.Outcome[json.RawMessage] {
	if call.resolved.Expect.Empty {
		results := make(chan rchttp.Outcome[json.RawMessage], 1)
		empty := rchttp.Go(ctx, client, call.req, rchttp.Nothing())
		go func() {
			defer close(results)
			res := <-empty
			results <- rchttp.Outcome[json.RawMessage]{Err: res.Err}
		}()
		return results
	}
	if call.schema == nil {
		return rchttp.Go(ctx, client, call.req, rchttp.JSON[json.RawMessage]())
	}

	results := make(chan rchttp.Outcome[json.RawMessage], 1)
	rchttp.Dispatch(ctx, client, call.req, rchttp.JSON[json.RawMessage](), func(body json.RawMessage, err error) {
		defer close(results)
		if err == nil {
			if verr := call.schema.Validate(body); verr != nil {
				err = fmt.Errorf("schema %s: %w", call.schema.Name(), verr)
			}
		}
		results <- rchttp.Outcome[json.RawMessage]{Value: body, Err: err}
	})
	return results
}
