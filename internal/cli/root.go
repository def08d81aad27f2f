package cli

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	rchttp "github.com/yingyang9416/RestAPICaller/http"
	"github.com/yingyang9416/RestAPICaller/internal/config"
	"github.com/yingyang9416/RestAPICaller/internal/logger"
	"github.com/yingyang9416/RestAPICaller/internal/output"
)

var version = "0.1.0"

// ErrFailed is returned when a command ran but at least one outcome failed.
// Details have already been printed.
var ErrFailed = errors.New("one or more requests failed")

// app carries what PersistentPreRunE resolves for the subcommands.
type app struct {
	settings  *config.Settings
	logger    *zap.Logger
	transport rchttp.Transport
	noColor   bool
}

// NewRootCmd builds the restcall command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:     "restcall",
		Short:   "Send JSON requests and check what comes back",
		Version: version,
		Long: `restcall sends JSON HTTP requests, checks the status code and decodes
the reply. Every failure is reported with its kind: invalid request payload,
transport error, unexpected status code, unexpected data, no data or
decoding error.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.String("log-level", "warn", "Log level (debug, info, warn, error, off)")
	pf.String("log-format", "console", "Log format (console or json)")
	pf.DurationP("timeout", "t", config.DefaultTimeout, "Request timeout")
	pf.String("transport", config.TransportStd, "HTTP transport (std or resty)")
	pf.Bool("no-color", false, "Disable colored output")
	pf.Bool("insecure", false, "Skip TLS certificate verification")
	pf.String("env-file", ".env", "File with RESTCALL_* variables to load")
	pf.BoolP("verbose", "v", false, "Show timing and response headers")

	for _, m := range rchttp.Methods {
		root.AddCommand(newMethodCmd(a, m))
	}
	root.AddCommand(newRunCmd(a))
	root.AddCommand(newValidateCmd())

	return root
}

// setup loads settings and builds the logger and transport.
func (a *app) setup(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	settings, err := config.LoadSettings(envFile, cmd.Flags())
	if err != nil {
		return err
	}

	log, err := logger.New(settings.LogLevel, settings.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	insecure, _ := cmd.Flags().GetBool("insecure")
	switch {
	case settings.Transport == config.TransportResty && insecure:
		a.transport = rchttp.NewInsecureRestyTransport(settings.Timeout)
	case settings.Transport == config.TransportResty:
		a.transport = rchttp.NewRestyTransport(settings.Timeout)
	case insecure:
		a.transport = rchttp.NewInsecureStdTransport(settings.Timeout)
	default:
		a.transport = rchttp.NewStdTransport(&http.Client{Timeout: settings.Timeout})
	}

	a.settings = settings
	a.logger = log.With(zap.String("transport", settings.Transport))
	a.noColor = !output.UseColor(cmd.OutOrStdout(), settings.NoColor)

	log.Debug("settings loaded",
		zap.String("log_level", settings.LogLevel),
		zap.Duration("timeout", settings.Timeout),
		zap.Bool("no_color", a.noColor))
	return nil
}

// formatter returns an output formatter honoring --verbose and color settings.
func (a *app) formatter(cmd *cobra.Command) *output.Formatter {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return output.NewFormatter(verbose, a.noColor)
}

// printReply is an after hook printing every reply that came back.
func printReply(w io.Writer, f *output.Formatter) rchttp.AfterHook {
	return func(_ *http.Request, reply *rchttp.Reply, _ error, _ time.Duration) {
		if reply != nil {
			fmt.Fprint(w, f.FormatReply(reply))
		}
	}
}

// Execute runs the root command with os.Args.
func Execute() error {
	a := &app{}
	err := newRootCmd(a).Execute()
	if err != nil && !errors.Is(err, ErrFailed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return err
}
