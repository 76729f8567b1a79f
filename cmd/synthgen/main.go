package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }

func (e *exitErr) Unwrap() error { return e.err }

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
	envFile    string
	logLevel   string
	logFormat  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	var opts rootOptions
	root := &cobra.Command{
		Use:           "synthgen",
		Short:         "Generate deterministic lead-contact compliance fixtures",
		Long:          "synthgen derives leads, contact attempts, conversions and a DNC registry from a single seed and writes them as CSV, Parquet or XLSX.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &exitErr{code: 2, err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "Path to a YAML config file (default configs/config.yaml when present)")
	pf.StringVar(&opts.envFile, "env-file", "", "Path to a dotenv file (default .env when present)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: json or console")

	root.AddCommand(
		newGenerateCmd(&opts),
		newVerifyCmd(&opts),
		newSummaryCmd(),
		newMigrateCmd(&opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the synthgen version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "synthgen", version)
		},
	}
}

// exitCode maps configuration problems to 2 and every other failure to 1.
func exitCode(err error) int {
	var ee *exitErr
	if stderrors.As(err, &ee) {
		return ee.code
	}
	if errors.IsType(err, errors.ErrorTypeConfiguration) {
		return 2
	}
	return 1
}
