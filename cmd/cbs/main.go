// Command cbs solves multi-agent pathfinding instances with the CBS family.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/core"
	"github.com/elektrokombinacija/cbs-mapf/internal/ctxlog"
	"github.com/elektrokombinacija/cbs-mapf/internal/metrics"
	"github.com/elektrokombinacija/cbs-mapf/internal/scenario"
	"github.com/elektrokombinacija/cbs-mapf/internal/telemetry"
)

// Exit codes.
const (
	exitOK         = 0
	exitError      = 1
	exitInfeasible = 2
	exitTimeout    = 3
	exitConfig     = 4
)

// cli holds the flags shared by every subcommand and the resources they
// set up, which main releases after the command returns.
type cli struct {
	logLevel   string
	logFormat  string
	trace      bool
	metricsOut string

	stderr   io.Writer
	shutdown func(context.Context) error
}

func newRootCmd(c *cli, stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "cbs",
		Short: "Conflict-Based Search solvers for multi-agent pathfinding",
		Long: `cbs runs optimal and bounded-suboptimal Conflict-Based Search
(CBS, HBCBS, LBCBS, BCBS, ECBS) on MovingAI grid benchmarks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(c.stderr, c.logLevel, c.logFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))

			cfg := telemetry.DefaultConfig()
			if c.trace {
				cfg.Exporter = "stdout"
			}
			cfg.Writer = c.stderr
			c.shutdown, err = telemetry.Init(cmd.Context(), cfg)
			return err
		},
	}
	root.SetOut(stdout)
	root.SetErr(c.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&c.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&c.logFormat, "log-format", "auto", "log format: auto, text, json")
	pf.BoolVar(&c.trace, "trace", false, "export solver spans to stderr")
	pf.StringVar(&c.metricsOut, "metrics-out", "", "write Prometheus metrics to this textfile on exit")

	root.AddCommand(newSolveCmd(c), newBenchCmd(), newGenCmd())
	return root
}

// finish flushes spans and writes the metrics textfile. It runs whether or
// not the command succeeded.
func (c *cli) finish(ctx context.Context) error {
	var errs []error
	if c.shutdown != nil {
		errs = append(errs, c.shutdown(ctx))
	}
	if c.metricsOut != "" {
		errs = append(errs, metrics.WriteTextfile(c.metricsOut))
	}
	return errors.Join(errs...)
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("%w: log level %q", algo.ErrConfigInvalid, level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "auto":
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			return slog.New(slog.NewTextHandler(w, opts)), nil
		}
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%w: log format %q", algo.ErrConfigInvalid, format)
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, algo.ErrInstanceInfeasible):
		return exitInfeasible
	case errors.Is(err, algo.ErrResourceLimit):
		return exitTimeout
	case errors.Is(err, algo.ErrConfigInvalid),
		errors.Is(err, core.ErrInvalidInstance),
		errors.Is(err, scenario.ErrFormat),
		errors.Is(err, scenario.ErrNotEnoughRoutes):
		return exitConfig
	default:
		return exitError
	}
}

func main() {
	ctx := context.Background()
	c := &cli{stderr: os.Stderr}
	err := newRootCmd(c, os.Stdout).ExecuteContext(ctx)
	if ferr := c.finish(ctx); ferr != nil {
		fmt.Fprintln(os.Stderr, "cbs:", ferr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "cbs:", err)
	}
	os.Exit(exitCode(err))
}
