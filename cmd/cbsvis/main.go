// Command cbsvis shows a CBS solve on a grid map: the constraint tree as it
// grows, then the plan played back step by step.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"gioui.org/app"
	"gioui.org/unit"
	"github.com/spf13/pflag"

	"github.com/elektrokombinacija/cbs-mapf/internal/config"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis"
)

func main() {
	fs := pflag.NewFlagSet("cbsvis", pflag.ExitOnError)
	flagged := config.Default()
	configPath := fs.String("config", "", "YAML experiment config")
	logLevel := fs.String("log-level", "info", "debug, info, warn or error")
	config.AddSolverFlags(fs, &flagged.Solver)
	config.AddInstanceFlags(fs, &flagged.Instance)
	_ = fs.Parse(os.Args[1:])

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(*logLevel)); err != nil {
		fatal(fmt.Errorf("log level %q: %w", *logLevel, err))
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	cfg, err := config.Resolve(fs, *configPath, flagged)
	if err != nil {
		fatal(err)
	}
	if cfg.Solver.Name == config.SolverPrioritized {
		fatal(fmt.Errorf("cbsvis shows constraint trees; %q has none", cfg.Solver.Name))
	}
	ac, err := cfg.AlgoConfig()
	if err != nil {
		fatal(err)
	}
	inst, err := cfg.Instance.Load()
	if err != nil {
		fatal(err)
	}
	logger.Info("instance loaded", "map", cfg.Instance.Map, "agents", len(inst.Agents), "solver", cfg.Solver.Name)

	go func() {
		window := new(app.Window)
		window.Option(
			app.Title("CBS Visualizer"),
			app.Size(unit.Dp(1400), unit.Dp(900)),
		)

		application := vis.NewApp(inst, ac, logger)
		if err := application.Run(window); err != nil {
			fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "cbsvis:", err)
	os.Exit(1)
}
