package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/config"
	"github.com/elektrokombinacija/cbs-mapf/internal/core"
	"github.com/elektrokombinacija/cbs-mapf/internal/ctxlog"
	"github.com/elektrokombinacija/cbs-mapf/internal/report"
	"github.com/elektrokombinacija/cbs-mapf/internal/sim"
)

// solveFlags mirror config.Config; only flags the user set override the file.
type solveFlags struct {
	configPath string
	cfg        config.Config
	printPaths bool
	verify     bool
}

func newSolveCmd(c *cli) *cobra.Command {
	f := &solveFlags{cfg: config.Default()}
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve one instance and report its statistics",
		Example: `  cbs solve --map maps/random-32-32-20.map --scen maps/random-32-32-20-random-1.scen \
      --agents 30 --solver ecbs --ll-bound 1.2 --prioritize --target-reasoning`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(cmd.Flags(), f.configPath, f.cfg)
			if err != nil {
				return err
			}
			if c.metricsOut == "" {
				c.metricsOut = cfg.Output.Metrics
			}
			return runSolve(cmd, cfg, f)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "YAML experiment config")
	config.AddSolverFlags(fs, &f.cfg.Solver)
	config.AddInstanceFlags(fs, &f.cfg.Instance)
	fs.StringVar(&f.cfg.Output.StatsCSV, "stats-csv", "", "append a statistics row to this CSV")
	fs.StringVar(&f.cfg.Output.Solution, "solution-out", "", "write the paths to this file")
	fs.BoolVar(&f.printPaths, "print-paths", false, "print the paths to stdout")
	fs.BoolVar(&f.verify, "verify", false, "execute the plan and check it before reporting")
	return cmd
}

func runSolve(cmd *cobra.Command, cfg config.Config, f *solveFlags) error {
	inst, err := cfg.Instance.Load()
	if err != nil {
		return err
	}
	solver, err := cfg.NewSolver()
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := ctxlog.FromContext(cmd.Context()).With("run_id", runID)
	ctx := ctxlog.WithLogger(cmd.Context(), log)
	log.Info("solving",
		"map", cfg.Instance.Map,
		"agents", len(inst.Agents),
		"solver", solver.Name())

	res, solveErr := solver.Solve(ctx, inst)

	out := cmd.OutOrStdout()
	if res != nil {
		fmt.Fprintf(out, "run %s: %s status=%s", runID, solver.Name(), res.Status)
		if res.Solution != nil {
			fmt.Fprintf(out, " soc=%d makespan=%d", res.Solution.SumOfCosts, res.Solution.Makespan)
		}
		fmt.Fprintf(out, " lb=%d hl_expanded=%d ll_calls=%d time=%s\n",
			res.Stats.LowerBound, res.Stats.HighLevelExpanded, res.Stats.LowLevelCalls, res.Stats.WallTime)

		if res.Solution != nil {
			if f.verify {
				m, err := sim.Check(ctx, inst, res.Solution)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "verified ticks=%d moves=%d waits=%d\n", m.Ticks, m.Moves, m.Waits)
			}
			if f.printPaths {
				if err := report.WriteSolution(out, inst.Workspace, res.Solution); err != nil {
					return err
				}
			}
			if cfg.Output.Solution != "" {
				if err := writeSolutionFile(cfg.Output.Solution, inst, res.Solution); err != nil {
					return err
				}
			}
		}
	}

	if cfg.Output.StatsCSV != "" {
		ac, err := rowConfig(cfg)
		if err != nil {
			return err
		}
		row := report.NewRow(runID, filepath.Base(cfg.Instance.Map), solver.Name(), len(inst.Agents), ac, res)
		if err := report.AppendCSV(cfg.Output.StatsCSV, []report.Row{row}); err != nil {
			return err
		}
	}
	return solveErr
}

func writeSolutionFile(path string, inst *core.Instance, sol *core.Solution) error {
	return writeFile(path, func(f *os.File) error {
		return report.WriteSolution(f, inst.Workspace, sol)
	})
}

// rowConfig is the solver configuration recorded in a stats row. Prioritized
// planning has none.
func rowConfig(cfg config.Config) (algo.Config, error) {
	if cfg.Solver.Name == config.SolverPrioritized {
		return algo.Config{}, nil
	}
	return cfg.AlgoConfig()
}
