package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/config"
	"github.com/elektrokombinacija/cbs-mapf/internal/core"
	"github.com/elektrokombinacija/cbs-mapf/internal/ctxlog"
	"github.com/elektrokombinacija/cbs-mapf/internal/report"
	"github.com/elektrokombinacija/cbs-mapf/internal/scenario"
)

type benchFlags struct {
	solvers   []string
	weight    float64
	agents    []int
	instances int
	jobs      int
	out       string
	base      config.Config
}

func newBenchCmd() *cobra.Command {
	f := &benchFlags{base: config.Default()}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run several solvers over random draws from one scenario",
		Long: `bench draws --instances agent sets of every size in --agents from the
scenario, runs every solver in --solvers on each, appends one CSV row per run
and prints a per-solver summary. Bounded variants share --weight:
hbcbs uses it as w_H, lbcbs and ecbs as w_L, bcbs for both.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, f)
		},
	}
	fs := cmd.Flags()
	fs.StringSliceVar(&f.solvers, "solvers", []string{"cbs", "hbcbs", "lbcbs", "bcbs", "ecbs", "prioritized"}, "solvers to compare")
	fs.Float64Var(&f.weight, "weight", 1.5, "suboptimality bound for the bounded variants")
	fs.IntSliceVar(&f.agents, "agents", []int{5, 10}, "agent counts")
	fs.IntVar(&f.instances, "instances", 5, "random draws per agent count")
	fs.IntVar(&f.jobs, "jobs", runtime.GOMAXPROCS(0), "concurrent solves")
	fs.StringVar(&f.out, "out", "", "append rows to this CSV")
	fs.StringVar(&f.base.Instance.Map, "map", "", "MovingAI .map file")
	fs.StringVar(&f.base.Instance.Scenario, "scen", "", "MovingAI .scen file")
	fs.Int64Var(&f.base.Instance.Seed, "seed", 0, "first seed; draw i uses seed+i")
	fs.BoolVar(&f.base.Solver.PrioritizeConflicts, "prioritize", false, "branch on cardinal conflicts first")
	fs.BoolVar(&f.base.Solver.BypassConflicts, "bypass", false, "adopt cost-neutral child paths without branching")
	fs.BoolVar(&f.base.Solver.TargetReasoning, "target-reasoning", false, "resolve target conflicts with length constraints")
	fs.DurationVar(&f.base.Solver.Timeout, "timeout", f.base.Solver.Timeout, "wall-clock limit per solve")
	return cmd
}

// solverConfig specialises base for one solver name.
func (f *benchFlags) solverConfig(name string) config.Config {
	cfg := f.base
	cfg.Solver.Name = name
	cfg.Solver.HighLevelBound, cfg.Solver.LowLevelBound = 1, 1
	switch name {
	case "hbcbs":
		cfg.Solver.HighLevelBound = f.weight
	case "lbcbs", "ecbs":
		cfg.Solver.LowLevelBound = f.weight
	case "bcbs":
		cfg.Solver.HighLevelBound, cfg.Solver.LowLevelBound = f.weight, f.weight
	}
	return cfg
}

type benchJob struct {
	cfg  config.Config
	inst *core.Instance
}

func runBench(cmd *cobra.Command, f *benchFlags) error {
	if f.base.Instance.Map == "" || f.base.Instance.Scenario == "" {
		return fmt.Errorf("%w: bench needs --map and --scen", algo.ErrConfigInvalid)
	}
	ws, err := scenario.LoadMap(f.base.Instance.Map)
	if err != nil {
		return err
	}
	scen, err := scenario.LoadScenario(f.base.Instance.Scenario)
	if err != nil {
		return err
	}

	// Validate every solver before spending time on any of them.
	for _, name := range f.solvers {
		if err := f.solverConfig(name).Validate(); err != nil {
			return fmt.Errorf("solver %s: %w", name, err)
		}
	}

	var jobs []benchJob
	for _, n := range f.agents {
		for i := 0; i < f.instances; i++ {
			inst, err := scen.Random(ws, n, f.base.Instance.Seed+int64(i))
			if err != nil {
				return err
			}
			for _, name := range f.solvers {
				jobs = append(jobs, benchJob{cfg: f.solverConfig(name), inst: inst})
			}
		}
	}

	log := ctxlog.FromContext(cmd.Context())
	log.Info("bench starting", "jobs", len(jobs), "workers", f.jobs)

	mapName := filepath.Base(f.base.Instance.Map)
	rows := make([]report.Row, len(jobs))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(1, f.jobs))
	for i, job := range jobs {
		g.Go(func() error {
			row, err := benchOne(ctx, mapName, job)
			rows[i] = row
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if f.out != "" {
		if err := report.AppendCSV(f.out, rows); err != nil {
			return err
		}
	}
	report.PrintSummary(cmd.OutOrStdout(), rows)
	return nil
}

// benchOne runs a single job. Infeasible and timed-out solves are recorded,
// not returned as errors.
func benchOne(ctx context.Context, mapName string, job benchJob) (report.Row, error) {
	solver, err := job.cfg.NewSolver()
	if err != nil {
		return report.Row{}, err
	}
	runID := uuid.NewString()
	ctx = ctxlog.WithLogger(ctx, ctxlog.FromContext(ctx).With("run_id", runID))

	res, err := solver.Solve(ctx, job.inst)
	if err != nil && !errors.Is(err, algo.ErrInstanceInfeasible) && !errors.Is(err, algo.ErrResourceLimit) {
		return report.Row{}, err
	}

	ac, err := rowConfig(job.cfg)
	if err != nil {
		return report.Row{}, err
	}
	return report.NewRow(runID, mapName, solver.Name(), len(job.inst.Agents), ac, res), nil
}
