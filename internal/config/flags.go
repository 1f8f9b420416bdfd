package config

import (
	"github.com/spf13/pflag"
)

// AddSolverFlags binds the solver flags to s. Current values are the defaults.
func AddSolverFlags(fs *pflag.FlagSet, s *SolverConfig) {
	fs.StringVar(&s.Name, "solver", s.Name, "solver: cbs, hbcbs, lbcbs, bcbs, ecbs, prioritized")
	fs.Float64Var(&s.HighLevelBound, "hl-bound", s.HighLevelBound, "high-level suboptimality bound w_H")
	fs.Float64Var(&s.LowLevelBound, "ll-bound", s.LowLevelBound, "low-level suboptimality bound w_L")
	fs.BoolVar(&s.PrioritizeConflicts, "prioritize", s.PrioritizeConflicts, "branch on cardinal conflicts first")
	fs.BoolVar(&s.BypassConflicts, "bypass", s.BypassConflicts, "adopt cost-neutral child paths without branching")
	fs.BoolVar(&s.TargetReasoning, "target-reasoning", s.TargetReasoning, "resolve target conflicts with length constraints")
	fs.DurationVar(&s.Timeout, "timeout", s.Timeout, "wall-clock limit per solve")
	fs.IntVar(&s.MaxNodes, "max-nodes", s.MaxNodes, "high-level expansion limit (0 = none)")
	fs.IntVar(&s.Horizon, "horizon", s.Horizon, "path length limit (0 = derived from the map)")
}

// AddInstanceFlags binds the instance selection flags to in.
func AddInstanceFlags(fs *pflag.FlagSet, in *InstanceConfig) {
	fs.StringVar(&in.Map, "map", in.Map, "MovingAI .map file")
	fs.StringVar(&in.Scenario, "scen", in.Scenario, "MovingAI .scen file")
	fs.StringVar(&in.AgentsFile, "agents-file", in.AgentsFile, "YAML agent list (instead of --scen)")
	fs.IntVar(&in.Agents, "agents", in.Agents, "number of agents drawn from the scenario (0 = all)")
	fs.IntSliceVar(&in.Buckets, "buckets", in.Buckets, "draw agent i from scenario bucket i")
	fs.Int64Var(&in.Seed, "seed", in.Seed, "seed for agent selection")
}

// Resolve loads the file at path (optional) and the environment, re-applies
// every flag the user set explicitly from flagged, then validates.
func Resolve(fs *pflag.FlagSet, path string, flagged Config) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return cfg, err
	}

	fs.Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "solver":
			cfg.Solver.Name = flagged.Solver.Name
		case "hl-bound":
			cfg.Solver.HighLevelBound = flagged.Solver.HighLevelBound
		case "ll-bound":
			cfg.Solver.LowLevelBound = flagged.Solver.LowLevelBound
		case "prioritize":
			cfg.Solver.PrioritizeConflicts = flagged.Solver.PrioritizeConflicts
		case "bypass":
			cfg.Solver.BypassConflicts = flagged.Solver.BypassConflicts
		case "target-reasoning":
			cfg.Solver.TargetReasoning = flagged.Solver.TargetReasoning
		case "timeout":
			cfg.Solver.Timeout = flagged.Solver.Timeout
		case "max-nodes":
			cfg.Solver.MaxNodes = flagged.Solver.MaxNodes
		case "horizon":
			cfg.Solver.Horizon = flagged.Solver.Horizon
		case "map":
			cfg.Instance.Map = flagged.Instance.Map
		case "scen":
			cfg.Instance.Scenario = flagged.Instance.Scenario
		case "agents-file":
			cfg.Instance.AgentsFile = flagged.Instance.AgentsFile
		case "agents":
			cfg.Instance.Agents = flagged.Instance.Agents
		case "buckets":
			cfg.Instance.Buckets = flagged.Instance.Buckets
		case "seed":
			cfg.Instance.Seed = flagged.Instance.Seed
		case "stats-csv":
			cfg.Output.StatsCSV = flagged.Output.StatsCSV
		case "solution-out":
			cfg.Output.Solution = flagged.Output.Solution
		}
	})
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
