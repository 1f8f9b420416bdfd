// Package config loads experiment configuration for the command-line tools.
//
// Values are resolved in order: Default, then the YAML file, then
// environment variables. Command-line flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/core"
	"github.com/elektrokombinacija/cbs-mapf/internal/scenario"
)

// SolverPrioritized names the prioritized planning baseline.
const SolverPrioritized = "prioritized"

// Config is the top-level experiment configuration.
type Config struct {
	Solver   SolverConfig   `yaml:"solver"`
	Instance InstanceConfig `yaml:"instance"`
	Output   OutputConfig   `yaml:"output"`
}

// SolverConfig selects and tunes the solver.
type SolverConfig struct {
	Name                string        `yaml:"name" validate:"required,oneof=cbs hbcbs lbcbs bcbs ecbs prioritized"`
	HighLevelBound      float64       `yaml:"high_level_bound" validate:"gte=1"`
	LowLevelBound       float64       `yaml:"low_level_bound" validate:"gte=1"`
	PrioritizeConflicts bool          `yaml:"prioritize_conflicts"`
	BypassConflicts     bool          `yaml:"bypass_conflicts"`
	TargetReasoning     bool          `yaml:"target_reasoning"`
	Timeout             time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxNodes            int           `yaml:"max_nodes" validate:"gte=0"`
	Horizon             int           `yaml:"horizon" validate:"gte=0"`
}

// InstanceConfig says where the map and agents come from.
type InstanceConfig struct {
	Map        string `yaml:"map"`
	Scenario   string `yaml:"scenario"`
	AgentsFile string `yaml:"agents_file"`
	Agents     int    `yaml:"agents" validate:"gte=0"`
	// Buckets, when set, draws agent i from scenario bucket Buckets[i].
	Buckets []int `yaml:"buckets" validate:"omitempty,dive,gte=0"`
	Seed    int64 `yaml:"seed"`
}

// OutputConfig names the files a run writes. Empty means not written.
type OutputConfig struct {
	StatsCSV string `yaml:"stats_csv"`
	Solution string `yaml:"solution"`
	Metrics  string `yaml:"metrics"`
}

// Default returns an optimal CBS configuration with the default timeout.
func Default() Config {
	return Config{
		Solver: SolverConfig{
			Name:           "cbs",
			HighLevelBound: 1,
			LowLevelBound:  1,
			Timeout:        algo.DefaultTimeout,
		},
	}
}

// Load resolves the configuration from path (optional) and the environment,
// then validates it.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Read is Load without validation, for callers that apply flags on top.
func Read(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		defer f.Close()
		if err := Decode(f, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode reads YAML from r over cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", algo.ErrConfigInvalid, err)
	}
	return nil
}

// ApplyEnv overrides cfg from CBS_SOLVER, CBS_TIMEOUT, CBS_HIGH_BOUND,
// CBS_LOW_BOUND, CBS_MAX_NODES and CBS_SEED.
func ApplyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("CBS_SOLVER"); ok && v != "" {
		cfg.Solver.Name = v
	}
	if v, ok := os.LookupEnv("CBS_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envError("CBS_TIMEOUT", err)
		}
		cfg.Solver.Timeout = d
	}
	if v, ok := os.LookupEnv("CBS_HIGH_BOUND"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError("CBS_HIGH_BOUND", err)
		}
		cfg.Solver.HighLevelBound = f
	}
	if v, ok := os.LookupEnv("CBS_LOW_BOUND"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError("CBS_LOW_BOUND", err)
		}
		cfg.Solver.LowLevelBound = f
	}
	if v, ok := os.LookupEnv("CBS_MAX_NODES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("CBS_MAX_NODES", err)
		}
		cfg.Solver.MaxNodes = n
	}
	if v, ok := os.LookupEnv("CBS_SEED"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return envError("CBS_SEED", err)
		}
		cfg.Instance.Seed = n
	}
	return nil
}

func envError(key string, err error) error {
	return fmt.Errorf("%w: %s: %v", algo.ErrConfigInvalid, key, err)
}

var validate = validator.New()

// Validate checks field constraints and the per-solver bound rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", algo.ErrConfigInvalid, err)
	}
	if c.Solver.Name == SolverPrioritized {
		return nil
	}
	ac, err := c.AlgoConfig()
	if err != nil {
		return err
	}
	return ac.Validate()
}

// AlgoConfig converts the solver section into an algo.Config. It fails for
// the prioritized baseline, which is not a CBS variant.
func (c Config) AlgoConfig() (algo.Config, error) {
	v, err := algo.ParseVariant(c.Solver.Name)
	if err != nil {
		return algo.Config{}, err
	}
	return algo.Config{
		Variant:             v,
		HighLevelBound:      c.Solver.HighLevelBound,
		LowLevelBound:       c.Solver.LowLevelBound,
		PrioritizeConflicts: c.Solver.PrioritizeConflicts,
		BypassConflicts:     c.Solver.BypassConflicts,
		TargetReasoning:     c.Solver.TargetReasoning,
		Timeout:             c.Solver.Timeout,
		MaxNodes:            c.Solver.MaxNodes,
		Horizon:             c.Solver.Horizon,
	}, nil
}

// NewSolver builds the solver named by the configuration.
func (c Config) NewSolver() (algo.Solver, error) {
	if c.Solver.Name == SolverPrioritized {
		p := algo.NewPrioritized(c.Solver.Timeout)
		p.Horizon = c.Solver.Horizon
		return p, nil
	}
	ac, err := c.AlgoConfig()
	if err != nil {
		return nil, err
	}
	s, err := algo.NewCBS(ac)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Load builds the instance the section names: the agents file when set,
// otherwise the scenario drawn by bucket, at random, or whole.
func (in InstanceConfig) Load() (*core.Instance, error) {
	if in.Map == "" {
		return nil, fmt.Errorf("%w: no map given", algo.ErrConfigInvalid)
	}
	ws, err := scenario.LoadMap(in.Map)
	if err != nil {
		return nil, err
	}
	if in.AgentsFile != "" {
		return scenario.LoadAgents(in.AgentsFile, ws)
	}
	if in.Scenario == "" {
		return nil, fmt.Errorf("%w: need a scenario or an agents file", algo.ErrConfigInvalid)
	}
	scen, err := scenario.LoadScenario(in.Scenario)
	if err != nil {
		return nil, err
	}
	switch {
	case len(in.Buckets) > 0:
		return scen.ByBuckets(ws, in.Buckets, in.Seed)
	case in.Agents > 0:
		return scen.Random(ws, in.Agents, in.Seed)
	default:
		return scen.First(ws, len(scen.Routes))
	}
}
