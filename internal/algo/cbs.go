package algo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
	"github.com/elektrokombinacija/cbs-mapf/internal/ctxlog"
	"github.com/elektrokombinacija/cbs-mapf/internal/metrics"
)

var tracer = otel.Tracer("github.com/elektrokombinacija/cbs-mapf/internal/algo")

// CBS implements Conflict-Based Search and its bounded-suboptimal variants.
// A CBS value holds only configuration, so one value may run concurrent solves.
type CBS struct {
	cfg Config
}

// NewCBS creates a solver after validating cfg.
func NewCBS(cfg Config) (*CBS, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &CBS{cfg: cfg}, nil
}

func (c *CBS) Name() string { return c.cfg.Variant.String() }

// Config returns the solver configuration.
func (c *CBS) Config() Config { return c.cfg }

// Solve runs the high-level search to a solution, infeasibility, or a limit.
func (c *CBS) Solve(ctx context.Context, inst *core.Instance) (*Result, error) {
	ctx, span := tracer.Start(ctx, "algo.CBS.Solve", trace.WithAttributes(
		attribute.String("variant", c.cfg.Variant.String()),
		attribute.Int("agents", len(inst.Agents)),
		attribute.Float64("w_high", normBound(c.cfg.HighLevelBound)),
		attribute.Float64("w_low", normBound(c.cfg.LowLevelBound)),
	))
	defer span.End()

	if err := inst.Validate(); err != nil {
		err = fmt.Errorf("%w: %w", ErrConfigInvalid, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid instance")
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	s := newSearch(c.cfg, inst, ctxlog.FromContext(ctx))
	res, err := s.run(ctx)

	metrics.ObserveSolve(metrics.Solve{
		Variant:           c.cfg.Variant.String(),
		Status:            res.Status.String(),
		HighLevelExpanded: res.Stats.HighLevelExpanded,
		LowLevelCalls:     res.Stats.LowLevelCalls,
		LowLevelExpanded:  res.Stats.LowLevelExpanded,
		Duration:          res.Stats.WallTime,
	})
	span.SetAttributes(
		attribute.String("status", res.Status.String()),
		attribute.Int("cost", res.Stats.Cost),
		attribute.Int("high_level_expanded", res.Stats.HighLevelExpanded),
		attribute.Int("low_level_calls", res.Stats.LowLevelCalls),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, res.Status.String())
	}
	return res, err
}

// search is the state of one solve. Nothing in it outlives the call.
type search struct {
	cfg      Config
	rules    rules
	inst     *core.Instance
	graph    core.Graph
	dist     [][]int
	horizon  int
	tree     constraintTree
	frontier *frontier
	stats    Stats

	incumbent *ctNode
	log       *slog.Logger
	obs       Observer
	started   time.Time
}

func newSearch(cfg Config, inst *core.Instance, log *slog.Logger) *search {
	r := cfg.rules()
	obs := cfg.Observer
	if obs == nil {
		obs = NopObserver{}
	}
	horizon := cfg.Horizon
	if horizon == 0 {
		horizon = inst.Workspace.NumFreeCells() * max(1, len(inst.Agents))
	}
	return &search{
		cfg:      cfg,
		rules:    r,
		inst:     inst,
		graph:    inst.Workspace,
		dist:     make([][]int, len(inst.Agents)),
		horizon:  horizon,
		frontier: newFrontier(r.highWeight, r.key()),
		log:      log.With("variant", cfg.Variant.String()),
		obs:      obs,
	}
}

func (s *search) run(ctx context.Context) (*Result, error) {
	s.started = time.Now()

	// Step 1: root node with independent paths
	root, err := s.buildRoot(ctx)
	if err != nil {
		if errors.Is(err, ErrAgentInfeasible) {
			s.log.Info("root infeasible", "err", err)
			return s.finish(StatusInfeasible, nil), fmt.Errorf("%w: %w", ErrInstanceInfeasible, err)
		}
		return s.timeout(err)
	}
	s.insert(root)

	// Step 2: best-first over the constraint tree
	for {
		if err := s.checkLimits(ctx); err != nil {
			return s.timeout(err)
		}
		if s.obs.ShouldPause() {
			s.obs.WaitForStep()
		}

		node := s.frontier.pop()
		if node == nil {
			s.log.Info("frontier exhausted", "generated", s.stats.HighLevelGenerated)
			return s.finish(StatusInfeasible, nil), ErrInstanceInfeasible
		}
		s.obs.OnNodeExpanded(node.info())

		if len(node.conflicts) == 0 {
			sol, err := s.solution(node)
			if err != nil {
				return s.finish(StatusInfeasible, nil), err
			}
			s.obs.OnSolutionFound(node.info(), sol)
			res := s.finish(StatusSolved, node)
			res.Solution = sol
			s.log.Info("solved",
				"cost", sol.SumOfCosts,
				"makespan", sol.Makespan,
				"expanded", s.stats.HighLevelExpanded,
				"low_level_calls", s.stats.LowLevelCalls)
			return res, nil
		}

		s.stats.HighLevelExpanded++
		conflict := selectConflict(node.conflicts, s.cfg.PrioritizeConflicts)
		s.obs.OnConflictSelected(node.id, conflict)
		s.log.Debug("expand",
			"node", node.id,
			"cost", node.cost,
			"lower_bound", node.lowerBound,
			"conflicts", len(node.conflicts),
			"conflict", conflict.String())

		// Step 3: branch, replanning the constrained agent of each child
		children, err := s.branch(ctx, node, conflict)
		if err != nil {
			return s.timeout(err)
		}

		if s.cfg.BypassConflicts && conflict.Class != Cardinal {
			if b := s.bypass(node, children); b != nil {
				s.stats.Bypasses++
				s.insert(b)
				s.tree.release(node)
				continue
			}
		}
		for _, child := range children {
			if child != nil {
				s.insert(child)
			}
		}
		s.tree.release(node)
	}
}

// buildRoot plans every agent independently and concurrently.
func (s *search) buildRoot(ctx context.Context) (*ctNode, error) {
	n := len(s.inst.Agents)
	results := make([]*lowLevelResult, n)

	g, gctx := errgroup.WithContext(ctx)
	for i, agent := range s.inst.Agents {
		g.Go(func() error {
			s.dist[i] = DistanceTable(s.graph, agent.Goal)
			res, err := spaceTimeAStar(gctx, &lowLevelRequest{
				graph:   s.graph,
				agent:   agent,
				dist:    s.dist[i],
				table:   newConstraintTable(agent.ID, nil),
				horizon: s.horizon,
				weight:  s.rules.lowWeight,
			})
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	root := &ctNode{
		parent:    -1,
		replanned: -1,
		paths:  make([]core.Path, n),
		costs:  make([]int, n),
		bounds: make([]int, n),
		mdds:   make([]*mdd, n),
	}
	for i, res := range results {
		s.stats.LowLevelCalls++
		s.stats.LowLevelExpanded += res.expanded
		root.paths[i] = res.path
		root.costs[i] = res.cost
		root.bounds[i] = res.lowerBound
		root.cost += res.cost
		root.lowerBound += res.lowerBound
		if s.cfg.PrioritizeConflicts && res.cost == res.lowerBound {
			root.mdds[i] = buildMDD(s.graph, s.dist[i], s.inst.Agents[i], newConstraintTable(core.AgentID(i), nil), res.cost)
		}
	}
	root.conflicts = FindAllConflicts(root.paths, s.cfg.TargetReasoning)
	s.classifyAll(root.conflicts, root.mdds)
	return root, nil
}

// childSpec is one side of a branch: the agent to replan and what it gains.
type childSpec struct {
	agent       core.AgentID
	constraints []Constraint
}

// resolve turns a conflict into the constraints of each child.
func (s *search) resolve(c Conflict) []childSpec {
	switch c.Kind {
	case EdgeConflict:
		return []childSpec{
			{c.Agent1, []Constraint{{Agent: c.Agent1, Kind: EdgeConstraint, From: c.From, Loc: c.Loc, Time: c.Time}}},
			{c.Agent2, []Constraint{{Agent: c.Agent2, Kind: EdgeConstraint, From: c.Loc, Loc: c.From, Time: c.Time}}},
		}
	case TargetConflict:
		// The settled agent must stay on the move past Time, or the passing
		// agent must keep off the goal from Time on.
		return []childSpec{
			{c.Agent1, []Constraint{{Agent: c.Agent1, Kind: LengthConstraint, Loc: c.Loc, Time: c.Time}}},
			{c.Agent2, []Constraint{{Agent: c.Agent2, Kind: VertexConstraint, Loc: c.Loc, Time: c.Time, Permanent: true}}},
		}
	default:
		return []childSpec{
			{c.Agent1, []Constraint{{Agent: c.Agent1, Kind: VertexConstraint, Loc: c.Loc, Time: c.Time}}},
			{c.Agent2, []Constraint{{Agent: c.Agent2, Kind: VertexConstraint, Loc: c.Loc, Time: c.Time}}},
		}
	}
}

// branch builds the children of node. Infeasible children come back nil.
// The low-level searches run concurrently and are joined before returning.
func (s *search) branch(ctx context.Context, node *ctNode, c Conflict) ([]*ctNode, error) {
	specs := s.resolve(c)
	children := make([]*ctNode, len(specs))
	expanded := make([]int, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			child, n, err := s.makeChild(gctx, node, spec)
			expanded[i] = n
			if errors.Is(err, ErrAgentInfeasible) {
				return nil
			}
			if err != nil {
				return err
			}
			children[i] = child
			return nil
		})
	}
	err := g.Wait()
	s.stats.LowLevelCalls += len(specs)
	for _, n := range expanded {
		s.stats.LowLevelExpanded += n
	}
	if err != nil {
		return nil, err
	}
	return children, nil
}

// makeChild replans spec.agent under the parent's constraints plus the new
// ones. It must not touch shared search state other than reading.
func (s *search) makeChild(ctx context.Context, parent *ctNode, spec childSpec) (*ctNode, int, error) {
	a := spec.agent
	agent := s.inst.Agents[a]
	constraints := append(s.tree.constraintsFor(parent.id, a), spec.constraints...)
	table := newConstraintTable(a, constraints)

	req := &lowLevelRequest{
		graph:   s.graph,
		agent:   agent,
		dist:    s.dist[a],
		table:   table,
		horizon: s.horizon,
		weight:  s.rules.lowWeight,
		floor:   parent.bounds[a],
	}
	if req.weight > 1 {
		req.others = newReservationTable(parent.paths, a)
	}
	res, err := spaceTimeAStar(ctx, req)
	if err != nil {
		return nil, 0, err
	}

	child := &ctNode{
		parent:    parent.id,
		depth:     parent.depth + 1,
		delta:     spec.constraints,
		replanned: a,
		paths:     append([]core.Path(nil), parent.paths...),
		costs:     append([]int(nil), parent.costs...),
		bounds:    append([]int(nil), parent.bounds...),
		mdds:      append([]*mdd(nil), parent.mdds...),
	}
	child.paths[a] = res.path
	child.costs[a] = res.cost
	child.bounds[a] = res.lowerBound
	child.cost = parent.cost - parent.costs[a] + res.cost
	child.lowerBound = parent.lowerBound - parent.bounds[a] + res.lowerBound
	child.mdds[a] = nil
	if s.cfg.PrioritizeConflicts && res.cost == res.lowerBound {
		child.mdds[a] = buildMDD(s.graph, s.dist[a], agent, table, res.cost)
	}

	// Incremental re-detection: keep conflicts not involving a, rescan a.
	conflicts := make([]Conflict, 0, len(parent.conflicts))
	for _, pc := range parent.conflicts {
		if !involves(pc, a) {
			conflicts = append(conflicts, pc)
		}
	}
	fresh := agentConflicts(a, child.paths, s.cfg.TargetReasoning)
	s.classifyAll(fresh, child.mdds)
	conflicts = append(conflicts, fresh...)
	sortConflicts(conflicts)
	child.conflicts = conflicts

	return child, res.expanded, nil
}

// bypass adopts a child's path into a copy of node when it removes conflicts
// without raising the cost. It returns nil when no child qualifies.
//
// The copy keeps only node's constraints, so the replanned agent's bound and
// MDD revert to node's: the child's were computed under a tighter set.
func (s *search) bypass(node *ctNode, children []*ctNode) *ctNode {
	for _, child := range children {
		if child == nil || child.cost > node.cost || len(child.conflicts) >= len(node.conflicts) {
			continue
		}
		a := child.replanned
		b := *child
		b.parent = node.id
		b.depth = node.depth
		b.delta = nil
		b.bounds = slices.Clone(child.bounds)
		b.bounds[a] = node.bounds[a]
		b.lowerBound = child.lowerBound - child.bounds[a] + node.bounds[a]
		b.mdds = slices.Clone(child.mdds)
		b.mdds[a] = nil
		if child.costs[a] == node.costs[a] {
			b.mdds[a] = node.mdds[a]
		}
		b.conflicts = slices.Clone(child.conflicts)
		s.classifyAll(b.conflicts, b.mdds)
		return &b
	}
	return nil
}

func (s *search) classifyAll(cs []Conflict, mdds []*mdd) {
	if !s.cfg.PrioritizeConflicts {
		return
	}
	for i := range cs {
		classify(&cs[i], mdds)
	}
}

// insert adds n to the arena and the frontier.
func (s *search) insert(n *ctNode) {
	s.tree.add(n)
	s.frontier.push(n)
	s.stats.HighLevelGenerated++
	if len(n.conflicts) == 0 && (s.incumbent == nil || n.cost < s.incumbent.cost) {
		s.incumbent = n
	}
	s.obs.OnNodeGenerated(n.info())
}

func (s *search) checkLimits(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.MaxNodes > 0 && s.stats.HighLevelExpanded >= s.cfg.MaxNodes {
		return fmt.Errorf("node budget of %d exhausted", s.cfg.MaxNodes)
	}
	return nil
}

// timeout reports a resource limit, with the incumbent for bounded variants.
func (s *search) timeout(cause error) (*Result, error) {
	var best *ctNode
	if s.rules.bounded() && s.incumbent != nil && s.incumbent.paths != nil {
		best = s.incumbent
	}
	res := s.finish(StatusTimeout, best)
	if best != nil {
		if sol, err := s.solution(best); err == nil {
			res.Solution = sol
		}
	}
	s.log.Info("search stopped", "cause", cause, "expanded", s.stats.HighLevelExpanded, "incumbent", res.Solution != nil)
	return res, fmt.Errorf("%w: %w", ErrResourceLimit, cause)
}

func (s *search) finish(status Status, node *ctNode) *Result {
	s.stats.WallTime = time.Since(s.started)
	if node != nil {
		s.stats.Cost = node.cost
		s.stats.LowerBound = node.lowerBound
	} else if s.frontier.Len() > 0 {
		s.stats.LowerBound = s.frontier.minKey()
	}
	return &Result{Status: status, Stats: s.stats}
}

// solution verifies node and converts it into a Solution.
func (s *search) solution(node *ctNode) (*core.Solution, error) {
	if err := VerifyPaths(s.inst, node.paths); err != nil {
		return nil, err
	}
	return core.NewSolution(node.paths), nil
}

// VerifyPaths checks that paths are well-formed and pairwise conflict-free.
func VerifyPaths(inst *core.Instance, paths []core.Path) error {
	if len(paths) != len(inst.Agents) {
		return fmt.Errorf("algo: %d paths for %d agents", len(paths), len(inst.Agents))
	}
	for i, a := range inst.Agents {
		p := paths[i]
		if len(p) == 0 || p[0] != a.Start || p.Goal() != a.Goal {
			return fmt.Errorf("algo: path of agent %d does not join start and goal", a.ID)
		}
		for t := 1; t < len(p); t++ {
			if p[t] == p[t-1] {
				continue
			}
			if !adjacent(inst.Workspace, p[t-1], p[t]) {
				return fmt.Errorf("algo: agent %d jumps from %d to %d at %d", a.ID, p[t-1], p[t], t)
			}
		}
	}
	if c := FindFirstConflict(paths, false); c != nil {
		return fmt.Errorf("algo: solution has conflict %s", c)
	}
	return nil
}

func adjacent(g core.Graph, from, to core.Location) bool {
	for _, n := range g.Neighbors(from) {
		if n == to {
			return true
		}
	}
	return false
}
