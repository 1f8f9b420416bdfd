package observer

import (
	"context"

	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/core"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/state"
)

// Solve runs the CBS variant cfg names on inst with as watching. as is
// active for the duration of the call. inst must not be edited meanwhile;
// callers pass a clone of the instance on screen.
func Solve(ctx context.Context, cfg algo.Config, inst *core.Instance, as *state.AlgoState) (*algo.Result, error) {
	cfg.Observer = NewAlgoStateObserver(as)
	solver, err := algo.NewCBS(cfg)
	if err != nil {
		return nil, err
	}

	as.Start()
	res, err := solver.Solve(ctx, inst)
	as.Finish(err)
	return res, err
}
