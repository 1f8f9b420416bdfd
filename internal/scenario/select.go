package scenario

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

// ErrNotEnoughRoutes is returned when a scenario cannot supply the requested
// number of distinct routes.
var ErrNotEnoughRoutes = errors.New("scenario: not enough routes")

// ByBuckets picks one unused route from each listed bucket, in order, so
// agent i draws from buckets[i]. Choices are reproducible for a given seed.
func (s *Scenario) ByBuckets(ws *core.Workspace, buckets []int, seed int64) (*core.Instance, error) {
	rng := rand.New(rand.NewSource(seed))
	index := s.Buckets()
	used := make(map[int]bool)

	routes := make([]Route, 0, len(buckets))
	for _, b := range buckets {
		var free []int
		for _, i := range index[b] {
			if !used[i] {
				free = append(free, i)
			}
		}
		if len(free) == 0 {
			if len(index[b]) == 0 {
				return nil, fmt.Errorf("%w: bucket %d not found", ErrNotEnoughRoutes, b)
			}
			return nil, fmt.Errorf("%w: bucket %d exhausted", ErrNotEnoughRoutes, b)
		}
		pick := free[rng.Intn(len(free))]
		used[pick] = true
		routes = append(routes, s.Routes[pick])
	}
	return buildInstance(ws, routes)
}

// Random picks n distinct routes uniformly from the whole scenario.
func (s *Scenario) Random(ws *core.Workspace, n int, seed int64) (*core.Instance, error) {
	if n > len(s.Routes) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrNotEnoughRoutes, n, len(s.Routes))
	}
	routes := append([]Route(nil), s.Routes...)
	sort.SliceStable(routes, func(i, j int) bool { return routeLess(routes[i], routes[j]) })
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(routes), func(i, j int) { routes[i], routes[j] = routes[j], routes[i] })
	return buildInstance(ws, routes[:n])
}

// First takes the first n routes in file order.
func (s *Scenario) First(ws *core.Workspace, n int) (*core.Instance, error) {
	if n > len(s.Routes) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrNotEnoughRoutes, n, len(s.Routes))
	}
	return buildInstance(ws, s.Routes[:n])
}

func routeLess(a, b Route) bool {
	if a.Start != b.Start {
		return a.Start.Row < b.Start.Row || (a.Start.Row == b.Start.Row && a.Start.Col < b.Start.Col)
	}
	if a.Goal.Row != b.Goal.Row {
		return a.Goal.Row < b.Goal.Row
	}
	return a.Goal.Col < b.Goal.Col
}

func buildInstance(ws *core.Workspace, routes []Route) (*core.Instance, error) {
	inst := core.NewInstance(ws)
	for i, r := range routes {
		if !ws.InBounds(r.Start) || !ws.InBounds(r.Goal) {
			return nil, fmt.Errorf("%w: route %d (%v -> %v) is off the %dx%d map",
				core.ErrInvalidInstance, i, r.Start, r.Goal, ws.Width, ws.Height)
		}
		inst.AddAgent(r.Start, r.Goal)
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}
