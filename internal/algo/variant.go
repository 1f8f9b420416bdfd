package algo

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Variant selects the admission and selection rules of the solver.
type Variant int

const (
	VariantCBS   Variant = iota // optimal
	VariantHBCBS                // bounded high level
	VariantLBCBS                // bounded low level
	VariantBCBS                 // both bounded independently
	VariantECBS                 // shared bound, open ordered by lower bound
)

var variantNames = [...]string{"cbs", "hbcbs", "lbcbs", "bcbs", "ecbs"}

func (v Variant) String() string {
	if v < 0 || int(v) >= len(variantNames) {
		return fmt.Sprintf("Variant(%d)", int(v))
	}
	return variantNames[v]
}

// ParseVariant maps a solver name to its Variant.
func ParseVariant(s string) (Variant, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range variantNames {
		if n == name {
			return Variant(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown solver %q", ErrConfigInvalid, s)
}

// DefaultTimeout applies when Config.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// Config configures one solve. It is not modified during the solve.
type Config struct {
	Variant Variant
	// HighLevelBound (w_H) and LowLevelBound (w_L); zero means 1.
	HighLevelBound float64
	LowLevelBound  float64

	PrioritizeConflicts bool
	BypassConflicts     bool
	TargetReasoning     bool

	Timeout time.Duration
	// MaxNodes caps high-level expansions; zero means unlimited.
	MaxNodes int
	// Horizon caps path length; zero derives it from the instance.
	Horizon int

	Observer Observer
}

// DefaultConfig returns an optimal CBS configuration.
func DefaultConfig() Config {
	return Config{
		Variant:        VariantCBS,
		HighLevelBound: 1,
		LowLevelBound:  1,
		Timeout:        DefaultTimeout,
	}
}

func normBound(w float64) float64 {
	if w == 0 {
		return 1
	}
	return w
}

// Validate checks bounds, limits, and which bounds the variant accepts.
func (c Config) Validate() error {
	if c.Variant < VariantCBS || c.Variant > VariantECBS {
		return fmt.Errorf("%w: unknown variant %d", ErrConfigInvalid, int(c.Variant))
	}
	wh, wl := normBound(c.HighLevelBound), normBound(c.LowLevelBound)
	for name, w := range map[string]float64{"high-level": wh, "low-level": wl} {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 1 {
			return fmt.Errorf("%w: %s bound %v must be >= 1", ErrConfigInvalid, name, w)
		}
	}
	switch c.Variant {
	case VariantCBS:
		if wh != 1 || wl != 1 {
			return fmt.Errorf("%w: cbs takes no suboptimality bounds", ErrConfigInvalid)
		}
	case VariantHBCBS:
		if wl != 1 {
			return fmt.Errorf("%w: hbcbs takes only a high-level bound", ErrConfigInvalid)
		}
	case VariantLBCBS:
		if wh != 1 {
			return fmt.Errorf("%w: lbcbs takes only a low-level bound", ErrConfigInvalid)
		}
	case VariantECBS:
		if wh != 1 && wh != wl {
			return fmt.Errorf("%w: ecbs uses the low-level bound for both levels", ErrConfigInvalid)
		}
	}
	if c.Timeout < 0 || c.MaxNodes < 0 || c.Horizon < 0 {
		return fmt.Errorf("%w: negative limit", ErrConfigInvalid)
	}
	return nil
}

// rules is the per-variant admission and selection table.
type rules struct {
	// keyByLowerBound orders the open list by the node lower bound
	// instead of its cost.
	keyByLowerBound bool
	highWeight      float64
	lowWeight       float64
}

func (c Config) rules() rules {
	wh, wl := normBound(c.HighLevelBound), normBound(c.LowLevelBound)
	switch c.Variant {
	case VariantHBCBS:
		return rules{highWeight: wh, lowWeight: 1}
	case VariantLBCBS:
		return rules{highWeight: 1, lowWeight: wl}
	case VariantBCBS:
		return rules{highWeight: wh, lowWeight: wl}
	case VariantECBS:
		return rules{keyByLowerBound: true, highWeight: wl, lowWeight: wl}
	default:
		return rules{highWeight: 1, lowWeight: 1}
	}
}

func (r rules) key() func(*ctNode) int {
	if r.keyByLowerBound {
		return func(n *ctNode) int { return n.lowerBound }
	}
	return func(n *ctNode) int { return n.cost }
}

// bounded reports whether the variant may return a suboptimal solution.
func (r rules) bounded() bool {
	return r.highWeight > 1 || r.lowWeight > 1
}
