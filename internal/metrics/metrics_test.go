package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSolve(t *testing.T) {
	before := testutil.ToFloat64(solvesTotal.WithLabelValues("ecbs", "solved"))
	beforeCalls := testutil.ToFloat64(lowLevelCalls.WithLabelValues("ecbs"))

	ObserveSolve(Solve{
		Variant:           "ecbs",
		Status:            "solved",
		HighLevelExpanded: 3,
		LowLevelCalls:     9,
		LowLevelExpanded:  120,
		Duration:          15 * time.Millisecond,
	})

	assert.Equal(t, before+1, testutil.ToFloat64(solvesTotal.WithLabelValues("ecbs", "solved")))
	assert.Equal(t, beforeCalls+9, testutil.ToFloat64(lowLevelCalls.WithLabelValues("ecbs")))
}

func TestWriteTextfile(t *testing.T) {
	ObserveSolve(Solve{Variant: "cbs", Status: "infeasible"})

	path := filepath.Join(t.TempDir(), "cbs.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `cbs_solves_total{status="infeasible",variant="cbs"}`)
}
