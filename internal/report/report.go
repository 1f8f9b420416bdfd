// Package report writes solve statistics and solutions.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

// Header is the column order of the stats CSV.
var Header = []string{
	"run_id", "map", "solver", "agents", "hl_bound", "ll_bound",
	"prioritize", "bypass", "target_reasoning", "status",
	"cost", "lower_bound", "hl_expanded", "ll_calls", "ll_expanded",
	"bypasses", "time_ms",
}

// Row is one solve.
type Row struct {
	RunID           string
	Map             string
	Solver          string
	Agents          int
	HighLevelBound  float64
	LowLevelBound   float64
	Prioritize      bool
	Bypass          bool
	TargetReasoning bool
	Status          string
	Stats           algo.Stats
}

// NewRow fills a row from a solver configuration and its result. cfg is the
// zero value for solvers that are not CBS variants.
func NewRow(runID, mapName, solver string, agents int, cfg algo.Config, res *algo.Result) Row {
	r := Row{
		RunID:           runID,
		Map:             mapName,
		Solver:          solver,
		Agents:          agents,
		HighLevelBound:  max(cfg.HighLevelBound, 1),
		LowLevelBound:   max(cfg.LowLevelBound, 1),
		Prioritize:      cfg.PrioritizeConflicts,
		Bypass:          cfg.BypassConflicts,
		TargetReasoning: cfg.TargetReasoning,
		Status:          "error",
	}
	if res != nil {
		r.Status = res.Status.String()
		r.Stats = res.Stats
	}
	return r
}

// Record renders the row in Header order.
func (r Row) Record() []string {
	return []string{
		r.RunID,
		r.Map,
		r.Solver,
		strconv.Itoa(r.Agents),
		strconv.FormatFloat(r.HighLevelBound, 'g', -1, 64),
		strconv.FormatFloat(r.LowLevelBound, 'g', -1, 64),
		strconv.FormatBool(r.Prioritize),
		strconv.FormatBool(r.Bypass),
		strconv.FormatBool(r.TargetReasoning),
		r.Status,
		strconv.Itoa(r.Stats.Cost),
		strconv.Itoa(r.Stats.LowerBound),
		strconv.Itoa(r.Stats.HighLevelExpanded),
		strconv.Itoa(r.Stats.LowLevelCalls),
		strconv.Itoa(r.Stats.LowLevelExpanded),
		strconv.Itoa(r.Stats.Bypasses),
		fmt.Sprintf("%.3f", float64(r.Stats.WallTime.Microseconds())/1000.0),
	}
}

// WriteCSV writes rows, preceded by the header when header is set.
func WriteCSV(w io.Writer, rows []Row, header bool) error {
	writer := csv.NewWriter(w)
	if header {
		if err := writer.Write(Header); err != nil {
			return err
		}
	}
	for _, r := range rows {
		if err := writer.Write(r.Record()); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// AppendCSV appends rows to the file at path, writing the header first when
// the file is new or empty.
func AppendCSV(path string, rows []Row) (err error) {
	info, statErr := os.Stat(path)
	header := errors.Is(statErr, os.ErrNotExist) || (statErr == nil && info.Size() == 0)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteCSV(file, rows, header)
}

// WriteSolution writes one line per agent in ID order:
//
//	agent 0: (0,0)@0 (0,1)@1 (0,2)@2
func WriteSolution(w io.Writer, ws *core.Workspace, sol *core.Solution) error {
	var sb strings.Builder
	for id, p := range sol.Paths {
		fmt.Fprintf(&sb, "agent %d:", id)
		for t, l := range p {
			fmt.Fprintf(&sb, " %s@%d", ws.Coord(l), t)
		}
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// SolverSummary aggregates the rows of one solver.
type SolverSummary struct {
	Name      string
	Runs      int
	Solved    int
	TotalTime time.Duration
	TotalCost int
	Expanded  int
}

// Summarize groups rows by solver, sorted by name.
func Summarize(rows []Row) []SolverSummary {
	by := make(map[string]*SolverSummary)
	for _, r := range rows {
		m, ok := by[r.Solver]
		if !ok {
			m = &SolverSummary{Name: r.Solver}
			by[r.Solver] = m
		}
		m.Runs++
		if r.Status == algo.StatusSolved.String() {
			m.Solved++
			m.TotalTime += r.Stats.WallTime
			m.TotalCost += r.Stats.Cost
			m.Expanded += r.Stats.HighLevelExpanded
		}
	}
	out := make([]SolverSummary, 0, len(by))
	for _, m := range by {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PrintSummary prints a fixed-width table of Summarize(rows).
func PrintSummary(w io.Writer, rows []Row) {
	fmt.Fprintf(w, "%-12s %6s %7s %12s %10s %12s\n",
		"Solver", "Runs", "Solved", "Avg Time(ms)", "Avg Cost", "Avg HL Exp")
	fmt.Fprintln(w, strings.Repeat("-", 64))
	for _, m := range Summarize(rows) {
		avgTime, avgCost, avgExp := 0.0, 0.0, 0.0
		if m.Solved > 0 {
			n := float64(m.Solved)
			avgTime = float64(m.TotalTime.Microseconds()) / 1000.0 / n
			avgCost = float64(m.TotalCost) / n
			avgExp = float64(m.Expanded) / n
		}
		fmt.Fprintf(w, "%-12s %6d %7d %12.2f %10.2f %12.1f\n",
			m.Name, m.Runs, m.Solved, avgTime, avgCost, avgExp)
	}
}
