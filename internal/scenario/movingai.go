// Package scenario reads and writes benchmark instances in the MovingAI
// formats and builds solver instances from them.
package scenario

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

// ErrFormat is returned for malformed map or scenario files.
var ErrFormat = errors.New("scenario: malformed input")

// passable reports whether a MovingAI terrain character can be entered.
// '.' and 'G' are ground, 'S' is swamp; everything else ('@', 'O', 'T',
// 'W') is blocked.
func passable(ch byte) bool {
	return ch == '.' || ch == 'G' || ch == 'S'
}

// ReadMap parses a MovingAI .map file:
//
//	type octile
//	height H
//	width W
//	map
//	<H rows of W characters>
func ReadMap(r io.Reader) (*core.Workspace, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	height, width := -1, -1
	header := true
	row := 0
	var ws *core.Workspace
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if header {
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "type":
			case "height", "width":
				if len(fields) != 2 {
					return nil, fmt.Errorf("%w: bad header line %q", ErrFormat, line)
				}
				n, err := strconv.Atoi(fields[1])
				if err != nil || n <= 0 {
					return nil, fmt.Errorf("%w: bad %s %q", ErrFormat, fields[0], fields[1])
				}
				if fields[0] == "height" {
					height = n
				} else {
					width = n
				}
			case "map":
				if height < 0 || width < 0 {
					return nil, fmt.Errorf("%w: map section before height and width", ErrFormat)
				}
				ws = core.NewWorkspace(width, height)
				header = false
			default:
				return nil, fmt.Errorf("%w: unknown header %q", ErrFormat, fields[0])
			}
			continue
		}

		if row >= height {
			if strings.TrimSpace(line) == "" {
				continue
			}
			return nil, fmt.Errorf("%w: more than %d rows", ErrFormat, height)
		}
		if len(line) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrFormat, row, len(line), width)
		}
		for col := 0; col < width; col++ {
			if !passable(line[col]) {
				ws.Block(core.Coord{Row: row, Col: col})
			}
		}
		row++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scenario: read map: %w", err)
	}
	if ws == nil {
		return nil, fmt.Errorf("%w: missing map section", ErrFormat)
	}
	if row != height {
		return nil, fmt.Errorf("%w: %d rows, want %d", ErrFormat, row, height)
	}
	return ws, nil
}

// LoadMap reads a .map file from disk.
func LoadMap(path string) (*core.Workspace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	defer f.Close()
	return ReadMap(f)
}

// WriteMap writes ws in the MovingAI .map format.
func WriteMap(w io.Writer, ws *core.Workspace) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "type octile\nheight %d\nwidth %d\nmap\n", ws.Height, ws.Width)
	bw.WriteString(ws.String())
	return bw.Flush()
}

// Route is one start/goal pair of a scenario file.
type Route struct {
	Bucket int
	Start  core.Coord
	Goal   core.Coord
	// Optimal is the octile distance recorded in the file. It is kept for
	// round trips and not used by the solvers.
	Optimal float64
}

// Scenario is a parsed MovingAI .scen file.
type Scenario struct {
	Map    string
	Width  int
	Height int
	Routes []Route
}

// ReadScenario parses a .scen file. The leading "version" line is optional.
// Columns are bucket, map, width, height, start x, start y, goal x, goal y,
// optimal length; x is the column and y the row.
func ReadScenario(r io.Reader) (*Scenario, error) {
	sc := bufio.NewScanner(r)
	s := &Scenario{}
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || fields[0] == "version" {
			continue
		}
		if len(fields) < 8 {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrFormat, lineNo, len(fields))
		}
		ints := make([]int, 0, 7)
		for _, i := range []int{0, 2, 3, 4, 5, 6, 7} {
			n, err := strconv.Atoi(fields[i])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d field %d: %v", ErrFormat, lineNo, i+1, err)
			}
			ints = append(ints, n)
		}
		route := Route{
			Bucket: ints[0],
			Start:  core.Coord{Row: ints[4], Col: ints[3]},
			Goal:   core.Coord{Row: ints[6], Col: ints[5]},
		}
		if len(fields) > 8 {
			opt, err := strconv.ParseFloat(fields[8], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d optimal length: %v", ErrFormat, lineNo, err)
			}
			route.Optimal = opt
		}
		if s.Map == "" {
			s.Map, s.Width, s.Height = fields[1], ints[1], ints[2]
		}
		s.Routes = append(s.Routes, route)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scenario: read scen: %w", err)
	}
	return s, nil
}

// LoadScenario reads a .scen file from disk.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	defer f.Close()
	return ReadScenario(f)
}

// WriteScenario writes s in the MovingAI .scen format, version 1.
func WriteScenario(w io.Writer, s *Scenario) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("version 1\n")
	for _, r := range s.Routes {
		fmt.Fprintf(bw, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%.8f\n",
			r.Bucket, s.Map, s.Width, s.Height,
			r.Start.Col, r.Start.Row, r.Goal.Col, r.Goal.Row, r.Optimal)
	}
	return bw.Flush()
}

// Buckets groups route indices by bucket.
func (s *Scenario) Buckets() map[int][]int {
	out := make(map[int][]int)
	for i, r := range s.Routes {
		out[r.Bucket] = append(out[r.Bucket], i)
	}
	return out
}
