package core

import (
	"errors"
	"testing"
)

func TestCoordRoundTrip(t *testing.T) {
	w := NewWorkspace(5, 3)
	tests := []struct {
		c    Coord
		want Location
	}{
		{Coord{0, 0}, 0},
		{Coord{0, 4}, 4},
		{Coord{1, 0}, 5},
		{Coord{2, 4}, 14},
	}

	for _, tt := range tests {
		got := w.Loc(tt.c)
		if got != tt.want {
			t.Errorf("Loc(%v) = %d, want %d", tt.c, got, tt.want)
		}
		if back := w.Coord(got); back != tt.c {
			t.Errorf("Coord(%d) = %v, want %v", got, back, tt.c)
		}
	}
}

func TestNeighbors(t *testing.T) {
	w, err := ParseWorkspace(
		"...",
		".@.",
		"...",
	)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		at   Coord
		want []Coord
	}{
		{"corner", Coord{0, 0}, []Coord{{0, 1}, {1, 0}}},
		{"edge next to obstacle", Coord{0, 1}, []Coord{{0, 2}, {0, 0}}},
		{"right middle", Coord{1, 2}, []Coord{{0, 2}, {2, 2}}},
		{"obstacle", Coord{1, 1}, nil},
	}

	for _, tt := range tests {
		got := w.Neighbors(w.Loc(tt.at))
		if len(got) != len(tt.want) {
			t.Errorf("%s: Neighbors(%v) = %v, want %v", tt.name, tt.at, got, tt.want)
			continue
		}
		for i := range got {
			if w.Coord(got[i]) != tt.want[i] {
				t.Errorf("%s: neighbor %d = %v, want %v", tt.name, i, w.Coord(got[i]), tt.want[i])
			}
		}
	}

	if n := w.Neighbors(Location(-1)); len(n) != 0 {
		t.Errorf("out-of-bounds location should have no neighbors, got %v", n)
	}
	if n := w.Neighbors(Location(9)); len(n) != 0 {
		t.Errorf("location past the grid should have no neighbors, got %v", n)
	}
}

func TestParseWorkspaceRejectsRaggedRows(t *testing.T) {
	if _, err := ParseWorkspace("...", ".."); err == nil {
		t.Error("expected error for ragged rows")
	}
	if _, err := ParseWorkspace(".x."); err == nil {
		t.Error("expected error for unknown cell")
	}
}

func TestWorkspaceString(t *testing.T) {
	w, err := ParseWorkspace(".@", "..")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := w.String(), ".@\n..\n"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := w.NumFreeCells(); got != 3 {
		t.Errorf("NumFreeCells() = %d, want 3", got)
	}
}

func TestInstanceValidate(t *testing.T) {
	w, _ := ParseWorkspace(
		"..@",
		"...",
	)

	tests := []struct {
		name    string
		agents  []*Agent
		wantErr bool
	}{
		{"valid", []*Agent{{ID: 0, Start: 0, Goal: 4}, {ID: 1, Start: 1, Goal: 3}}, false},
		{"start on obstacle", []*Agent{{ID: 0, Start: 2, Goal: 4}}, true},
		{"goal out of bounds", []*Agent{{ID: 0, Start: 0, Goal: 6}}, true},
		{"shared start", []*Agent{{ID: 0, Start: 0, Goal: 4}, {ID: 1, Start: 0, Goal: 3}}, true},
		{"shared goal", []*Agent{{ID: 0, Start: 0, Goal: 4}, {ID: 1, Start: 1, Goal: 4}}, true},
		{"ids out of order", []*Agent{{ID: 1, Start: 0, Goal: 4}}, true},
	}

	for _, tt := range tests {
		inst := &Instance{Workspace: w, Agents: tt.agents}
		err := inst.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidInstance) {
			t.Errorf("%s: error %v does not wrap ErrInvalidInstance", tt.name, err)
		}
	}
}

func TestPathAt(t *testing.T) {
	p := Path{3, 4, 5}
	tests := []struct {
		t    int
		want Location
	}{
		{-1, 3},
		{0, 3},
		{2, 5},
		{10, 5},
	}
	for _, tt := range tests {
		if got := p.At(tt.t); got != tt.want {
			t.Errorf("At(%d) = %d, want %d", tt.t, got, tt.want)
		}
	}
	if p.Cost() != 2 {
		t.Errorf("Cost() = %d, want 2", p.Cost())
	}
	if Path(nil).At(0) != NoLocation {
		t.Error("empty path should report NoLocation")
	}
}

func TestNewSolution(t *testing.T) {
	s := NewSolution([]Path{{0, 1, 2}, {5}, {7, 7, 8, 9}})
	if s.SumOfCosts != 5 {
		t.Errorf("SumOfCosts = %d, want 5", s.SumOfCosts)
	}
	if s.Makespan != 3 {
		t.Errorf("Makespan = %d, want 3", s.Makespan)
	}
	if s.Path(3) != nil {
		t.Error("Path of unknown agent should be nil")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	w, err := ParseWorkspace("..", "@.")
	if err != nil {
		t.Fatal(err)
	}
	inst := NewInstance(w)
	inst.AddAgent(Coord{0, 0}, Coord{1, 1})

	cp := inst.Clone()
	cp.Workspace.Unblock(Coord{1, 0})
	cp.Workspace.Block(Coord{0, 1})

	if got := w.String(); got != "..\n@.\n" {
		t.Errorf("original changed: %q", got)
	}
	if got := cp.Workspace.String(); got != ".@\n..\n" {
		t.Errorf("clone = %q", got)
	}
	if len(cp.Agents) != 1 || cp.Agents[0] != inst.Agents[0] {
		t.Errorf("agents not carried over")
	}
}
