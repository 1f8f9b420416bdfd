package scenario

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

// AgentSpec is the YAML form of one agent.
type AgentSpec struct {
	ID    int        `yaml:"id"`
	Start core.Coord `yaml:"start"`
	Goal  core.Coord `yaml:"goal"`
}

// ReadAgents decodes a YAML agent list and places it on ws.
func ReadAgents(r io.Reader, ws *core.Workspace) (*core.Instance, error) {
	var specs []AgentSpec
	if err := yaml.NewDecoder(r).Decode(&specs); err != nil {
		return nil, fmt.Errorf("%w: agents: %v", ErrFormat, err)
	}
	routes := make([]Route, len(specs))
	for i, a := range specs {
		if a.ID != i {
			return nil, fmt.Errorf("%w: agent at index %d has id %d", ErrFormat, i, a.ID)
		}
		routes[i] = Route{Start: a.Start, Goal: a.Goal}
	}
	return buildInstance(ws, routes)
}

// LoadAgents reads a YAML agent list from disk.
func LoadAgents(path string, ws *core.Workspace) (*core.Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	defer f.Close()
	return ReadAgents(f, ws)
}

// WriteAgents encodes the agents of inst as YAML. The output can be fed back
// through ReadAgents to replay a randomly drawn instance.
func WriteAgents(w io.Writer, inst *core.Instance) error {
	specs := make([]AgentSpec, len(inst.Agents))
	for i, a := range inst.Agents {
		specs[i] = AgentSpec{
			ID:    int(a.ID),
			Start: inst.Workspace.Coord(a.Start),
			Goal:  inst.Workspace.Coord(a.Goal),
		}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(specs); err != nil {
		return fmt.Errorf("scenario: write agents: %w", err)
	}
	return enc.Close()
}
