package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/ctxlog"
	"github.com/elektrokombinacija/cbs-mapf/internal/scenario"
)

type genFlags struct {
	params  scenario.GenParams
	outDir  string
	scaling bool
}

// scalingSizes are the square map sides written by --scaling.
var scalingSizes = []int{16, 32, 64, 128}

func newGenCmd() *cobra.Command {
	f := &genFlags{}
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a random MovingAI map and scenario",
		Example: `  cbs gen --width 32 --height 32 --density 0.2 --routes 100 --out-dir maps
  cbs gen --scaling --density 0.1 --out-dir maps`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(cmd, f)
		},
	}
	fs := cmd.Flags()
	fs.Int64Var(&f.params.Seed, "seed", 42, "random seed")
	fs.IntVar(&f.params.Width, "width", 32, "map width")
	fs.IntVar(&f.params.Height, "height", 32, "map height")
	fs.Float64Var(&f.params.Density, "density", 0.2, "obstacle density in [0,1)")
	fs.IntVar(&f.params.Routes, "routes", 100, "scenario lines")
	fs.StringVar(&f.params.MapName, "name", "", "base file name (default random-WxH-D)")
	fs.StringVar(&f.outDir, "out-dir", ".", "output directory")
	fs.BoolVar(&f.scaling, "scaling", false, "write one map per size in 16, 32, 64, 128")
	return cmd
}

func runGen(cmd *cobra.Command, f *genFlags) error {
	if err := os.MkdirAll(f.outDir, 0o755); err != nil {
		return err
	}
	if !f.scaling {
		return genOne(cmd, f.outDir, f.params)
	}
	for _, side := range scalingSizes {
		p := f.params
		p.Width, p.Height, p.MapName = side, side, ""
		p.Routes = min(f.params.Routes, side*side/4)
		if err := genOne(cmd, f.outDir, p); err != nil {
			return err
		}
	}
	return nil
}

func genOne(cmd *cobra.Command, dir string, p scenario.GenParams) error {
	name := p.MapName
	if name == "" {
		name = fmt.Sprintf("random-%d-%d-%d", p.Width, p.Height, int(p.Density*100))
	}
	p.MapName = name + ".map"

	ws, err := scenario.GenerateMap(p)
	if err != nil {
		return fmt.Errorf("%w: %v", algo.ErrConfigInvalid, err)
	}
	scen, err := scenario.GenerateScenario(ws, p)
	if err != nil {
		return err
	}

	mapPath := filepath.Join(dir, p.MapName)
	scenPath := filepath.Join(dir, name+".scen")
	if err := writeFile(mapPath, func(f *os.File) error { return scenario.WriteMap(f, ws) }); err != nil {
		return err
	}
	if err := writeFile(scenPath, func(f *os.File) error { return scenario.WriteScenario(f, scen) }); err != nil {
		return err
	}

	ctxlog.FromContext(cmd.Context()).Info("generated",
		"map", mapPath, "scen", scenPath, "routes", len(scen.Routes))
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mapPath, scenPath)
	return nil
}

func writeFile(path string, write func(*os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}
