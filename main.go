// Command facepaint paints triangle meshes from scripts and writes the
// result as 3MF, STL or a lossless project file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/facepaint/pkg/config"
	"github.com/chazu/facepaint/pkg/geometry"
	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/kernel/sdfx"
	"github.com/chazu/facepaint/pkg/logging"
	"github.com/chazu/facepaint/pkg/threemf"
)

type inputFlags struct {
	in        string
	primitive string
	size      float64
	cells     int
	config    string
	logLevel  string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.in, "in", "", "input model (.3mf, .stl or .json project)")
	cmd.Flags().StringVar(&f.primitive, "primitive", "", "generate a model instead: "+strings.Join(sdfx.Primitives, ", "))
	cmd.Flags().Float64Var(&f.size, "size", 10, "primitive size")
	cmd.Flags().IntVar(&f.cells, "cells", sdfx.DefaultMeshCells, "marching cubes cells for primitives")
	cmd.Flags().StringVar(&f.config, "config", "", "configuration file (.yaml or .toml)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	cmd.MarkFlagsMutuallyExclusive("in", "primitive")
	cmd.MarkFlagsOneRequired("in", "primitive")
}

// setup loads the configuration, installs the logger and builds the model.
func (f *inputFlags) setup() (*App, error) {
	cfg := config.Default()
	if f.config != "" {
		var err error
		if cfg, err = config.Load(f.config); err != nil {
			return nil, err
		}
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	model, err := f.load(cfg)
	if err != nil {
		return nil, err
	}
	return NewApp(model, cfg), nil
}

func (f *inputFlags) load(cfg config.Config) (*geometry.Geometry, error) {
	opts := []geometry.Option{geometry.WithSettings(cfg.GeometrySettings())}
	override, err := cfg.PaletteColors()
	if err != nil {
		return nil, err
	}
	palette := func(p geometry.Palette) geometry.Palette {
		if override != nil {
			p.Replace(override)
		}
		return p
	}

	var faces []kernel.Triangle
	switch ext := strings.ToLower(filepath.Ext(f.in)); {
	case f.primitive != "":
		solid, err := sdfx.Primitive(f.primitive, f.size)
		if err != nil {
			return nil, err
		}
		if faces, err = sdfx.Tessellate(solid, f.cells, 0); err != nil {
			return nil, err
		}
		opts = append(opts, geometry.WithPalette(palette(geometry.DefaultPalette())))
	case ext == ".3mf":
		m, err := threemf.Import(f.in)
		if err != nil {
			return nil, err
		}
		faces = m.Faces
		opts = append(opts, geometry.WithPalette(palette(m.Palette)))
	case ext == ".stl":
		if faces, err = sdfx.LoadSTL(f.in, 0); err != nil {
			return nil, err
		}
		opts = append(opts, geometry.WithPalette(palette(geometry.DefaultPalette())))
	case ext == ".json":
		r, err := os.Open(f.in)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		g, err := geometry.Decode(r, opts...)
		if err != nil {
			return nil, err
		}
		if override != nil {
			if err := g.ReplacePalette(override); err != nil {
				return nil, err
			}
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported input %q", f.in)
	}
	return geometry.New(faces, opts...)
}

func newPaintCmd() *cobra.Command {
	var (
		in                        inputFlags
		script, out, stl, project string
		jsonOut                   bool
	)
	cmd := &cobra.Command{
		Use:   "paint",
		Short: "Run a paint script over a model and write the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := in.setup()
			if err != nil {
				return err
			}
			source, err := os.ReadFile(script)
			if err != nil {
				return err
			}
			result := app.Evaluate(cmd.Context(), string(source))
			for _, w := range result.Warnings {
				logging.Logger().Warn("script warning", "message", w.Message)
			}
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				for _, c := range result.Commands {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", c.ID[:8], c.Description)
				}
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("script failed: %s", result.Errors[0].Message)
			}
			return write(app, out, stl, project)
		},
	}
	in.register(cmd)
	cmd.Flags().StringVar(&script, "script", "", "paint script")
	cmd.Flags().StringVar(&out, "out", "", "write painted 3MF")
	cmd.Flags().StringVar(&stl, "stl", "", "write uncolored STL")
	cmd.Flags().StringVar(&project, "project", "", "write lossless JSON project")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the full result as JSON")
	_ = cmd.MarkFlagRequired("script")
	return cmd
}

func write(app *App, out, stl, project string) error {
	if out == "" && stl == "" && project == "" {
		return nil
	}
	model := app.Model()
	mesh, err := model.Mesh(strings.TrimSuffix(filepath.Base(out), filepath.Ext(out)))
	if err != nil {
		return err
	}
	if out != "" {
		if err := threemf.Export(out, mesh, model.Palette()); err != nil {
			return err
		}
	}
	if stl != "" {
		if err := sdfx.SaveSTL(stl, mesh); err != nil {
			return err
		}
	}
	if project != "" {
		f, err := os.Create(project)
		if err != nil {
			return err
		}
		if err := model.Encode(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func newInfoCmd() *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Describe a model",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := in.setup()
			if err != nil {
				return err
			}
			info, err := app.Info()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
	in.register(cmd)
	return cmd
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "facepaint",
		Short:         "Exact per-face painting of triangle meshes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPaintCmd(), newInfoCmd())
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "facepaint:", err)
		os.Exit(1)
	}
}
