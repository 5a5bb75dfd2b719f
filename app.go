package main

import (
	"context"

	"github.com/chazu/facepaint/pkg/command"
	"github.com/chazu/facepaint/pkg/config"
	"github.com/chazu/facepaint/pkg/engine"
	"github.com/chazu/facepaint/pkg/geometry"
	"github.com/chazu/facepaint/pkg/graph"
	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/logging"
	"github.com/chazu/facepaint/pkg/tessellate"
)

// App drives one painted model: scripts are evaluated into commands, the
// commands run through the undo history, and results come back as
// JSON-friendly values.
type App struct {
	engine  *engine.Engine
	model   *geometry.Geometry
	history *command.Manager[geometry.State]
	join    bool
}

// MeshData is one color layer of the painted mesh.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	ColorID  int       `json:"colorId"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// CommandData summarizes an executed command.
type CommandData struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// EvalResult is the full result of running a script.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
	Commands []CommandData   `json:"commands"`
}

// ModelInfo describes the loaded model.
type ModelInfo struct {
	Faces        int      `json:"faces"`
	PaintedFaces int      `json:"paintedFaces"`
	Palette      []string `json:"palette"`
	UsedColors   []int    `json:"usedColors"`
	Triangles    int      `json:"triangles"`
	Problems     []string `json:"problems"`
	CanUndo      bool     `json:"canUndo"`
	CanRedo      bool     `json:"canRedo"`
}

// NewApp wraps model with a script engine and undo history configured by
// cfg.
func NewApp(model *geometry.Geometry, cfg config.Config) *App {
	return &App{
		engine: engine.NewEngine(engine.WithColor(cfg.BrushColor())),
		model:  model,
		history: command.NewManager[geometry.State](command.GeometryTarget{Geometry: model},
			command.WithSnapshotFrequency(cfg.History.SnapshotFrequency)),
		join: cfg.Brush.Join,
	}
}

// Model returns the painted model.
func (a *App) Model() *geometry.Geometry { return a.model }

// Evaluate runs a paint script against the model. Commands run in order;
// the first failing command stops the script and is reported as an error,
// leaving the earlier commands applied and undoable.
func (a *App) Evaluate(ctx context.Context, source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
		Commands: []CommandData{},
	}

	script, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		logging.Logger().Error("evaluate fatal error", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}
	for _, w := range script.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Message})
	}

	for _, c := range script.Commands {
		if err := a.history.Execute(ctx, c, a.join); err != nil {
			logging.Logger().Warn("command failed", "kind", c.Kind, "err", err)
			result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
			break
		}
		result.Commands = append(result.Commands, CommandData{
			ID:          c.ID.String(),
			Kind:        c.Kind.String(),
			Description: c.Description(),
		})
	}

	meshes, err := a.Meshes()
	if err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}
	result.Meshes = meshes
	return result
}

// Undo reverts the last command.
func (a *App) Undo(ctx context.Context) error { return a.history.Undo(ctx) }

// Redo re-applies the last undone command.
func (a *App) Redo(ctx context.Context) error { return a.history.Redo(ctx) }

// Meshes returns the painted mesh split by color, ordered by color id.
func (a *App) Meshes() ([]MeshData, error) {
	m, err := a.model.Mesh("model")
	if err != nil {
		return nil, err
	}
	layers := tessellate.ByColor(m)
	palette := a.model.Palette()
	out := []MeshData{}
	for c := kernel.ColorID(0); int(c) < geometry.MaxPaletteColors; c++ {
		layer, ok := layers[c]
		if !ok {
			continue
		}
		hex := ""
		if col, ok := palette.Color(c); ok {
			hex = col.Hex()
		}
		out = append(out, MeshData{
			Vertices: layer.Vertices,
			Normals:  layer.Normals,
			Indices:  layer.Indices,
			ColorID:  int(c),
			Color:    hex,
		})
	}
	return out, nil
}

// Info summarizes the model.
func (a *App) Info() (ModelInfo, error) {
	m, err := a.model.Mesh("model")
	if err != nil {
		return ModelInfo{}, err
	}
	info := ModelInfo{
		Faces:        a.model.FaceCount(),
		PaintedFaces: len(a.model.PaintedFaces()),
		Palette:      []string{},
		UsedColors:   []int{},
		Triangles:    m.TriangleCount(),
		Problems:     []string{},
		CanUndo:      a.history.CanUndo(),
		CanRedo:      a.history.CanRedo(),
	}
	palette := a.model.Palette()
	for _, c := range palette.Colors {
		info.Palette = append(info.Palette, c.Hex())
	}
	for _, c := range a.model.UsedColors() {
		info.UsedColors = append(info.UsedColors, int(c))
	}
	for _, e := range graph.ValidateAll(a.model.Graph()).Warnings {
		info.Problems = append(info.Problems, e.Error())
	}
	return info, nil
}
