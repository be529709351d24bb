// Package sdfaux wires scenes to the CPU renderer and the interactive OpenGL viewer.
package sdfaux

import (
	"context"
	"errors"
)

// UIConfig configures the interactive viewer.
type UIConfig struct {
	Width, Height int
	// Context cancels the viewer loop when done. May be nil.
	Context context.Context
	// PrintDebug logs the camera state once a second.
	PrintDebug bool
	Silent     bool
}

// UI opens a window rendering the scene on GPU with the same camera controls
// as the CPU renderer: WASD to move, space and shift to rise and sink, arrows
// to turn and mouse drag to look around. It blocks until the window is closed.
// UI must be called from the main goroutine and requires cgo.
func UI(scene *Scene, cfg UIConfig) error {
	if scene == nil {
		return errors.New("nil scene")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.New("UI requires positive window dimensions")
	}
	return ui(scene, cfg)
}
