package sdfaux

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"runtime"
	"time"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfmarch/glbuild"
	"github.com/soypat/sdfmarch/gleval"
	"github.com/soypat/sdfmarch/glrender"
)

// RenderConfig configures rendering of a single scene frame to an image.
type RenderConfig struct {
	Width, Height int
	// Workers is the number of goroutines marching the frame. If zero the number of CPUs is used.
	Workers int
	// UseGPU evaluates the scene's SDF with an OpenGL compute shader. Requires
	// cgo and an analytic scene. The frame is then marched by a single worker.
	UseGPU bool
	// At is the time since start the frame is rendered at. It places the
	// camera along the autopilot path of scenes that use one.
	At time.Duration
	// Overlay draws the camera state over the frame. Nil disables it.
	Overlay *Overlay
	Silent  bool
}

// Validate checks the configuration is usable.
func (cfg *RenderConfig) Validate() error {
	switch {
	case cfg.Width <= 0 || cfg.Height <= 0:
		return errors.New("render requires positive image dimensions")
	case cfg.Workers < 0:
		return errors.New("negative worker count")
	case cfg.At < 0:
		return errors.New("negative frame time")
	}
	return nil
}

// RenderImage marches one frame of the scene on CPU and returns it with the renderer's statistics.
func RenderImage(scene *Scene, cfg RenderConfig) (*image.RGBA, glrender.FrameStats, error) {
	if scene == nil {
		return nil, glrender.FrameStats{}, errors.New("nil scene")
	}
	err := cfg.Validate()
	if err != nil {
		return nil, glrender.FrameStats{}, err
	}
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	sdf := scene.SDF
	watch := stopwatch()
	if cfg.UseGPU {
		if scene.IsVoxel() {
			return nil, glrender.FrameStats{}, errors.New("GPU evaluation requires an analytic scene")
		}
		log("using GPU")
		terminate, err := gleval.Init1x1GLFW()
		if err != nil {
			return nil, glrender.FrameStats{}, err
		}
		defer terminate()
		programmer := glbuild.NewDefaultProgrammer()
		var source bytes.Buffer
		_, err = programmer.WriteComputeSDF3(&source, scene.Shape)
		if err != nil {
			return nil, glrender.FrameStats{}, err
		}
		invocX, _, _ := programmer.ComputeInvocations()
		sdf, err = gleval.NewComputeGPUSDF3(&source, scene.Shape.Bounds(), invocX)
		if err != nil {
			return nil, glrender.FrameStats{}, fmt.Errorf("instantiating GPU SDF: %w", err)
		}
		workers = 1 // GL calls are bound to this goroutine.
		log("instantiating GPU SDF took", watch())
	}
	ctl, err := scene.NewController(glrender.Viewport{Width: cfg.Width, Height: cfg.Height})
	if err != nil {
		return nil, glrender.FrameStats{}, err
	}
	// No keys are held, only the autopilot moves the camera.
	ctl.Update(&glrender.InputState{}, cfg.At, 0)
	renderer, err := glrender.NewRenderer(scene.March, workers)
	if err != nil {
		return nil, glrender.FrameStats{}, err
	}
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	watch = stopwatch()
	err = renderer.Render(img, sdf, ctl.Uniforms(cfg.At))
	if err != nil {
		return nil, glrender.FrameStats{}, fmt.Errorf("rendering %s scene: %w", scene.Kind, err)
	}
	st := renderer.Stats()
	log("marched", st.Pixels, "rays with", workers, "workers in", watch(), "hits:", percent(st.Hits, st.Pixels), "% skipped:", percent(st.Skipped, st.Pixels), "% SDF evaluations:", st.Evaluations)
	if cfg.Overlay != nil {
		cfg.Overlay.Draw(img, ctl.DebugText())
	}
	return img, st, nil
}

// RenderPNGFile renders one frame of the scene on CPU and saves it as a PNG file with said filename.
func RenderPNGFile(filename string, scene *Scene, cfg RenderConfig) error {
	img, _, err := RenderImage(scene, cfg)
	if err != nil {
		return err
	}
	watch := stopwatch()
	err = writePNG(filename, img)
	if err != nil {
		return err
	}
	if !cfg.Silent {
		fmt.Println("wrote", filename, "in", watch())
	}
	return nil
}

// RenderSlicePNGFile draws the horizontal cross section at height y of sdf over
// the XZ extent of bb and saves it as a PNG file with said filename. The image width
// is sized from picHeight to preserve the aspect ratio of bb.
// If a nil color conversion function is passed then [ColorConversionContours] is used.
func RenderSlicePNGFile(filename string, sdf gleval.SDF3, bb ms3.Box, y float32, picHeight int, colorConversion func(float32) color.Color) error {
	sz := bb.Size()
	if picHeight <= 0 || sz.X <= 0 || sz.Z <= 0 {
		return errors.New("empty slice image")
	}
	if colorConversion == nil {
		colorConversion = ColorConversionContours(math32.Hypot(sz.X, sz.Z) / 3)
	}
	picWidth := int(float32(picHeight) * sz.X / sz.Z)
	img := image.NewRGBA(image.Rect(0, 0, max(picWidth, 1), picHeight))
	renderer, err := glrender.NewSliceRenderer(max(4096, picHeight), colorConversion)
	if err != nil {
		return err
	}
	err = renderer.Render(sdf, bb, y, img, &gleval.VecPool{})
	if err != nil {
		return err
	}
	return writePNG(filename, img)
}

func writePNG(filename string, img image.Image) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = png.Encode(fp, img)
	if err != nil {
		return err
	}
	return fp.Sync()
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

func percent(num, denom int) float32 {
	if denom == 0 {
		return 0
	}
	return math32.Trunc(10000*float32(num)/float32(denom)) / 100
}
