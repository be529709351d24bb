package glvox

import (
	"fmt"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfmarch/gleval"
)

// BakeConfig sets the grid resolution and addressing of a baked [Volume].
// Axes may differ in resolution; the grid is then centered inside the cube
// [0,1]³ along its largest axis.
type BakeConfig struct {
	Width, Height, Depth int
	Wrap                 [3]WrapMode
	// UserData is passed to the SDF on evaluation. If nil a new [gleval.VecPool] is used.
	UserData any
}

// DefaultBakeConfig returns the 64x16x32 repeating grid used by the voxel sphere scene.
func DefaultBakeConfig() BakeConfig {
	return BakeConfig{
		Width:  64,
		Height: 16,
		Depth:  32,
		Wrap:   [3]WrapMode{Repeat, Repeat, Repeat},
	}
}

// Bake samples sdf once per cell and quantizes the result into a [Volume] of exactly
// Width*Height*Depth bytes ordered z outer, y middle, x inner.
// Cell i of an axis of resolution dim is sampled at (i + 0.5 + (maxDim-dim)/2) / maxDim,
// where maxDim is the largest resolution of the three axes.
func Bake(sdf gleval.SDF3, cfg BakeConfig) (*Volume, error) {
	if sdf == nil {
		return nil, errNilSDF
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Depth <= 0 {
		return nil, fmt.Errorf("zero or negative bake dimension %dx%dx%d", cfg.Width, cfg.Height, cfg.Depth)
	}
	vol := &Volume{
		Width:  cfg.Width,
		Height: cfg.Height,
		Depth:  cfg.Depth,
		Wrap:   cfg.Wrap,
		Data:   make([]byte, 0, cfg.Width*cfg.Height*cfg.Depth),
	}
	userData := cfg.UserData
	if userData == nil {
		userData = &gleval.VecPool{}
	}
	minDim := vol.MinDim()
	offset, maxDim := cellOffset(vol.Dims())
	invMax := 1 / maxDim
	// One z slice per batch.
	slice := cfg.Width * cfg.Height
	pos := make([]ms3.Vec, slice)
	dist := make([]float32, slice)
	for z := 0; z < cfg.Depth; z++ {
		pz := (float32(z) + 0.5 + offset.Z) * invMax
		for y := 0; y < cfg.Height; y++ {
			py := (float32(y) + 0.5 + offset.Y) * invMax
			row := pos[y*cfg.Width : (y+1)*cfg.Width]
			for x := range row {
				row[x] = ms3.Vec{X: (float32(x) + 0.5 + offset.X) * invMax, Y: py, Z: pz}
			}
		}
		err := sdf.Evaluate(pos, dist, userData)
		if err != nil {
			return nil, fmt.Errorf("baking slice z=%d: %w", z, err)
		}
		for _, d := range dist {
			vol.Data = append(vol.Data, Quantize(d, minDim))
		}
	}
	return vol, nil
}
