// Package glvox implements voxelized signed distance fields: baking an SDF into a
// quantized single channel 3D grid and sampling it back the way a GPU would sample
// a linearly filtered 3D texture.
package glvox

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

// WrapMode is the addressing mode of a volume axis for coordinates outside the grid.
type WrapMode uint8

const (
	ClampToEdge WrapMode = iota
	Repeat
	MirroredRepeat
)

// GLEnum returns the OpenGL enum value for the wrap mode, suitable for glTexParameteri.
func (w WrapMode) GLEnum() int32 {
	switch w {
	case ClampToEdge:
		return 0x812F // GL_CLAMP_TO_EDGE
	case Repeat:
		return 0x2901 // GL_REPEAT
	case MirroredRepeat:
		return 0x8370 // GL_MIRRORED_REPEAT
	}
	panic("invalid WrapMode")
}

func (w WrapMode) String() string {
	switch w {
	case ClampToEdge:
		return "clamp"
	case Repeat:
		return "repeat"
	case MirroredRepeat:
		return "mirrored-repeat"
	}
	return fmt.Sprintf("WrapMode(%d)", uint8(w))
}

// index maps an integer cell index into [0,n) according to w.
func (w WrapMode) index(i, n int) int {
	switch w {
	case Repeat:
		i %= n
		if i < 0 {
			i += n
		}
	case MirroredRepeat:
		period := 2 * n
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - 1 - i
		}
	default:
		if i < 0 {
			i = 0
		} else if i >= n {
			i = n - 1
		}
	}
	return i
}

// Volume is a quantized distance grid. Data is laid out with x varying fastest,
// then y, then z, matching 3D texture upload order. A Volume must not be
// modified after it is handed to a [Field] or uploaded.
type Volume struct {
	Width, Height, Depth int
	// Wrap holds the addressing mode for the x, y and z axes. In OpenGL terms
	// these are the S, T and R texture wrap parameters.
	Wrap [3]WrapMode
	Data []byte
}

// Validate checks dimensions are positive and Data length matches them.
func (vol *Volume) Validate() error {
	if vol.Width <= 0 || vol.Height <= 0 || vol.Depth <= 0 {
		return fmt.Errorf("zero or negative volume dimension %dx%dx%d", vol.Width, vol.Height, vol.Depth)
	}
	if len(vol.Data) != vol.Width*vol.Height*vol.Depth {
		return fmt.Errorf("volume data length %d does not match %dx%dx%d", len(vol.Data), vol.Width, vol.Height, vol.Depth)
	}
	for i, w := range vol.Wrap {
		if w > MirroredRepeat {
			return fmt.Errorf("axis %d: invalid wrap mode %d", i, w)
		}
	}
	return nil
}

// At returns the raw texel at integer cell x, y, z. Coordinates must lie within the grid.
func (vol *Volume) At(x, y, z int) byte {
	return vol.Data[x+vol.Width*(y+vol.Height*z)]
}

// Dims returns the grid dimensions as a vector.
func (vol *Volume) Dims() ms3.Vec {
	return ms3.Vec{X: float32(vol.Width), Y: float32(vol.Height), Z: float32(vol.Depth)}
}

// MinDim returns the smallest grid dimension, the one that sets the quantization step.
func (vol *Volume) MinDim() int {
	return min(vol.Width, vol.Height, vol.Depth)
}

// Decoder returns the decoder that inverts the quantization the volume was baked with.
func (vol *Volume) Decoder() Decoder {
	return NewDecoder(vol.MinDim())
}

// cellOffset returns the offset that centers a grid of dimensions dims inside
// the cube of side max(dims), and that cube's side.
func cellOffset(dims ms3.Vec) (offset ms3.Vec, maxDim float32) {
	maxDim = dims.Max()
	offset = ms3.Scale(0.5, ms3.AddScalar(maxDim, ms3.Scale(-1, dims)))
	return offset, maxDim
}

// Distances are stored as quarter steps of a cell of the smallest axis with 4
// steps of headroom below zero.
const (
	quantStepsPerCell = 4
	quantZero         = 4
)

// Quantize encodes distance d as a texel of a volume whose smallest dimension is minDim.
// The result is round(d*minDim*4 + 4) clamped to [0,255].
func Quantize(d float32, minDim int) byte {
	v := math32.Floor(d*float32(minDim)*quantStepsPerCell + quantZero + 0.5)
	return byte(ms1.Clamp(v, 0, 255))
}

// QuantizationStep returns the distance between two consecutive texel values
// for a volume whose smallest dimension is minDim.
func QuantizationStep(minDim int) float32 {
	return 1 / float32(quantStepsPerCell*minDim)
}

// Decoder inverts [Quantize]. Texel values normalized to [0,1] as sampled by
// a GPU decode as (texel + Bias) * Scale.
type Decoder struct {
	Scale float32
	Bias  float32
}

// NewDecoder returns the decoder for a volume with smallest dimension minDim.
func NewDecoder(minDim int) Decoder {
	return Decoder{
		Scale: 255 / float32(quantStepsPerCell*minDim),
		Bias:  -quantZero / 255.,
	}
}

// Decode returns the distance encoded by texel b.
func (dec Decoder) Decode(b byte) float32 {
	return dec.DecodeTexel(float32(b) / 255)
}

// DecodeTexel returns the distance encoded by normalized texel value t in [0,1].
func (dec Decoder) DecodeTexel(t float32) float32 {
	return (t + dec.Bias) * dec.Scale
}

var (
	errNilSDF               = errors.New("nil SDF")
	errNilVolume            = errors.New("nil volume")
	errMismatchBufferLength = errors.New("position and distance buffer length mismatch")
)
