package glvox

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// Field samples a [Volume] as a distance field, with trilinear interpolation between
// texel centers and per axis addressing as configured by the volume's wrap modes.
// It mirrors what a fragment shader reading the volume through a linearly filtered
// sampler3D obtains. Field implements [gleval.SDF3] and is safe for concurrent use.
type Field struct {
	vol    *Volume
	dec    Decoder
	dims   ms3.Vec
	offset ms3.Vec
	maxDim float32
}

// NewField validates vol and returns a distance field reading from it.
func NewField(vol *Volume) (*Field, error) {
	if vol == nil {
		return nil, errNilVolume
	}
	err := vol.Validate()
	if err != nil {
		return nil, err
	}
	f := &Field{
		vol:  vol,
		dec:  vol.Decoder(),
		dims: vol.Dims(),
	}
	f.offset, f.maxDim = cellOffset(f.dims)
	return f, nil
}

// Volume returns the volume the field reads from.
func (f *Field) Volume() *Volume { return f.vol }

// Evaluate implements [gleval.SDF3]. userData is not used.
func (f *Field) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	}
	for i, p := range pos {
		dist[i] = f.at(p)
	}
	return nil
}

// Bounds returns one period of the field: the region the grid cells cover in world space.
func (f *Field) Bounds() ms3.Box {
	inv := 1 / f.maxDim
	return ms3.Box{
		Min: ms3.Scale(inv, f.offset),
		Max: ms3.Scale(inv, ms3.Add(f.offset, f.dims)),
	}
}

// at returns the interpolated distance at world position p. The continuous cell
// coordinate is c = p*maxDim - offset with texel centers at integer+0.5.
func (f *Field) at(p ms3.Vec) float32 {
	c := ms3.Sub(ms3.Scale(f.maxDim, p), f.offset)
	// Texel space where texel centers lie on integers.
	c = ms3.AddScalar(-0.5, c)
	fx, fy, fz := math32.Floor(c.X), math32.Floor(c.Y), math32.Floor(c.Z)
	tx, ty, tz := c.X-fx, c.Y-fy, c.Z-fz
	x0, y0, z0 := int(fx), int(fy), int(fz)

	vol := f.vol
	wx, wy, wz := vol.Wrap[0], vol.Wrap[1], vol.Wrap[2]
	xa, xb := wx.index(x0, vol.Width), wx.index(x0+1, vol.Width)
	ya, yb := wy.index(y0, vol.Height), wy.index(y0+1, vol.Height)
	za, zb := wz.index(z0, vol.Depth), wz.index(z0+1, vol.Depth)

	c00 := lerp(f.texel(xa, ya, za), f.texel(xb, ya, za), tx)
	c10 := lerp(f.texel(xa, yb, za), f.texel(xb, yb, za), tx)
	c01 := lerp(f.texel(xa, ya, zb), f.texel(xb, ya, zb), tx)
	c11 := lerp(f.texel(xa, yb, zb), f.texel(xb, yb, zb), tx)
	c0 := lerp(c00, c10, ty)
	c1 := lerp(c01, c11, ty)
	return f.dec.DecodeTexel(lerp(c0, c1, tz))
}

// texel returns the normalized texel value in [0,1].
func (f *Field) texel(x, y, z int) float32 {
	return float32(f.vol.At(x, y, z)) / 255
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
