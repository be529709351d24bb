package sdfaux

import (
	"image/color"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

var nanColor = color.RGBA{R: 255, A: 255}

// ColorConversionContours returns a distance to color conversion drawing
// exterior distances orange and interior distances blue with contour bands
// and a white surface line, as popularized by [Inigo Quilez].
// period is the distance at which colors saturate, usually a third of the
// drawn region. NaN distances are drawn red.
//
// [Inigo Quilez]: https://iquilezles.org/articles/distfunctions2d/
func ColorConversionContours(period float32) func(float32) color.Color {
	inv := 1 / period
	outside := ms3.Vec{X: 0.9, Y: 0.6, Z: 0.3}
	inside := ms3.Vec{X: 0.65, Y: 0.85, Z: 1}
	return func(d float32) color.Color {
		if math32.IsNaN(d) {
			return nanColor
		}
		d *= inv
		c := inside
		if d > 0 {
			c = outside
		}
		ad := math32.Abs(d)
		shade := (1 - math32.Exp(-6*ad)) * (0.8 + 0.2*math32.Cos(150*d))
		surface := 1 - ms1.SmoothStep(0, 0.01, ad)
		return color.RGBA{
			R: unorm8(ms1.Interp(shade*c.X, 1, surface)),
			G: unorm8(ms1.Interp(shade*c.Y, 1, surface)),
			B: unorm8(ms1.Interp(shade*c.Z, 1, surface)),
			A: 255,
		}
	}
}

func unorm8(v float32) uint8 {
	return uint8(ms1.Clamp(v, 0, 1)*255 + 0.5)
}
