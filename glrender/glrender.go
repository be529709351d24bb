// Package glrender turns camera state into rays and rays into pixels by sphere
// tracing a [gleval.SDF3]. It also holds the per-frame input controller that
// drives the camera from keys, drags and time.
package glrender

import (
	"errors"
	"fmt"
)

// Viewport describes the drawing surface. Width and Height are in device pixels;
// PixelRatio is the number of device pixels per client (logical) pixel.
type Viewport struct {
	Width, Height int
	// PixelRatio of zero is treated as 1.
	PixelRatio float32
}

// Validate returns an error if the viewport has no area.
func (vp Viewport) Validate() error {
	if vp.Width <= 0 || vp.Height <= 0 {
		return fmt.Errorf("zero or negative viewport %dx%d", vp.Width, vp.Height)
	} else if vp.PixelRatio < 0 {
		return errors.New("negative pixel ratio")
	}
	return nil
}

// Aspect returns the client aspect ratio width/height. The pixel ratio applies to
// both axes so it cancels out.
func (vp Viewport) Aspect() float32 {
	return float32(vp.Width) / float32(vp.Height)
}

// ClientHeight returns the viewport height in client pixels, the unit pointer events arrive in.
func (vp Viewport) ClientHeight() float32 {
	pr := vp.PixelRatio
	if pr == 0 {
		pr = 1
	}
	return float32(vp.Height) / pr
}
