package sdfaux

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Overlay draws multi line debug text on the top left corner of a frame.
type Overlay struct {
	face   font.Face
	fg, bg image.Image
	margin int
}

// NewOverlay returns an overlay drawing text with the TrueType font ttf at size points.
// If ttf is empty the fixed 7x13 basic font is used and size is ignored.
func NewOverlay(ttf []byte, size float64) (*Overlay, error) {
	ov := &Overlay{
		face:   basicfont.Face7x13,
		fg:     image.White,
		bg:     image.NewUniform(color.RGBA{A: 160}),
		margin: 4,
	}
	if len(ttf) == 0 {
		return ov, nil
	}
	if size <= 0 {
		return nil, errors.New("overlay font size must be positive")
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	ov.face = truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	return ov, nil
}

// Bounds returns the rectangle text covers when drawn, background included.
func (ov *Overlay) Bounds(text string) image.Rectangle {
	lines := strings.Split(text, "\n")
	var width fixed.Int26_6
	for _, line := range lines {
		width = max(width, font.MeasureString(ov.face, line))
	}
	h := ov.lineHeight() * len(lines)
	return image.Rect(0, 0, width.Ceil()+2*ov.margin, h+2*ov.margin)
}

// Draw draws text over dst on a translucent background.
func (ov *Overlay) Draw(dst draw.Image, text string) {
	origin := dst.Bounds().Min
	draw.Draw(dst, ov.Bounds(text).Add(origin), ov.bg, image.Point{}, draw.Over)
	d := font.Drawer{Dst: dst, Src: ov.fg, Face: ov.face}
	ascent := ov.face.Metrics().Ascent.Ceil()
	lh := ov.lineHeight()
	for i, line := range strings.Split(text, "\n") {
		d.Dot = fixed.P(origin.X+ov.margin, origin.Y+ov.margin+ascent+i*lh)
		d.DrawString(line)
	}
}

func (ov *Overlay) lineHeight() int {
	m := ov.face.Metrics()
	if m.Height > 0 {
		return m.Height.Ceil()
	}
	return (m.Ascent + m.Descent).Ceil()
}
