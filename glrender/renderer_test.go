package glrender

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfmarch"
	"github.com/soypat/sdfmarch/glbuild"
	"github.com/soypat/sdfmarch/gleval"
)

func renderFrame(t *testing.T, sdf gleval.SDF3, cfg MarchConfig, workers int, cam *Camera, w, h int) (*Renderer, *image.RGBA) {
	t.Helper()
	r, err := NewRenderer(cfg, workers)
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	u := FrameUniforms{Basis: cam.RayBasis(Viewport{Width: w, Height: h}), Origin: cam.Position()}
	err = r.Render(img, sdf, u)
	if err != nil {
		t.Fatal(err)
	}
	return r, img
}

func TestRenderWorkersAgree(t *testing.T) {
	var bld sdfmarch.Builder
	sdf, err := gleval.AssertSDF3(bld.NewCityGrid(sdfmarch.CityBlockScale))
	if err != nil {
		t.Fatal(err)
	}
	cam := NewCamera(ms3.Vec{Y: 1}, 0.3, -0.2)
	const w, h = 33, 21
	r1, img1 := renderFrame(t, sdf, AnalyticMarchConfig(), 1, cam, w, h)
	for _, workers := range []int{2, 5, 64} {
		rn, imgn := renderFrame(t, sdf, AnalyticMarchConfig(), workers, cam, w, h)
		if !bytes.Equal(img1.Pix, imgn.Pix) {
			t.Errorf("%d workers: image differs from single worker render", workers)
		}
		if rn.Stats() != r1.Stats() {
			t.Errorf("%d workers: stats %+v differ from %+v", workers, rn.Stats(), r1.Stats())
		}
	}
	st := r1.Stats()
	if st.Pixels != w*h || st.Hits == 0 || st.Evaluations == 0 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestRenderOrientation(t *testing.T) {
	var bld sdfmarch.Builder
	sdf, err := gleval.AssertSDF3(bld.NewGround(-0.5))
	if err != nil {
		t.Fatal(err)
	}
	cfg := AnalyticMarchConfig()
	cfg.Shade = glbuild.ShadeChecker
	cfg.CheckerScale = 1
	cfg.MissColor = SkyColor
	const w, h = 16, 16
	r, img := renderFrame(t, sdf, cfg, 3, NewCamera(ms3.Vec{Y: 1}, 0, 0), w, h)
	// Bottom fragment row looks down at the ground, top row looks at the sky.
	if m := r.March(w/2, 0); !m.Hit {
		t.Errorf("bottom row should hit ground: %+v", m)
	}
	if m := r.March(w/2, h-1); m.Hit {
		t.Errorf("top row should miss: %+v", m)
	}
	// Image row 0 is the top of the frame.
	sr, sg, sb := rgba8(SkyColor)
	top := img.RGBAAt(w/2, 0)
	if top.R != sr || top.G != sg || top.B != sb || top.A != 255 {
		t.Errorf("top image row should be sky colored, got %v", top)
	}
	bottom := img.RGBAAt(w/2, h-1)
	if bottom.R == sr && bottom.G == sg && bottom.B == sb {
		t.Error("bottom image row should show the ground")
	}
}

func TestRenderLookingDown(t *testing.T) {
	var bld sdfmarch.Builder
	sdf, err := gleval.AssertSDF3(bld.NewGround(-0.5))
	if err != nil {
		t.Fatal(err)
	}
	cam := NewCamera(ms3.Vec{Y: 2}, 0, -MaxPitch)
	r, _ := renderFrame(t, sdf, AnalyticMarchConfig(), 4, cam, 16, 12)
	st := r.Stats()
	if st.Hits != st.Pixels {
		t.Errorf("all rays looking down should hit the ground, got %d/%d", st.Hits, st.Pixels)
	}
}

func TestRenderAboveCeiling(t *testing.T) {
	var bld sdfmarch.Builder
	sdf, err := gleval.AssertSDF3(bld.NewCityGrid(1))
	if err != nil {
		t.Fatal(err)
	}
	cam := NewCamera(ms3.Vec{Y: 30}, 0, 1.4)
	r, img := renderFrame(t, sdf, AnalyticMarchConfig(), 2, cam, 8, 8)
	st := r.Stats()
	if st.Skipped != st.Pixels || st.Evaluations != 0 {
		t.Errorf("rays looking up above the ceiling should be skipped: %+v", st)
	}
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 || img.Pix[i+1] != 0 || img.Pix[i+2] != 0 || img.Pix[i+3] != 255 {
			t.Fatal("expected opaque black frame")
		}
	}
}

func TestRenderReuseSmallerFrame(t *testing.T) {
	var bld sdfmarch.Builder
	sdf, err := gleval.AssertSDF3(bld.NewCityGrid(sdfmarch.CityBlockScale))
	if err != nil {
		t.Fatal(err)
	}
	cam := NewCamera(ms3.Vec{Y: 1}, 0.3, -0.2)
	cfg := AnalyticMarchConfig()
	const workers = 8
	r, err := NewRenderer(cfg, workers)
	if err != nil {
		t.Fatal(err)
	}
	for _, sz := range []image.Point{{X: 64, Y: 64}, {X: 8, Y: 4}} {
		img := image.NewRGBA(image.Rectangle{Max: sz})
		u := FrameUniforms{Basis: cam.RayBasis(Viewport{Width: sz.X, Height: sz.Y}), Origin: cam.Position()}
		err = r.Render(img, sdf, u)
		if err != nil {
			t.Fatal(err)
		}
	}
	fresh, _ := renderFrame(t, sdf, cfg, workers, cam, 8, 4)
	got, want := r.Stats(), fresh.Stats()
	if got != want {
		t.Errorf("reused renderer stats %+v, want %+v", got, want)
	}
	if got.Hits > got.Pixels || got.Skipped > got.Pixels {
		t.Errorf("stats exceed pixel count: %+v", got)
	}
}

func TestRenderErrors(t *testing.T) {
	if _, err := NewRenderer(AnalyticMarchConfig(), 0); err == nil {
		t.Error("expected error for zero workers")
	}
	bad := AnalyticMarchConfig()
	bad.MaxAttempts = 0
	if _, err := NewRenderer(bad, 1); err == nil {
		t.Error("expected error for invalid config")
	}
	r, err := NewRenderer(VoxelMarchConfig(), 3)
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	u := FrameUniforms{Basis: NewCamera(ms3.Vec{}, 0, 0).RayBasis(Viewport{Width: 4, Height: 4})}
	err = r.Render(img, failingSDF{}, u)
	if !errors.Is(err, errFailing) {
		t.Errorf("want evaluation error, got %v", err)
	}
	err = r.Render(image.NewRGBA(image.Rect(0, 0, 0, 4)), failingSDF{}, u)
	if err == nil {
		t.Error("expected error for empty image")
	}
}

func TestSliceRenderer(t *testing.T) {
	var bld sdfmarch.Builder
	sdf, err := gleval.AssertSDF3(bld.NewSphere(1))
	if err != nil {
		t.Fatal(err)
	}
	sr, err := NewSliceRenderer(128, nil)
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	bb := ms3.Box{Min: ms3.Vec{X: -2, Y: -2, Z: -2}, Max: ms3.Vec{X: 2, Y: 2, Z: 2}}
	err = sr.Render(sdf, bb, 0, img, nil)
	if err != nil {
		t.Fatal(err)
	}
	if img.GrayAt(5, 5).Y != 0 {
		t.Error("center of slice should be inside sphere")
	}
	if img.GrayAt(0, 0).Y != 255 {
		t.Error("corner of slice should be outside sphere")
	}
}
