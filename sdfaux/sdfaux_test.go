package sdfaux

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfmarch"
	"github.com/soypat/sdfmarch/glbuild"
	"github.com/soypat/sdfmarch/gleval"
	"github.com/soypat/sdfmarch/glrender"
)

func TestParseSceneKind(t *testing.T) {
	for k := SceneCity; k <= SceneVoxelSphere; k++ {
		got, err := ParseSceneKind(strings.ToUpper(k.String()))
		if err != nil {
			t.Fatal(err)
		}
		if got != k {
			t.Errorf("want %s, got %s", k, got)
		}
	}
	if _, err := ParseSceneKind("mandala"); err == nil {
		t.Error("expected error for unknown scene")
	}
}

func TestNewScene(t *testing.T) {
	for _, test := range []struct {
		kind    SceneKind
		ceiling float32
		voxel   bool
		snippet string
	}{
		{kind: SceneCity, ceiling: 20, snippet: "worldCeiling = 20."},
		{kind: SceneMiniature, ceiling: 20 * sdfmarch.MiniatureScale, snippet: "gridPattern(r)"},
		{kind: SceneVoxelSphere, ceiling: math32.Inf(1), voxel: true, snippet: "uniform sampler3D uVolume;"},
	} {
		scene, err := NewScene(test.kind)
		if err != nil {
			t.Fatal(err)
		}
		if scene.IsVoxel() != test.voxel {
			t.Errorf("%s: want voxel=%v", test.kind, test.voxel)
		}
		if scene.March.Ceiling != test.ceiling {
			t.Errorf("%s: want ceiling %g, got %g", test.kind, test.ceiling, scene.March.Ceiling)
		}
		if err := scene.March.Validate(); err != nil {
			t.Errorf("%s: %s", test.kind, err)
		}
		d, err := gleval.Sample(scene.SDF, scene.Start, &gleval.VecPool{})
		if err != nil {
			t.Fatal(err)
		}
		if d <= 0 {
			t.Errorf("%s: camera starts inside geometry, d=%g", test.kind, d)
		}
		src, err := scene.WriteFragmentShader(glbuild.NewDefaultProgrammer())
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(src, test.snippet) {
			t.Errorf("%s: shader missing %q:\n%s", test.kind, test.snippet, src)
		}
	}
	scene, err := NewScene(SceneVoxelSphere)
	if err != nil {
		t.Fatal(err)
	}
	vol := scene.Volume
	if vol.Width != 64 || vol.Height != 16 || vol.Depth != 32 || len(vol.Data) != 64*16*32 {
		t.Errorf("unexpected volume layout %dx%dx%d (%d bytes)", vol.Width, vol.Height, vol.Depth, len(vol.Data))
	}
	if _, err := NewScene(SceneVoxelSphere + 1); err == nil {
		t.Error("expected error for unknown scene kind")
	}
}

func TestVoxelSceneStart(t *testing.T) {
	scene, err := NewScene(SceneVoxelSphere)
	if err != nil {
		t.Fatal(err)
	}
	ctl, err := scene.NewController(glrender.Viewport{Width: 64, Height: 32})
	if err != nil {
		t.Fatal(err)
	}
	if ctl.Autopilot() {
		t.Error("voxel scene should start under manual control")
	}
	cam := ctl.Camera()
	m, err := scene.March.MarchRay(scene.SDF, cam.Position(), cam.Heading(), &gleval.VecPool{})
	if err != nil {
		t.Fatal(err)
	}
	if !m.Hit {
		t.Errorf("view ray from start %v should hit the sphere row: %+v", cam.Position(), m)
	}
	for _, kind := range []SceneKind{SceneCity, SceneMiniature} {
		scene, err := NewScene(kind)
		if err != nil {
			t.Fatal(err)
		}
		ctl, err := scene.NewController(glrender.Viewport{Width: 64, Height: 32})
		if err != nil {
			t.Fatal(err)
		}
		if !ctl.Autopilot() {
			t.Errorf("%s: analytic scenes start on autopilot", kind)
		}
	}
}

func TestRenderImage(t *testing.T) {
	for _, kind := range []SceneKind{SceneCity, SceneMiniature, SceneVoxelSphere} {
		scene, err := NewScene(kind)
		if err != nil {
			t.Fatal(err)
		}
		img, st, err := RenderImage(scene, RenderConfig{Width: 48, Height: 32, Workers: 3, Silent: true})
		if err != nil {
			t.Fatal(err)
		}
		if img.Rect.Dx() != 48 || img.Rect.Dy() != 32 {
			t.Errorf("%s: unexpected image size %v", kind, img.Rect)
		}
		if st.Pixels != 48*32 || st.Hits == 0 {
			t.Errorf("%s: expected some hits, got %+v", kind, st)
		}
	}
	scene, err := NewScene(SceneCity)
	if err != nil {
		t.Fatal(err)
	}
	for _, cfg := range []RenderConfig{
		{Width: 0, Height: 10},
		{Width: 10, Height: 10, Workers: -1},
		{Width: 10, Height: 10, At: -1},
	} {
		if _, _, err := RenderImage(scene, cfg); err == nil {
			t.Errorf("expected error for config %+v", cfg)
		}
	}
	if _, _, err := RenderImage(nil, RenderConfig{Width: 1, Height: 1}); err == nil {
		t.Error("expected error for nil scene")
	}
}

func TestRenderPNGFile(t *testing.T) {
	scene, err := NewScene(SceneCity)
	if err != nil {
		t.Fatal(err)
	}
	ov, err := NewOverlay(nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	filename := filepath.Join(t.TempDir(), "city.png")
	err = RenderPNGFile(filename, scene, RenderConfig{Width: 160, Height: 90, Overlay: ov, Silent: true})
	if err != nil {
		t.Fatal(err)
	}
	img := decodePNG(t, filename)
	if img.Bounds() != image.Rect(0, 0, 160, 90) {
		t.Errorf("unexpected PNG bounds %v", img.Bounds())
	}
}

func TestRenderSlicePNGFile(t *testing.T) {
	var bld sdfmarch.Builder
	sdf, err := gleval.NewCPUSDF3(bld.NewCityGrid(sdfmarch.CityBlockScale))
	if err != nil {
		t.Fatal(err)
	}
	bb := ms3.Box{Min: ms3.Vec{X: -16, Y: -1, Z: -8}, Max: ms3.Vec{X: 16, Y: 1, Z: 8}}
	filename := filepath.Join(t.TempDir(), "slice.png")
	err = RenderSlicePNGFile(filename, sdf, bb, 0, 32, nil)
	if err != nil {
		t.Fatal(err)
	}
	img := decodePNG(t, filename)
	if img.Bounds() != image.Rect(0, 0, 64, 32) {
		t.Errorf("want 64x32 slice preserving aspect, got %v", img.Bounds())
	}
	err = RenderSlicePNGFile(filename, sdf, bb, 0, 0, nil)
	if err == nil {
		t.Error("expected error for zero height")
	}
}

func TestOverlay(t *testing.T) {
	ov, err := NewOverlay(nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	const text = "pos: 0.00, 1.00, 0.00\nhAngle: 0.00\nvAngle: 0.00"
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	ov.Draw(img, text)
	bounds := ov.Bounds(text)
	if bounds.Dy() < 3*13 || bounds.Dx() < len("pos: 0.00, 1.00, 0.00")*7 {
		t.Errorf("overlay bounds too small for three lines: %v", bounds)
	}
	lit := 0
	for y := 0; y < img.Rect.Dy(); y++ {
		for x := 0; x < img.Rect.Dx(); x++ {
			c := img.RGBAAt(x, y)
			if c.R == 0 {
				continue
			}
			if !(image.Point{X: x, Y: y}).In(bounds) {
				t.Fatalf("text drawn outside overlay bounds at (%d,%d)", x, y)
			}
			lit++
		}
	}
	if lit == 0 {
		t.Error("no text drawn")
	}
	if _, err := NewOverlay([]byte("not a font"), 12); err == nil {
		t.Error("expected error parsing invalid font")
	}
	if _, err := NewOverlay([]byte("not a font"), 0); err == nil {
		t.Error("expected error for zero font size")
	}
}

func TestColorConversionContours(t *testing.T) {
	conv := ColorConversionContours(1)
	if c := conv(math32.NaN()); c != color.Color(nanColor) {
		t.Errorf("NaN: want red, got %v", c)
	}
	if c := conv(0).(color.RGBA); c != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("surface: want white, got %v", c)
	}
	out := conv(1).(color.RGBA)
	in := conv(-1).(color.RGBA)
	if out.R <= out.B {
		t.Errorf("exterior should be warm, got %v", out)
	}
	if in.B <= in.R {
		t.Errorf("interior should be cool, got %v", in)
	}
}

func TestUIConfigErrors(t *testing.T) {
	if err := UI(nil, UIConfig{Width: 10, Height: 10}); err == nil {
		t.Error("expected error for nil scene")
	}
	scene, err := NewScene(SceneCity)
	if err != nil {
		t.Fatal(err)
	}
	if err := UI(scene, UIConfig{}); err == nil {
		t.Error("expected error for zero window size")
	}
}

func decodePNG(t *testing.T, filename string) image.Image {
	t.Helper()
	fp, err := os.Open(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()
	img, err := png.Decode(fp)
	if err != nil {
		t.Fatal(err)
	}
	return img
}
