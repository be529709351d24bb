package glvox

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfmarch"
	"github.com/soypat/sdfmarch/gleval"
)

func voxelSphere(t *testing.T) gleval.SDF3 {
	t.Helper()
	var bld sdfmarch.Builder
	s := bld.Translate(bld.NewSphere(0.25), 0.5, 0.5, 0.5)
	sdf, err := gleval.AssertSDF3(s)
	if err != nil {
		t.Fatal(err)
	}
	return sdf
}

func TestQuantizeDecode(t *testing.T) {
	const minDim = 16
	dec := NewDecoder(minDim)
	step := QuantizationStep(minDim)
	for b := 0; b < 256; b++ {
		d := dec.Decode(byte(b))
		got := Quantize(d, minDim)
		if got != byte(b) {
			t.Errorf("byte %d decoded to %g re-encoded as %d", b, d, got)
		}
	}
	if got := Quantize(0, minDim); got != 4 {
		t.Errorf("zero distance: want texel 4, got %d", got)
	}
	if got := Quantize(-10, minDim); got != 0 {
		t.Errorf("want clamp to 0, got %d", got)
	}
	if got := Quantize(1000, minDim); got != 255 {
		t.Errorf("want clamp to 255, got %d", got)
	}
	if d := dec.Decode(5) - dec.Decode(4); math32.Abs(d-step) > 1e-6 {
		t.Errorf("step mismatch %g != %g", d, step)
	}
}

func TestBakeLayoutAndRoundTrip(t *testing.T) {
	sdf := voxelSphere(t)
	cfg := DefaultBakeConfig()
	vol, err := Bake(sdf, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(vol.Data) != cfg.Width*cfg.Height*cfg.Depth {
		t.Fatalf("want %d bytes, got %d", cfg.Width*cfg.Height*cfg.Depth, len(vol.Data))
	}
	if vol.MinDim() != 16 {
		t.Fatalf("want min dim 16, got %d", vol.MinDim())
	}
	dec := vol.Decoder()
	step := QuantizationStep(vol.MinDim())
	lo, hi := dec.Decode(0), dec.Decode(255)
	offset, maxDim := cellOffset(vol.Dims())
	var vp gleval.VecPool
	for z := 0; z < vol.Depth; z++ {
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				p := ms3.Vec{
					X: (float32(x) + 0.5 + offset.X) / maxDim,
					Y: (float32(y) + 0.5 + offset.Y) / maxDim,
					Z: (float32(z) + 0.5 + offset.Z) / maxDim,
				}
				want, err := gleval.Sample(sdf, p, &vp)
				if err != nil {
					t.Fatal(err)
				}
				got := dec.Decode(vol.Data[x+vol.Width*(y+vol.Height*z)])
				if want < lo || want > hi {
					continue // Clamped by encoding.
				}
				if math32.Abs(got-want) > step {
					t.Fatalf("cell (%d,%d,%d) at %v: want %g, got %g", x, y, z, p, want, got)
				}
			}
		}
	}
}

func TestBakeErrors(t *testing.T) {
	sdf := voxelSphere(t)
	for _, cfg := range []BakeConfig{
		{Width: 0, Height: 1, Depth: 1},
		{Width: 1, Height: -1, Depth: 1},
		{Width: 1, Height: 1, Depth: 0},
	} {
		_, err := Bake(sdf, cfg)
		if err == nil {
			t.Errorf("expected error for %dx%dx%d", cfg.Width, cfg.Height, cfg.Depth)
		}
	}
	_, err := Bake(nil, DefaultBakeConfig())
	if err == nil {
		t.Error("expected error for nil SDF")
	}
}

func TestWrapIndex(t *testing.T) {
	const n = 4
	for _, test := range []struct {
		mode WrapMode
		in   []int
		want []int
	}{
		{mode: ClampToEdge, in: []int{-3, -1, 0, 3, 4, 9}, want: []int{0, 0, 0, 3, 3, 3}},
		{mode: Repeat, in: []int{-5, -1, 0, 3, 4, 9}, want: []int{3, 3, 0, 3, 0, 1}},
		{mode: MirroredRepeat, in: []int{-1, 0, 3, 4, 5, 7, 8, -5}, want: []int{0, 0, 3, 3, 2, 0, 0, 3}},
	} {
		for i, in := range test.in {
			got := test.mode.index(in, n)
			if got != test.want[i] {
				t.Errorf("%s: index(%d)=%d, want %d", test.mode, in, got, test.want[i])
			}
		}
	}
}

func TestFieldSampling(t *testing.T) {
	vol, err := Bake(voxelSphere(t), DefaultBakeConfig())
	if err != nil {
		t.Fatal(err)
	}
	field, err := NewField(vol)
	if err != nil {
		t.Fatal(err)
	}
	dec := vol.Decoder()
	offset, maxDim := cellOffset(vol.Dims())
	// Texel centers return the stored value exactly.
	for _, cell := range [][3]int{{0, 0, 0}, {31, 7, 15}, {63, 15, 31}, {10, 3, 20}} {
		p := ms3.Vec{
			X: (float32(cell[0]) + 0.5 + offset.X) / maxDim,
			Y: (float32(cell[1]) + 0.5 + offset.Y) / maxDim,
			Z: (float32(cell[2]) + 0.5 + offset.Z) / maxDim,
		}
		want := dec.Decode(vol.At(cell[0], cell[1], cell[2]))
		got, err := gleval.Sample(field, p, nil)
		if err != nil {
			t.Fatal(err)
		}
		if math32.Abs(got-want) > 1e-3 {
			t.Errorf("cell %v: want %g, got %g", cell, want, got)
		}
	}
	// Repeat addressing makes the field periodic with the grid's world extent.
	period := ms3.Scale(1/maxDim, vol.Dims())
	p := ms3.Vec{X: 0.3, Y: 0.45, Z: 0.6}
	base, _ := gleval.Sample(field, p, nil)
	for _, shift := range []ms3.Vec{{X: period.X}, {Y: -period.Y}, {Z: 2 * period.Z}} {
		got, _ := gleval.Sample(field, ms3.Add(p, shift), nil)
		if math32.Abs(got-base) > 1e-3 {
			t.Errorf("shift %v: want %g, got %g", shift, base, got)
		}
	}
	// Grid center is inside the sphere.
	center, _ := gleval.Sample(field, ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, nil)
	if center > 0 {
		t.Errorf("want negative distance at sphere center, got %g", center)
	}
	bb := field.Bounds()
	if bb.Min.X != 0 || bb.Max.X != 1 || math32.Abs(bb.Min.Y-0.375) > 1e-6 || math32.Abs(bb.Max.Y-0.625) > 1e-6 {
		t.Errorf("unexpected bounds %+v", bb)
	}
}

func TestFieldClamp(t *testing.T) {
	vol := &Volume{Width: 2, Height: 2, Depth: 2, Data: []byte{0, 10, 20, 30, 40, 50, 60, 70}}
	field, err := NewField(vol)
	if err != nil {
		t.Fatal(err)
	}
	dec := vol.Decoder()
	far, _ := gleval.Sample(field, ms3.Vec{X: -5, Y: -5, Z: -5}, nil)
	if want := dec.Decode(0); math32.Abs(far-want) > 1e-5 {
		t.Errorf("clamp low: want %g, got %g", want, far)
	}
	far, _ = gleval.Sample(field, ms3.Vec{X: 5, Y: 5, Z: 5}, nil)
	if want := dec.Decode(70); math32.Abs(far-want) > 1e-5 {
		t.Errorf("clamp high: want %g, got %g", want, far)
	}
	// Midpoint of the grid averages all eight texels.
	mid, _ := gleval.Sample(field, ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, nil)
	if want := dec.Decode(35); math32.Abs(mid-want) > 1e-4 {
		t.Errorf("midpoint: want %g, got %g", want, mid)
	}

	_, err = NewField(&Volume{Width: 2, Height: 2, Depth: 2, Data: make([]byte, 7)})
	if err == nil {
		t.Error("expected data length error")
	}
}

func TestWrapGLEnum(t *testing.T) {
	want := map[WrapMode]int32{ClampToEdge: 0x812F, Repeat: 0x2901, MirroredRepeat: 0x8370}
	for mode, enum := range want {
		if mode.GLEnum() != enum {
			t.Errorf("%s: want %#x, got %#x", mode, enum, mode.GLEnum())
		}
	}
}
