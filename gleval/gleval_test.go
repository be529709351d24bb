package gleval

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// radial is the distance to the origin minus one.
type radial struct{}

func (radial) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	for i, p := range pos {
		dist[i] = ms3.Norm(p) - 1
	}
	return nil
}

func (radial) Bounds() ms3.Box {
	return ms3.Box{Min: ms3.Vec{X: -1, Y: -1, Z: -1}, Max: ms3.Vec{X: 1, Y: 1, Z: 1}}
}

func TestSDF3CPUCountsEvaluations(t *testing.T) {
	sdf, err := NewCPUSDF3(radial{})
	if err != nil {
		t.Fatal(err)
	}
	pos := []ms3.Vec{{}, {X: 2}, {Y: -3}}
	dist := make([]float32, len(pos))
	err = sdf.Evaluate(pos, dist, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{-1, 1, 2}
	for i := range want {
		if math32.Abs(dist[i]-want[i]) > 1e-6 {
			t.Errorf("pos %v: want %g, got %g", pos[i], want[i], dist[i])
		}
	}
	d, err := Sample(sdf, ms3.Vec{Z: 0.5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if d != -0.5 {
		t.Errorf("want sample -0.5, got %g", d)
	}
	if sdf.Evaluations() != 4 {
		t.Errorf("want 4 evaluations, got %d", sdf.Evaluations())
	}
	if err := sdf.Evaluate(pos, dist[:1], nil); !errors.Is(err, errMismatchBufferLength) {
		t.Errorf("want length mismatch error, got %v", err)
	}
	if err := sdf.Evaluate(nil, nil, nil); err == nil {
		t.Error("expected error for empty buffers")
	}
	if sdf.Evaluations() != 4 {
		t.Error("failed evaluations should not be counted")
	}
	if sdf.Bounds() != (radial{}).Bounds() {
		t.Error("bounds not forwarded")
	}
}

type boundsOnly struct{}

func (boundsOnly) Bounds() ms3.Box { return ms3.Box{} }

func TestAssertSDF3(t *testing.T) {
	if _, err := AssertSDF3(nil); err == nil {
		t.Error("expected error for nil")
	}
	if _, err := AssertSDF3(boundsOnly{}); err == nil {
		t.Error("expected error for type without Evaluate")
	}
	if _, err := NewCPUSDF3(boundsOnly{}); err == nil {
		t.Error("expected error for type without Evaluate")
	}
}

func TestVecPool(t *testing.T) {
	var vp VecPool
	a := vp.Float.Acquire(8)
	b := vp.Float.Acquire(4)
	if len(a) != 8 || len(b) != 4 {
		t.Fatalf("unexpected buffer lengths %d, %d", len(a), len(b))
	}
	if err := vp.AssertAllReleased(); err == nil {
		t.Error("expected unreleased buffer error")
	}
	if err := vp.Float.Release(a); err != nil {
		t.Fatal(err)
	}
	// A released buffer with enough capacity is reused.
	c := vp.Float.Acquire(6)
	if &c[0] != &a[0] {
		t.Error("released buffer not reused")
	}
	for _, buf := range [][]float32{b, c} {
		if err := vp.Float.Release(buf); err != nil {
			t.Fatal(err)
		}
	}
	if err := vp.Float.Release(c); err == nil {
		t.Error("expected double release error")
	}
	if err := vp.Float.Release(make([]float32, 3)); err == nil {
		t.Error("expected error releasing foreign buffer")
	}
	v := vp.V3.Acquire(3)
	if err := vp.AssertAllReleased(); err == nil {
		t.Error("expected unreleased vec3 buffer error")
	}
	if err := vp.V3.Release(v); err != nil {
		t.Fatal(err)
	}
	if err := vp.AssertAllReleased(); err != nil {
		t.Error(err)
	}
}

type poolHolder struct{ vp *VecPool }

func (h poolHolder) VecPool() *VecPool { return h.vp }

func TestGetVecPool(t *testing.T) {
	vp := new(VecPool)
	for _, userData := range []any{vp, poolHolder{vp: vp}} {
		got, err := GetVecPool(userData)
		if err != nil {
			t.Fatal(err)
		}
		if got != vp {
			t.Errorf("%T: wrong pool returned", userData)
		}
	}
	for _, userData := range []any{nil, (*VecPool)(nil), poolHolder{}, 42} {
		if _, err := GetVecPool(userData); err == nil {
			t.Errorf("%T: expected error", userData)
		}
	}
}
