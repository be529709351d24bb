package sdfmarch

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfmarch/gleval"
)

// minReduce takes element-wise minimum of arguments and stores to first argument.
func minReduce(d1AndDst, d2 []float32) {
	for i := range d1AndDst {
		d1AndDst[i] = math32.Min(d1AndDst[i], d2[i])
	}
}

func evaluateSDF3(obj interface{ Bounds() ms3.Box }, pos []ms3.Vec, dist []float32, userData any) error {
	sdf, err := gleval.AssertSDF3(obj)
	if err != nil {
		return err
	}
	return sdf.Evaluate(pos, dist, userData)
}

func (s *sphere) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	r := s.r
	for i, p := range pos {
		dist[i] = ms3.Norm(p) - r
	}
	return nil
}

func (b *box) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	for i, p := range pos {
		q := ms3.Sub(ms3.AbsElem(p), b.half)
		dist[i] = ms3.Norm(ms3.MaxElem(q, ms3.Vec{}))
	}
	return nil
}

func (g *ground) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	for i, p := range pos {
		dist[i] = p.Y - g.h
	}
	return nil
}

// Evaluate implements [gleval.SDF3].
func (u *OpUnion) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	u.mustValidate()
	vp, err := gleval.GetVecPool(userData)
	if err != nil {
		return err
	}
	auxDist := vp.Float.Acquire(len(dist))
	defer vp.Float.Release(auxDist)
	err = evaluateSDF3(u.joined[0], pos, dist, userData)
	if err != nil {
		return err
	}
	for _, shape := range u.joined[1:] {
		err = evaluateSDF3(shape, pos, auxDist, userData)
		if err != nil {
			return err
		}
		minReduce(dist, auxDist)
	}
	return nil
}

func (t *translate) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	sdf, err := gleval.AssertSDF3(t.s)
	if err != nil {
		return err
	}
	vp, err := gleval.GetVecPool(userData)
	if err != nil {
		return err
	}
	moved := vp.V3.Acquire(len(pos))
	defer vp.V3.Release(moved)
	for i, p := range pos {
		moved[i] = ms3.Sub(p, t.p)
	}
	return sdf.Evaluate(moved, dist, userData)
}

func (t *tileXZ) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	sdf, err := gleval.AssertSDF3(t.s)
	if err != nil {
		return err
	}
	vp, err := gleval.GetVecPool(userData)
	if err != nil {
		return err
	}
	cells := vp.V3.Acquire(len(pos))
	defer vp.V3.Release(cells)
	for i, p := range pos {
		cells[i] = t.cell(p)
	}
	return sdf.Evaluate(cells, dist, userData)
}

func (s *scale) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	sdf, err := gleval.AssertSDF3(s.s)
	if err != nil {
		return err
	}
	vp, err := gleval.GetVecPool(userData)
	if err != nil {
		return err
	}
	scaled := vp.V3.Acquire(len(pos))
	defer vp.V3.Release(scaled)
	factor := s.scale
	factorInv := 1. / s.scale
	for i, p := range pos {
		scaled[i] = ms3.Scale(factorInv, p)
	}
	err = sdf.Evaluate(scaled, dist, userData)
	if err != nil {
		return err
	}
	for i := range dist {
		dist[i] *= factor
	}
	return nil
}
