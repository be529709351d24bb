package sdfmarch

import (
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfmarch/glbuild"
)

type sphere struct {
	r float32
}

// NewSphere creates a sphere centered at the origin of radius r.
func (bld *Builder) NewSphere(r float32) glbuild.Shader3D {
	if r <= 0 {
		bld.shapeErrorf("zero or negative sphere radius")
	}
	return &sphere{r: r}
}

func (s *sphere) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return nil
}

func (s *sphere) AppendShaderName(b []byte) []byte {
	b = append(b, "sphere"...)
	b = glbuild.AppendFloat(b, 'n', 'p', s.r)
	return b
}

func (s *sphere) AppendShaderBody(b []byte) []byte {
	b = append(b, "return length(p)-"...)
	b = glbuild.AppendFloat(b, '-', '.', s.r)
	b = append(b, ';')
	return b
}

func (s *sphere) Bounds() ms3.Box {
	return ms3.Box{
		Min: ms3.Vec{X: -s.r, Y: -s.r, Z: -s.r},
		Max: ms3.Vec{X: s.r, Y: s.r, Z: s.r},
	}
}

// NewBox creates a box centered at the origin with half extents hx, hy, hz.
// Distance is measured to the box exterior: points inside the box evaluate to zero.
func (bld *Builder) NewBox(hx, hy, hz float32) glbuild.Shader3D {
	if hx <= 0 || hy <= 0 || hz <= 0 {
		bld.shapeErrorf("zero or negative box dimension")
	}
	return &box{half: ms3.Vec{X: hx, Y: hy, Z: hz}}
}

type box struct {
	half ms3.Vec
}

func (s *box) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return nil
}

func (s *box) AppendShaderName(b []byte) []byte {
	b = append(b, "box"...)
	arr := s.half.Array()
	b = glbuild.AppendFloats(b, 0, 'n', 'p', arr[:]...)
	return b
}

func (s *box) AppendShaderBody(b []byte) []byte {
	b = append(b, "vec3 d=abs(p)-"...)
	b = glbuild.AppendVec3(b, s.half)
	b = append(b, ";\nreturn length(max(d,vec3(0.)));"...)
	return b
}

func (s *box) Bounds() ms3.Box {
	return ms3.Box{Min: ms3.Scale(-1, s.half), Max: s.half}
}

// NewGround creates an infinite horizontal plane at height h. Everything below the plane is solid.
func (bld *Builder) NewGround(h float32) glbuild.Shader3D {
	return &ground{h: h}
}

type ground struct {
	h float32
}

func (g *ground) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return nil
}

func (g *ground) AppendShaderName(b []byte) []byte {
	b = append(b, "ground"...)
	b = glbuild.AppendFloat(b, 'n', 'p', g.h)
	return b
}

func (g *ground) AppendShaderBody(b []byte) []byte {
	b = append(b, "return p.y-("...)
	b = glbuild.AppendFloat(b, '-', '.', g.h)
	b = append(b, ");"...)
	return b
}

func (g *ground) Bounds() ms3.Box {
	return ms3.Box{
		Min: ms3.Vec{X: -largenum, Y: -largenum, Z: -largenum},
		Max: ms3.Vec{X: largenum, Y: g.h, Z: largenum},
	}
}
