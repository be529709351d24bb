package sdfmarch

import (
	"fmt"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfmarch/glbuild"
)

// OpUnion is the result of the [Union] operation. Prefer using [Union] to using this type directly.
//
// OpUnion is exported so that scene code may traverse a [glbuild.Shader3D] tree
// and inspect its joined elements, i.e: to count how many primitives a ray pays for per step.
type OpUnion struct {
	// joined contains 2 or more 3D SDFs.
	joined []glbuild.Shader3D
}

// Union joins the shapes of several 3D SDFs into one by taking the minimum distance. Is exact.
// Nested unions are flattened into the result.
func (bld *Builder) Union(shaders ...glbuild.Shader3D) glbuild.Shader3D {
	if len(shaders) < 2 {
		panic("need at least 2 arguments to Union")
	}
	var U OpUnion
	for i, s := range shaders {
		if s == nil {
			bld.nilsdf(fmt.Sprintf("nil arg[%d] to Union", i))
		}
		if subU, ok := s.(*OpUnion); ok {
			U.joined = append(U.joined, subU.joined...)
		} else {
			U.joined = append(U.joined, s)
		}
	}
	return &U
}

// Bounds returns the union of all joined SDFs. Implements [glbuild.Shader3D] and [gleval.SDF3].
func (u *OpUnion) Bounds() ms3.Box {
	u.mustValidate()
	bb := u.joined[0].Bounds()
	for _, bb2 := range u.joined[1:] {
		bb = bb.Union(bb2.Bounds())
	}
	return bb
}

// ForEachChild implements [glbuild.Shader3D].
func (u *OpUnion) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	u.mustValidate()
	for i := range u.joined {
		err := fn(userData, &u.joined[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// AppendShaderName implements [glbuild.Shader].
func (u *OpUnion) AppendShaderName(b []byte) []byte {
	u.mustValidate()
	b = append(b, "union_"...)
	for i := range u.joined {
		b = u.joined[i].AppendShaderName(b)
		if i < len(u.joined)-1 {
			b = append(b, '_')
		}
	}
	return b
}

// AppendShaderBody implements [glbuild.Shader].
func (u *OpUnion) AppendShaderBody(b []byte) []byte {
	u.mustValidate()
	b = glbuild.AppendDistanceDecl(b, "d", "p", u.joined[0])
	for i := range u.joined[1:] {
		b = append(b, "d=min(d,"...)
		b = u.joined[i+1].AppendShaderName(b)
		b = append(b, "(p));\n"...)
	}
	b = append(b, "return d;"...)
	return b
}

// Len returns the number of SDFs joined by the union.
func (u *OpUnion) Len() int { return len(u.joined) }

func (u *OpUnion) mustValidate() {
	if len(u.joined) < 2 {
		panic("OpUnion must have at least 2 elements. please prefer using Builder.Union over OpUnion")
	}
}

// Translate moves the SDF s by x, y, z.
func (bld *Builder) Translate(s glbuild.Shader3D, x, y, z float32) glbuild.Shader3D {
	if s == nil {
		bld.nilsdf("Translate")
	}
	return &translate{s: s, p: ms3.Vec{X: x, Y: y, Z: z}}
}

type translate struct {
	s glbuild.Shader3D
	p ms3.Vec
}

func (u *translate) Bounds() ms3.Box {
	return u.s.Bounds().Add(u.p)
}

func (s *translate) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return fn(userData, &s.s)
}

func (s *translate) AppendShaderName(b []byte) []byte {
	b = append(b, "translate"...)
	arr := s.p.Array()
	b = glbuild.AppendFloats(b, 0, 'n', 'p', arr[:]...)
	b = append(b, '_')
	b = s.s.AppendShaderName(b)
	return b
}

func (s *translate) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendVec3Decl(b, "t", s.p)
	b = append(b, "return "...)
	b = s.s.AppendShaderName(b)
	b = append(b, "(p-t);"...)
	return b
}

// TileXZ repeats s infinitely over the horizontal plane with a square cell of side spacing.
// The position handed to s is q.xz = mod(p.xz+(ox,oz), spacing) - spacing/2 with q.y = p.y,
// so s is centered in every cell. The offset (ox,oz) shifts the grid.
// The result is exact only if s fits inside a single cell.
func (bld *Builder) TileXZ(s glbuild.Shader3D, spacing, ox, oz float32) glbuild.Shader3D {
	if s == nil {
		bld.nilsdf("TileXZ")
	}
	if spacing <= 0 {
		bld.shapeErrorf("zero or negative tile spacing")
	}
	return &tileXZ{s: s, spacing: spacing, off: ms3.Vec{X: ox, Z: oz}}
}

type tileXZ struct {
	s       glbuild.Shader3D
	spacing float32
	off     ms3.Vec // Y unused.
}

func (t *tileXZ) Bounds() ms3.Box {
	bb := t.s.Bounds()
	bb.Min.X, bb.Min.Z = -largenum, -largenum
	bb.Max.X, bb.Max.Z = largenum, largenum
	return bb
}

func (t *tileXZ) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return fn(userData, &t.s)
}

func (t *tileXZ) AppendShaderName(b []byte) []byte {
	b = append(b, "tilexz"...)
	b = glbuild.AppendFloats(b, 0, 'n', 'p', t.spacing, t.off.X, t.off.Z)
	b = append(b, '_')
	b = t.s.AppendShaderName(b)
	return b
}

func (t *tileXZ) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendFloatDecl(b, "s", t.spacing)
	b = append(b, "vec2 o=vec2("...)
	b = glbuild.AppendFloats(b, ',', '-', '.', t.off.X, t.off.Z)
	b = append(b, ");\nvec2 q=mod(p.xz+o,s)-s*0.5;\nreturn "...)
	b = t.s.AppendShaderName(b)
	b = append(b, "(vec3(q.x,p.y,q.y));"...)
	return b
}

func (t *tileXZ) cell(p ms3.Vec) ms3.Vec {
	half := 0.5 * t.spacing
	return ms3.Vec{
		X: modf(p.X+t.off.X, t.spacing) - half,
		Y: p.Y,
		Z: modf(p.Z+t.off.Z, t.spacing) - half,
	}
}

// Scale scales s uniformly by factor k about the origin. Distances are scaled by k as well
// so the result remains an exact SDF if s is.
func (bld *Builder) Scale(s glbuild.Shader3D, k float32) glbuild.Shader3D {
	if s == nil {
		bld.nilsdf("Scale")
	}
	if k <= 0 {
		bld.shapeErrorf("zero or negative scale factor")
	}
	return &scale{s: s, scale: k}
}

type scale struct {
	s     glbuild.Shader3D
	scale float32
}

func (u *scale) Bounds() ms3.Box {
	b := u.s.Bounds()
	return ms3.Box{Min: ms3.Scale(u.scale, b.Min), Max: ms3.Scale(u.scale, b.Max)}
}

func (s *scale) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return fn(userData, &s.s)
}

func (s *scale) AppendShaderName(b []byte) []byte {
	b = append(b, "scale"...)
	b = glbuild.AppendFloat(b, 'n', 'p', s.scale)
	b = append(b, '_')
	b = s.s.AppendShaderName(b)
	return b
}

func (s *scale) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendFloatDecl(b, "s", s.scale)
	b = append(b, "return "...)
	b = s.s.AppendShaderName(b)
	b = append(b, "(p/s)*s;"...)
	return b
}
