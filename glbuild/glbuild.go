package glbuild

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"

	"github.com/soypat/geometry/ms3"
)

// Shader is a node of a GLSL distance function tree. Each node declares a
// `float name(vec3 p)` function whose body may call its children by name.
type Shader interface {
	// AppendShaderName appends the GLSL function name of the node. Equal names
	// must only be shared by nodes with equal bodies.
	AppendShaderName(b []byte) []byte
	// AppendShaderBody appends the statements of the function body.
	AppendShaderBody(b []byte) []byte
}

// Shader3D is a distance function node over 3D space.
type Shader3D interface {
	Shader
	// ForEachChild calls fn with each direct child of the node.
	// Translate, Scale and TileXZ have one child, Union has one or more.
	ForEachChild(userData any, fn func(userData any, s *Shader3D) error) error
	// Bounds returns a box containing the region where the distance is negative.
	Bounds() ms3.Box
}

// Programmer writes GLSL programs for shader trees. A Programmer is not safe for concurrent use.
type Programmer struct {
	scratch []byte
	// declared maps declared function names to their bodies.
	declared map[string]string
	invocX   int
}

// NewDefaultProgrammer returns a Programmer whose compute programs use work groups of 32 invocations.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		scratch:  make([]byte, 0, 1024),
		declared: make(map[string]string),
		invocX:   32,
	}
}

// ComputeInvocations returns the local work group size in x, y and z of programs
// written by [Programmer.WriteComputeSDF3].
func (p *Programmer) ComputeInvocations() (int, int, int) {
	return p.invocX, 1, 1
}

// WriteComputeSDF3 writes a compute program in glgl's combined source format that reads
// packed positions from SSBO binding 0 and writes the distance of obj at each to binding 1.
func (p *Programmer) WriteComputeSDF3(w io.Writer, obj Shader3D) (int, error) {
	var buf bytes.Buffer
	buf.WriteString("#shader compute\n#version 430\n")
	baseName, _, err := p.WriteSDFDecl(&buf, obj)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(&buf, `
layout(local_size_x = %d, local_size_y = 1, local_size_z = 1) in;

layout(std430, binding = 0) buffer RayPositions {
    float positions[];
};

layout(std430, binding = 1) buffer RayDistances {
    float distances[];
};

void main() {
    int i = int(gl_GlobalInvocationID.x);
    distances[i] = %s(vec3(positions[3*i], positions[3*i+1], positions[3*i+2]));
}
`, p.invocX, baseName)
	return w.Write(buf.Bytes())
}

// WriteSDFDecl writes the function declarations of every node of s, children
// before parents, and returns the name of the function for s.
func (p *Programmer) WriteSDFDecl(w io.Writer, s Shader3D) (baseName string, n int, err error) {
	if s == nil {
		return "", 0, errors.New("nil shader")
	}
	baseName = string(s.AppendShaderName(nil))
	if baseName == "" {
		return "", 0, errors.New("empty shader name")
	}
	clear(p.declared)
	n, err = p.declare(w, s)
	if err != nil {
		return "", n, err
	}
	return baseName, n, nil
}

func (p *Programmer) declare(w io.Writer, s Shader3D) (n int, err error) {
	err = s.ForEachChild(nil, func(_ any, child *Shader3D) error {
		if child == nil || *child == nil {
			return fmt.Errorf("%T has nil child", s)
		}
		ngot, err := p.declare(w, *child)
		n += ngot
		return err
	})
	if err != nil {
		return n, err
	}
	b := append(p.scratch[:0], "float "...)
	b = s.AppendShaderName(b)
	name := string(b[len("float "):])
	b = append(b, "(vec3 p){\n"...)
	bodyStart := len(b)
	b = s.AppendShaderBody(b)
	body := string(b[bodyStart:])
	b = append(b, "\n}\n"...)
	p.scratch = b
	if prev, ok := p.declared[name]; ok {
		if prev != body {
			return n, fmt.Errorf("%T shader name %q already declared with different body:\n%s", s, name, body)
		}
		return n, nil
	}
	p.declared[name] = body
	ngot, err := w.Write(b)
	return n + ngot, err
}

// FormatShader returns the shape of the shader tree by type name, i.e: "OpUnion(ground,tileXZ(box))".
func FormatShader(s Shader3D) string {
	if s == nil {
		panic("nil shader")
	}
	return string(appendFormat(nil, s))
}

func appendFormat(b []byte, s Shader3D) []byte {
	tp := reflect.TypeOf(s)
	if tp.Kind() == reflect.Pointer {
		tp = tp.Elem()
	}
	b = append(b, tp.Name()...)
	sep := byte('(')
	s.ForEachChild(nil, func(_ any, child *Shader3D) error {
		b = append(b, sep)
		b = appendFormat(b, *child)
		sep = ','
		return nil
	})
	if sep == ',' {
		b = append(b, ')')
	}
	return b
}

// AppendDistanceDecl appends "float floatVarname=sdfName(sdfPositionArgInput);" to b.
func AppendDistanceDecl(b []byte, floatVarname, sdfPositionArgInput string, s Shader) []byte {
	b = append(b, "float "...)
	b = append(b, floatVarname...)
	b = append(b, '=')
	b = s.AppendShaderName(b)
	b = append(b, '(')
	b = append(b, sdfPositionArgInput...)
	return append(b, ");\n"...)
}

// AppendVec3Decl appends a vec3 constant declaration.
func AppendVec3Decl(b []byte, vec3Varname string, v ms3.Vec) []byte {
	b = append(b, "const vec3 "...)
	b = append(b, vec3Varname...)
	b = append(b, '=')
	b = AppendVec3(b, v)
	return append(b, ";\n"...)
}

// AppendFloatDecl appends a float constant declaration.
func AppendFloatDecl(b []byte, floatVarname string, v float32) []byte {
	b = append(b, "const float "...)
	b = append(b, floatVarname...)
	b = append(b, '=')
	b = AppendFloat(b, '-', '.', v)
	return append(b, ";\n"...)
}

// AppendVec3 appends a GLSL vec3 constructor of v.
func AppendVec3(b []byte, v ms3.Vec) []byte {
	b = append(b, "vec3("...)
	b = AppendFloats(b, ',', '-', '.', v.X, v.Y, v.Z)
	return append(b, ')')
}

const decimalDigits = 9

// AppendFloat appends v to b as a GL float literal with trailing zeros trimmed.
// neg replaces the minus sign and decimal replaces the decimal point so that
// floats can be embedded in identifiers.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	b = b[:start+len(bytes.TrimRight(b[start:], "0"))]
	if b[start] == '-' {
		b[start] = neg
	}
	if i := bytes.IndexByte(b[start:], '.'); i >= 0 {
		b[start+i] = decimal
	}
	return b
}

// AppendFloats appends the literals of s separated by sep. A zero sep appends no separator.
func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		if i > 0 && sep != 0 {
			b = append(b, sep)
		}
		b = AppendFloat(b, neg, decimal, v)
	}
	return b
}
