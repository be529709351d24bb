package glbuild

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/soypat/geometry/ms3"
)

// VertexSource is the fullscreen quad vertex shader used by the fragment marchers.
const VertexSource = `#version 300 es
in vec4 aPosition;
void main(void) {
    gl_Position = aPosition;
}`

// Shading selects how a ray hit is colored.
type Shading uint8

const (
	// ShadeGrid draws white lines where the hit point crosses an integer world
	// coordinate within two pixel footprints, black elsewhere.
	ShadeGrid Shading = iota
	// ShadeSkyTint scales the sky color by the fraction of the attempt budget left.
	ShadeSkyTint
	// ShadeChecker draws a 3D checkerboard from the parity of the floored hit point.
	ShadeChecker
)

func (s Shading) String() string {
	switch s {
	case ShadeGrid:
		return "grid"
	case ShadeSkyTint:
		return "skytint"
	case ShadeChecker:
		return "checker"
	}
	return "Shading(" + fmt.Sprint(uint8(s)) + ")"
}

// MarchShader configures the raymarching loop of a generated fragment program.
type MarchShader struct {
	MaxAttempts int
	// The loop continues while distance is above ContinueEpsilon.
	ContinueEpsilon float32
	// Distances at or below HitThreshold after the loop are surface hits.
	HitThreshold float32
	// Rays starting above Ceiling looking up are skipped. Infinite disables the ceiling.
	Ceiling         float32
	Shading         Shading
	FractionalTries bool
	Sky             ms3.Vec
	Miss            ms3.Vec
	CheckerScale    float32
}

func (ms MarchShader) validate() error {
	switch {
	case ms.MaxAttempts < 1:
		return errors.New("march attempts must be at least 1")
	case ms.Shading > ShadeChecker:
		return errors.New("unknown shading " + ms.Shading.String())
	case ms.Shading == ShadeChecker && ms.CheckerScale <= 0:
		return errors.New("checker shading requires positive scale")
	}
	return nil
}

// VolumeShader configures a fragment marcher reading distances from a
// single channel 3D texture named uVolume.
type VolumeShader struct {
	March MarchShader
	// Texture dimensions in texels.
	Width, Height, Depth int
	// Texel decode: distance = (texel + DecodeBias) * DecodeScale.
	DecodeScale, DecodeBias float32
}

const fragHeader = `#version 300 es
precision highp float;
`

const fragUniforms = `uniform float uProgress;
uniform vec3 uRayBaseValue, uRayYContrib, uRayXContrib, uRayOrg;

out vec3 outColor;

`

const gridPatternSource = `float gridPattern(vec3 world) {
    float x = floor(world.x) - floor(world.x + fwidth(world.x) * 2.0);
    float y = floor(world.y) - floor(world.y + fwidth(world.y) * 2.0);
    float z = floor(world.z) - floor(world.z + fwidth(world.z) * 2.0);

    if (x != 0.0 || y != 0.0 || z != 0.0) {
        return 1.0;
    } else {
        return 0.0;
    }
}

`

// WriteFragMarcherSDF3 writes a fragment program that sphere traces the SDF s once per pixel.
func (p *Programmer) WriteFragMarcherSDF3(w io.Writer, s Shader3D, cfg MarchShader) (int, error) {
	err := cfg.validate()
	if err != nil {
		return 0, err
	}
	var decl bytes.Buffer
	baseName, _, err := p.WriteSDFDecl(&decl, s)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(&decl, "\nfloat sdf(vec3 p) { return %s(p); }\n\n", baseName)
	return writeFragMarcher(w, decl.Bytes(), cfg)
}

// WriteFragMarcherVolume writes a fragment program that sphere traces distances
// read from the 3D texture uniform uVolume with linear filtering.
func (p *Programmer) WriteFragMarcherVolume(w io.Writer, cfg VolumeShader) (int, error) {
	err := cfg.March.validate()
	if err != nil {
		return 0, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Depth <= 0 {
		return 0, errors.New("zero or negative volume dimension")
	}
	dims := ms3.Vec{X: float32(cfg.Width), Y: float32(cfg.Height), Z: float32(cfg.Depth)}
	maxDim := dims.Max()
	offset := ms3.Scale(0.5, ms3.AddScalar(maxDim, ms3.Scale(-1, dims)))
	b := p.scratch[:0]
	b = append(b, "precision mediump sampler3D;\nuniform sampler3D uVolume;\n"...)
	b = AppendVec3Decl(b, "volDims", dims)
	b = AppendVec3Decl(b, "volOffset", offset)
	b = AppendFloatDecl(b, "volMaxDim", maxDim)
	b = AppendFloatDecl(b, "volScale", cfg.DecodeScale)
	b = AppendFloatDecl(b, "volBias", cfg.DecodeBias)
	b = append(b, `
float sdf(vec3 p) {
    vec3 uvw = (p * volMaxDim - volOffset) / volDims;
    return (texture(uVolume, uvw).x + volBias) * volScale;
}

`...)
	p.scratch = b
	return writeFragMarcher(w, b, cfg.March)
}

func writeFragMarcher(w io.Writer, sdfDecl []byte, cfg MarchShader) (int, error) {
	var buf bytes.Buffer
	buf.WriteString(fragHeader)
	buf.WriteString(fragUniforms)
	buf.Write(sdfDecl)
	if cfg.Shading == ShadeGrid {
		buf.WriteString(gridPatternSource)
	}
	buf.WriteString("void main(void) {\n")
	b := buf.AvailableBuffer()
	b = append(b, "    const float maxAttempts = "...)
	b = AppendFloat(b, '-', '.', float32(cfg.MaxAttempts))
	b = append(b, ";\n"...)
	b = append(b, "    const vec3 missColor = "...)
	b = AppendVec3(b, cfg.Miss)
	b = append(b, ";\n"...)
	buf.Write(b)
	buf.WriteString(`    vec3 ray = uRayBaseValue + uRayXContrib * gl_FragCoord.x + uRayYContrib * gl_FragCoord.y;
    ray = normalize(ray);
    vec3 r = uRayOrg;
`)
	if !math.IsInf(float64(cfg.Ceiling), 1) {
		b = buf.AvailableBuffer()
		b = append(b, "    const float worldCeiling = "...)
		b = AppendFloat(b, '-', '.', cfg.Ceiling)
		b = append(b, ";\n"...)
		buf.Write(b)
		buf.WriteString(`    if (uRayOrg.y >= worldCeiling) {
        // Above the ceiling looking up: nothing to hit.
        if (ray.y >= 0.0) {
            outColor = missColor;
            return;
        }
        float t = (worldCeiling - uRayOrg.y) / ray.y;
        r.xz = uRayOrg.xz + ray.xz * t;
        r.y = worldCeiling;
    }
`)
	}
	tries, decrement := "maxAttempts", "1.0"
	if cfg.FractionalTries {
		tries, decrement = "1.0", "1.0 / maxAttempts"
	}
	b = buf.AvailableBuffer()
	b = fmt.Appendf(b, `    float tries = %s;
    float d = 0.0;
    for (int i = 0; i < %d; ++i) {
        d = sdf(r);
        tries -= %s;
        if (d <= `, tries, cfg.MaxAttempts, decrement)
	b = AppendFloat(b, '-', '.', cfg.ContinueEpsilon)
	b = append(b, ` || tries <= 0.0) {
            break;
        }
        r += ray * d;
    }
    if (d <= `...)
	b = AppendFloat(b, '-', '.', cfg.HitThreshold)
	b = append(b, ") {\n"...)
	switch cfg.Shading {
	case ShadeGrid:
		b = append(b, "        outColor = vec3(gridPattern(r));\n"...)
	case ShadeSkyTint:
		b = append(b, "        outColor = "...)
		if cfg.FractionalTries {
			b = append(b, "tries * "...)
		} else {
			b = append(b, "(tries / maxAttempts) * "...)
		}
		b = AppendVec3(b, cfg.Sky)
		b = append(b, ";\n"...)
	case ShadeChecker:
		b = append(b, "        vec3 q = floor(r * "...)
		b = AppendFloat(b, '-', '.', cfg.CheckerScale)
		b = append(b, ");\n        outColor = vec3(mod(q.x + q.y + q.z, 2.0));\n"...)
	}
	b = append(b, "    } else {\n        outColor = missColor;\n    }\n}\n"...)
	buf.Write(b)
	return w.Write(buf.Bytes())
}
