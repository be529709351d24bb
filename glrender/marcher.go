package glrender

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/sdfmarch/glbuild"
	"github.com/soypat/sdfmarch/gleval"
)

// MarchConfig configures sphere tracing of a single ray.
type MarchConfig struct {
	// MaxAttempts is the number of distance evaluations a ray may perform.
	MaxAttempts int
	// Marching continues while the distance is above ContinueEpsilon.
	ContinueEpsilon float32
	// A ray hits if its last distance is at or below HitThreshold.
	HitThreshold float32
	// Rays starting above Ceiling start marching at their intersection with the
	// ceiling plane, or miss at no cost if they point up. +Inf disables the ceiling.
	Ceiling float32
	Shade   glbuild.Shading
	// Sky is the tint of [glbuild.ShadeSkyTint].
	Sky ms3.Vec
	// MissColor is the color of rays that do not hit.
	MissColor ms3.Vec
	// CheckerScale is the number of checker cells per world unit.
	CheckerScale float32
	// FractionalTries tracks the remaining budget as a fraction of MaxAttempts
	// counting down from 1 instead of counting attempts down from MaxAttempts.
	FractionalTries bool
}

// SkyColor is the light blue used to tint hits in the voxel scene.
var SkyColor = ms3.Vec{X: 0.53, Y: 0.81, Z: 0.92}

// AnalyticMarchConfig returns the coarse configuration for closed form scenes:
// 8 attempts, marching while distance exceeds 0.1, hits accepted up to 0.5,
// a ceiling at 20 and grid line shading.
func AnalyticMarchConfig() MarchConfig {
	return MarchConfig{
		MaxAttempts:     8,
		ContinueEpsilon: 0.1,
		HitThreshold:    0.5,
		Ceiling:         20,
		Shade:           glbuild.ShadeGrid,
		Sky:             SkyColor,
		CheckerScale:    1,
	}
}

// VoxelMarchConfig returns the fine configuration for voxel scenes:
// 16 attempts, a 1e-3 epsilon for both marching and hits, no ceiling and sky tint shading.
func VoxelMarchConfig() MarchConfig {
	return MarchConfig{
		MaxAttempts:     16,
		ContinueEpsilon: 1e-3,
		HitThreshold:    1e-3,
		Ceiling:         math32.Inf(1),
		Shade:           glbuild.ShadeSkyTint,
		Sky:             SkyColor,
		CheckerScale:    1,
	}
}

// Validate checks the configuration is usable.
func (cfg *MarchConfig) Validate() error {
	switch {
	case cfg.MaxAttempts < 1:
		return errors.New("march attempts must be at least 1")
	case cfg.ContinueEpsilon < 0 || cfg.HitThreshold < 0:
		return errors.New("negative march threshold")
	case math32.IsNaN(cfg.Ceiling) || math32.IsInf(cfg.Ceiling, -1):
		return errors.New("invalid ceiling, use +Inf to disable")
	case cfg.Shade > glbuild.ShadeChecker:
		return fmt.Errorf("unknown shading %s", cfg.Shade)
	case cfg.Shade == glbuild.ShadeChecker && cfg.CheckerScale <= 0:
		return errors.New("checker shading requires positive scale")
	}
	return nil
}

// Shader returns the equivalent configuration for a generated fragment program.
func (cfg *MarchConfig) Shader() glbuild.MarchShader {
	return glbuild.MarchShader{
		MaxAttempts:     cfg.MaxAttempts,
		ContinueEpsilon: cfg.ContinueEpsilon,
		HitThreshold:    cfg.HitThreshold,
		Ceiling:         cfg.Ceiling,
		Shading:         cfg.Shade,
		FractionalTries: cfg.FractionalTries,
		Sky:             cfg.Sky,
		Miss:            cfg.MissColor,
		CheckerScale:    cfg.CheckerScale,
	}
}

// March is the state of a single ray being marched and its final result.
type March struct {
	Dir ms3.Vec
	// Pos is the last position the field was evaluated at. For a hit it is the surface point.
	Pos ms3.Vec
	// Dist is the last distance sampled.
	Dist float32
	// Tries is the remaining attempt budget, either a count or a fraction of 1.
	Tries float32
	// Steps is the number of distance evaluations performed.
	Steps int
	// Hit is set once the ray terminates within the hit threshold.
	Hit bool
	// Skipped rays were rejected by the ceiling test without evaluating the field.
	Skipped bool
	done    bool
}

// Done reports whether the ray has terminated.
func (m *March) Done() bool { return m.done }

// Remaining returns the fraction of the attempt budget left, in [0,1].
func (m *March) Remaining(cfg *MarchConfig) float32 {
	if cfg.FractionalTries {
		return m.Tries
	}
	return m.Tries / float32(cfg.MaxAttempts)
}

// start initializes a march for a ray at origin along unit direction dir.
func (cfg *MarchConfig) start(origin, dir ms3.Vec) March {
	m := March{Dir: dir, Pos: origin, Tries: float32(cfg.MaxAttempts)}
	if cfg.FractionalTries {
		m.Tries = 1
	}
	if origin.Y >= cfg.Ceiling {
		if dir.Y >= 0 {
			m.Skipped = true
			m.done = true
			m.Dist = math32.Inf(1)
			return m
		}
		t := (cfg.Ceiling - origin.Y) / dir.Y
		m.Pos = ms3.Vec{X: origin.X + dir.X*t, Y: cfg.Ceiling, Z: origin.Z + dir.Z*t}
	}
	return m
}

// step consumes the distance d sampled at m.Pos.
func (cfg *MarchConfig) step(m *March, d float32) {
	m.Dist = d
	m.Steps++
	if cfg.FractionalTries {
		m.Tries -= 1 / float32(cfg.MaxAttempts)
	} else {
		m.Tries--
	}
	if d <= cfg.ContinueEpsilon || m.Steps >= cfg.MaxAttempts {
		m.done = true
		m.Hit = d <= cfg.HitThreshold
		return
	}
	m.Pos = ms3.Add(m.Pos, ms3.Scale(d, m.Dir))
}

// MarchRay sphere traces sdf from origin along unit direction dir. userData is
// passed to sdf's Evaluate method.
func (cfg *MarchConfig) MarchRay(sdf gleval.SDF3, origin, dir ms3.Vec, userData any) (March, error) {
	m := cfg.start(origin, dir)
	var pos [1]ms3.Vec
	var dist [1]float32
	for !m.done {
		pos[0] = m.Pos
		err := sdf.Evaluate(pos[:], dist[:], userData)
		if err != nil {
			return m, err
		}
		cfg.step(&m, dist[0])
	}
	return m, nil
}

// marchScratch holds batch buffers for lockstep marching.
type marchScratch struct {
	pos    []ms3.Vec
	dist   []float32
	active []int
}

// marchBatch advances all rays in lockstep, evaluating every unfinished ray's position
// in one call per step, until all rays terminate. It returns the number of distances evaluated.
func (cfg *MarchConfig) marchBatch(sdf gleval.SDF3, rays []March, s *marchScratch, userData any) (evals uint64, err error) {
	s.active = s.active[:0]
	for i := range rays {
		if !rays[i].done {
			s.active = append(s.active, i)
		}
	}
	for len(s.active) > 0 {
		n := len(s.active)
		s.pos = growVecs(s.pos, n)
		s.dist = growFloats(s.dist, n)
		for j, idx := range s.active {
			s.pos[j] = rays[idx].Pos
		}
		err = sdf.Evaluate(s.pos[:n], s.dist[:n], userData)
		if err != nil {
			return evals, err
		}
		evals += uint64(n)
		// Compact the active list in place as rays terminate.
		next := s.active[:0]
		for j, idx := range s.active {
			m := &rays[idx]
			cfg.step(m, s.dist[j])
			if !m.done {
				next = append(next, idx)
			}
		}
		s.active = next
	}
	return evals, nil
}

// Color returns the color of a terminated ray. fwidth is the screen space
// derivative magnitude of the hit position, only used by grid shading.
func (cfg *MarchConfig) Color(m *March, fwidth ms3.Vec) ms3.Vec {
	if !m.Hit {
		return cfg.MissColor
	}
	switch cfg.Shade {
	case glbuild.ShadeGrid:
		if gridLine(m.Pos, fwidth) {
			return ms3.Vec{X: 1, Y: 1, Z: 1}
		}
		return ms3.Vec{}
	case glbuild.ShadeSkyTint:
		return ms3.Scale(m.Remaining(cfg), cfg.Sky)
	case glbuild.ShadeChecker:
		q := ms3.Scale(cfg.CheckerScale, m.Pos)
		sum := math32.Floor(q.X) + math32.Floor(q.Y) + math32.Floor(q.Z)
		c := sum - 2*math32.Floor(sum/2)
		return ms3.Vec{X: c, Y: c, Z: c}
	}
	return cfg.MissColor
}

// gridLine reports whether a step of two pixel footprints from w crosses an
// integer coordinate on any axis.
func gridLine(w, fwidth ms3.Vec) bool {
	crosses := func(w, fw float32) bool {
		return math32.Floor(w) != math32.Floor(w+2*fw)
	}
	return crosses(w.X, fwidth.X) || crosses(w.Y, fwidth.Y) || crosses(w.Z, fwidth.Z)
}

// rgba8 converts a color with channels in [0,1] to 8 bit channels.
func rgba8(c ms3.Vec) (r, g, b uint8) {
	conv := func(f float32) uint8 {
		return uint8(ms1.Clamp(f, 0, 1)*255 + 0.5)
	}
	return conv(c.X), conv(c.Y), conv(c.Z)
}

func growVecs(b []ms3.Vec, n int) []ms3.Vec {
	if cap(b) < n {
		return make([]ms3.Vec, n)
	}
	return b[:n]
}

func growFloats(b []float32, n int) []float32 {
	if cap(b) < n {
		return make([]float32, n)
	}
	return b[:n]
}
