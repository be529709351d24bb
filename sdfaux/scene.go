package sdfaux

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfmarch"
	"github.com/soypat/sdfmarch/glbuild"
	"github.com/soypat/sdfmarch/gleval"
	"github.com/soypat/sdfmarch/glrender"
	"github.com/soypat/sdfmarch/glvox"
)

// SceneKind selects one of the built in scenes.
type SceneKind uint8

const (
	// SceneCity is the analytic city grid at city block scale.
	SceneCity SceneKind = iota
	// SceneMiniature is the analytic city grid shrunk by [sdfmarch.MiniatureScale].
	SceneMiniature
	// SceneVoxelSphere is a sphere baked into a repeating 8-bit volume.
	SceneVoxelSphere
)

func (k SceneKind) String() string {
	switch k {
	case SceneCity:
		return "city"
	case SceneMiniature:
		return "miniature"
	case SceneVoxelSphere:
		return "voxel"
	}
	return fmt.Sprintf("SceneKind(%d)", uint8(k))
}

// ParseSceneKind returns the scene kind named s as returned by [SceneKind.String].
func ParseSceneKind(s string) (SceneKind, error) {
	for k := SceneCity; k <= SceneVoxelSphere; k++ {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown scene %q", s)
}

// Scene bundles everything needed to render a scene either on CPU or in the
// interactive viewer.
type Scene struct {
	Kind SceneKind
	// Shape is the closed form SDF of analytic scenes, or the shape baked
	// into Volume for voxel scenes.
	Shape glbuild.Shader3D
	// Volume holds the baked distances of voxel scenes. Nil for analytic scenes.
	Volume *glvox.Volume
	// SDF evaluates the scene on CPU. For voxel scenes it samples Volume the
	// way the GPU texture unit does.
	SDF   gleval.SDF3
	March glrender.MarchConfig
	// Camera start state.
	Start          ms3.Vec
	StartH, StartV float32
	Controller     glrender.ControllerConfig
}

// NewScene builds the scene of the given kind.
func NewScene(kind SceneKind) (*Scene, error) {
	var bld sdfmarch.Builder
	scene := &Scene{
		Kind:       kind,
		Controller: glrender.DefaultControllerConfig(),
	}
	switch kind {
	case SceneCity, SceneMiniature:
		k := float32(sdfmarch.CityBlockScale)
		if kind == SceneMiniature {
			k = sdfmarch.MiniatureScale
		}
		scene.Shape = bld.NewCityGrid(k)
		scene.March = glrender.AnalyticMarchConfig()
		scene.March.ContinueEpsilon *= k
		scene.March.HitThreshold *= k
		scene.March.Ceiling *= k
		scene.Start = ms3.Vec{Y: k}
		scene.Controller.TravelSpeed *= k
	case SceneVoxelSphere:
		scene.Shape = bld.Translate(bld.NewSphere(0.25), 0.5, 0.5, 0.5)
		scene.March = glrender.VoxelMarchConfig()
		scene.Start = ms3.Vec{Y: 0.5, Z: 0.5}
		scene.Controller.DisableAutopilot = true
	default:
		return nil, errors.New("unknown scene kind")
	}
	if err := bld.Err(); err != nil {
		return nil, err
	}
	sdf, err := gleval.NewCPUSDF3(scene.Shape)
	if err != nil {
		return nil, err
	}
	scene.SDF = sdf
	if kind == SceneVoxelSphere {
		scene.Volume, err = glvox.Bake(sdf, glvox.DefaultBakeConfig())
		if err != nil {
			return nil, fmt.Errorf("baking %s scene: %w", kind, err)
		}
		scene.SDF, err = glvox.NewField(scene.Volume)
		if err != nil {
			return nil, err
		}
	}
	return scene, nil
}

// IsVoxel reports whether the scene is rendered from a baked volume.
func (s *Scene) IsVoxel() bool { return s.Volume != nil }

// WriteFragmentShader writes the fragment program that renders the scene on GPU.
func (s *Scene) WriteFragmentShader(p *glbuild.Programmer) (string, error) {
	var sb strings.Builder
	var err error
	if s.IsVoxel() {
		dec := s.Volume.Decoder()
		_, err = p.WriteFragMarcherVolume(&sb, glbuild.VolumeShader{
			March:       s.March.Shader(),
			Width:       s.Volume.Width,
			Height:      s.Volume.Height,
			Depth:       s.Volume.Depth,
			DecodeScale: dec.Scale,
			DecodeBias:  dec.Bias,
		})
	} else {
		_, err = p.WriteFragMarcherSDF3(&sb, s.Shape, s.March.Shader())
	}
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// NewController returns a camera controller at the scene's start state for viewport vp.
func (s *Scene) NewController(vp glrender.Viewport) (*glrender.Controller, error) {
	cam := glrender.NewCamera(s.Start, s.StartH, s.StartV)
	return glrender.NewController(cam, vp, s.Controller)
}
