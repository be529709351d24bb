package glrender

import (
	"fmt"
	"time"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// Key is a logical camera control.
type Key uint8

const (
	KeyForward Key = iota
	KeyBack
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyTurnLeft
	KeyTurnRight
	KeyTurnUp
	KeyTurnDown
	numKeys
)

var keyNames = [numKeys]string{
	KeyForward:   "forward",
	KeyBack:      "back",
	KeyLeft:      "left",
	KeyRight:     "right",
	KeyUp:        "up",
	KeyDown:      "down",
	KeyTurnLeft:  "turn-left",
	KeyTurnRight: "turn-right",
	KeyTurnUp:    "turn-up",
	KeyTurnDown:  "turn-down",
}

func (k Key) String() string {
	if k < numKeys {
		return keyNames[k]
	}
	return fmt.Sprintf("Key(%d)", uint8(k))
}

// IsMovement reports whether k translates the camera as opposed to turning it.
func (k Key) IsMovement() bool { return k <= KeyDown }

// InputState holds the pressed keys and pointer drag state. It is owned by the
// host loop, fed by input callbacks and read by [Controller.Update] once per frame.
type InputState struct {
	down     [numKeys]bool
	dragging bool
	// Pointer position and camera angles when the drag began.
	dragX, dragY float32
	dragH, dragV float32
}

// SetKey records k as pressed or released.
func (in *InputState) SetKey(k Key, pressed bool) {
	if k < numKeys {
		in.down[k] = pressed
	}
}

// Pressed reports whether k is held down.
func (in *InputState) Pressed(k Key) bool {
	return k < numKeys && in.down[k]
}

// Dragging reports whether a pointer drag is in progress.
func (in *InputState) Dragging() bool { return in.dragging }

// ControllerConfig sets camera speeds. Speeds are given per frame at 60Hz and
// scaled by the real frame duration.
type ControllerConfig struct {
	// Radians turned per 60Hz frame while a turn key is held.
	TurnSpeed float32
	// World units travelled per 60Hz frame while a movement key is held.
	TravelSpeed float32
	// DisableAutopilot starts the controller under manual control. Otherwise the
	// camera glides along x=t/AutopilotPeriod, z=cos(x) until a movement key is pressed.
	DisableAutopilot bool
	AutopilotPeriod  time.Duration
}

// DefaultControllerConfig returns a turn speed of π/64, travel speed of 0.01 and
// an autopilot with a period of 8 seconds.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		TurnSpeed:       math32.Pi / 64,
		TravelSpeed:     1e-2,
		AutopilotPeriod: 8 * time.Second,
	}
}

const frame60Hz = time.Second / 60

// FrameUniforms is the per-frame snapshot handed to the renderer. It is a plain
// value so renderer goroutines never observe camera mutation mid frame.
type FrameUniforms struct {
	// Progress is the time since start in milliseconds.
	Progress float32
	Basis    RayBasis
	Origin   ms3.Vec
}

// Controller applies input to a [Camera] each frame and publishes the ray
// basis and origin for rendering. It is not safe for concurrent use; it belongs
// to the host loop.
type Controller struct {
	cfg        ControllerConfig
	cam        *Camera
	vp         Viewport
	basis      RayBasis
	basisDirty bool
	autopilot  bool
}

// NewController returns a controller driving cam for the viewport vp.
func NewController(cam *Camera, vp Viewport, cfg ControllerConfig) (*Controller, error) {
	if cam == nil {
		return nil, fmt.Errorf("nil camera")
	}
	err := vp.Validate()
	if err != nil {
		return nil, err
	}
	if cfg.TurnSpeed < 0 || cfg.TravelSpeed < 0 {
		return nil, fmt.Errorf("negative camera speed")
	}
	if !cfg.DisableAutopilot && cfg.AutopilotPeriod <= 0 {
		return nil, fmt.Errorf("autopilot requires positive period")
	}
	return &Controller{
		cfg:        cfg,
		cam:        cam,
		vp:         vp,
		basisDirty: true,
		autopilot:  !cfg.DisableAutopilot,
	}, nil
}

// Camera returns the controlled camera.
func (ctl *Controller) Camera() *Camera { return ctl.cam }

// Viewport returns the current viewport.
func (ctl *Controller) Viewport() Viewport { return ctl.vp }

// Autopilot reports whether the camera is still following the autopilot path.
func (ctl *Controller) Autopilot() bool { return ctl.autopilot }

// Resize must be called whenever the framebuffer size changes, before the next frame.
func (ctl *Controller) Resize(vp Viewport) error {
	err := vp.Validate()
	if err != nil {
		return err
	}
	ctl.vp = vp
	ctl.basisDirty = true
	return nil
}

// SetAngles sets the camera angles and invalidates the ray basis.
func (ctl *Controller) SetAngles(h, v float32) {
	ctl.cam.SetAngles(h, v)
	ctl.basisDirty = true
}

// DragStart begins a pointer drag at client coordinates x, y.
func (ctl *Controller) DragStart(in *InputState, x, y float32) {
	in.dragging = true
	in.dragX, in.dragY = x, y
	in.dragH, in.dragV = ctl.cam.Angles()
}

// DragMove turns the camera relative to the angles at drag start. Dragging the
// full client height turns by 2 radians.
func (ctl *Controller) DragMove(in *InputState, x, y float32) {
	if !in.dragging {
		return
	}
	ch := ctl.vp.ClientHeight()
	dh := -(x - in.dragX) / ch * 2
	dv := (y - in.dragY) / ch * 2
	ctl.SetAngles(in.dragH+dh, in.dragV+dv)
}

// DragEnd ends the pointer drag.
func (ctl *Controller) DragEnd(in *InputState) {
	in.dragging = false
}

// Update polls the keys in in and moves the camera for a frame that lasted delta.
// now is the time since start and drives the autopilot.
func (ctl *Controller) Update(in *InputState, now, delta time.Duration) {
	k := float32(delta) / float32(frame60Hz)
	turn := k * ctl.cfg.TurnSpeed
	travel := k * ctl.cfg.TravelSpeed
	cam := ctl.cam
	h, v := cam.Angles()
	if in.Pressed(KeyTurnUp) {
		v += turn
	}
	if in.Pressed(KeyTurnDown) {
		v -= turn
	}
	if in.Pressed(KeyTurnLeft) {
		h -= turn
	}
	if in.Pressed(KeyTurnRight) {
		h += turn
	}
	if h0, v0 := cam.Angles(); h != h0 || v != v0 {
		ctl.SetAngles(h, v)
	}

	// Axes are taken after turning so movement follows the new heading.
	_, right, _ := cam.Axes()
	heading := cam.Heading()
	var move ms3.Vec
	for key := KeyForward; key <= KeyDown; key++ {
		if !in.Pressed(key) {
			continue
		}
		ctl.autopilot = false
		switch key {
		case KeyForward:
			move = ms3.Add(move, heading)
		case KeyBack:
			move = ms3.Sub(move, heading)
		case KeyRight:
			move = ms3.Add(move, right)
		case KeyLeft:
			move = ms3.Sub(move, right)
		case KeyUp:
			move.Y++
		case KeyDown:
			move.Y--
		}
	}
	pos := cam.Position()
	if move != (ms3.Vec{}) {
		pos = ms3.Add(pos, ms3.Scale(travel, move))
	}
	if ctl.autopilot {
		x := float32(now) / float32(ctl.cfg.AutopilotPeriod)
		pos.X = x
		pos.Z = math32.Cos(x)
	}
	cam.SetPosition(pos)
}

// Uniforms returns the values to render the next frame with. The ray basis is
// only recomputed after an angle or viewport change.
func (ctl *Controller) Uniforms(now time.Duration) FrameUniforms {
	if ctl.basisDirty {
		ctl.basis = ctl.cam.RayBasis(ctl.vp)
		ctl.basisDirty = false
	}
	return FrameUniforms{
		Progress: float32(now) / float32(time.Millisecond),
		Basis:    ctl.basis,
		Origin:   ctl.cam.Position(),
	}
}

// DebugText returns a short description of the camera state.
func (ctl *Controller) DebugText() string {
	p := ctl.cam.Position()
	h, v := ctl.cam.Angles()
	return fmt.Sprintf("pos: %.2f, %.2f, %.2f\nhAngle: %.2f\nvAngle: %.2f", p.X, p.Y, p.Z, h, v)
}
