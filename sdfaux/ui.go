//go:build !tinygo && cgo

package sdfaux

import (
	"fmt"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/sdfmarch/glbuild"
	"github.com/soypat/sdfmarch/glrender"
	"github.com/soypat/sdfmarch/glvox"
)

var glfwKeys = map[glfw.Key]glrender.Key{
	glfw.KeyW:         glrender.KeyForward,
	glfw.KeyS:         glrender.KeyBack,
	glfw.KeyD:         glrender.KeyRight,
	glfw.KeyA:         glrender.KeyLeft,
	glfw.KeySpace:     glrender.KeyUp,
	glfw.KeyLeftShift: glrender.KeyDown,
	glfw.KeyLeft:      glrender.KeyTurnLeft,
	glfw.KeyRight:     glrender.KeyTurnRight,
	glfw.KeyUp:        glrender.KeyTurnUp,
	glfw.KeyDown:      glrender.KeyTurnDown,
}

func ui(scene *Scene, cfg UIConfig) error {
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	window, term, err := startGLFW(cfg.Width, cfg.Height, "sdfmarch "+scene.Kind.String())
	if err != nil {
		return err
	}
	defer term()

	watch := stopwatch()
	fragSrc, err := scene.WriteFragmentShader(glbuild.NewDefaultProgrammer())
	if err != nil {
		return err
	}
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   glbuild.VertexSource + "\x00",
		Fragment: fragSrc + "\x00",
	})
	if err != nil {
		return fmt.Errorf("%s\n\n%w", fragSrc, err)
	}
	prog.Bind()
	log("compiled", scene.Kind, "shader in", watch())

	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	// Fullscreen rectangle drawn as a triangle strip.
	vertices := []float32{
		-1, -1,
		1, -1,
		-1, 1,
		1, 1,
	}
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(vertices), gl.Ptr(vertices), gl.STATIC_DRAW)
	posAttrib, err := prog.AttribLocation("aPosition\x00")
	if err != nil {
		return err
	}
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))

	// Uniforms the compiler optimized out resolve to -1 and are ignored by gl.Uniform*.
	uniform := func(name string) int32 {
		loc, err := prog.UniformLocation(name + "\x00")
		if err != nil {
			return -1
		}
		return loc
	}
	uProgress := uniform("uProgress")
	uRayBaseValue := uniform("uRayBaseValue")
	uRayXContrib := uniform("uRayXContrib")
	uRayYContrib := uniform("uRayYContrib")
	uRayOrg := uniform("uRayOrg")

	if scene.IsVoxel() {
		watch = stopwatch()
		err = uploadVolume(scene.Volume)
		if err != nil {
			return err
		}
		gl.Uniform1i(uniform("uVolume"), 0)
		log("uploaded", scene.Volume.Width, "x", scene.Volume.Height, "x", scene.Volume.Depth, "volume in", watch())
	}
	gl.Disable(gl.DEPTH_TEST)

	vp := framebufferViewport(window)
	gl.Viewport(0, 0, int32(vp.Width), int32(vp.Height))
	ctl, err := scene.NewController(vp)
	if err != nil {
		return err
	}
	var in glrender.InputState
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
			return
		}
		k, ok := glfwKeys[key]
		if !ok || action == glfw.Repeat {
			return
		}
		in.SetKey(k, action == glfw.Press)
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		switch action {
		case glfw.Press:
			x, y := w.GetCursorPos()
			ctl.DragStart(&in, float32(x), float32(y))
		case glfw.Release:
			ctl.DragEnd(&in)
		}
	})
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		ctl.DragMove(&in, float32(xpos), float32(ypos))
	})
	window.SetCursorEnterCallback(func(w *glfw.Window, entered bool) {
		if !entered && in.Dragging() {
			ctl.DragEnd(&in)
		}
	})
	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		vp := framebufferViewport(w)
		if vp.Validate() != nil {
			return // Minimized.
		}
		gl.Viewport(0, 0, int32(vp.Width), int32(vp.Height))
		ctl.Resize(vp)
	})

	start := time.Now()
	var last, lastDebug time.Duration
	ctx := cfg.Context
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		now := time.Since(start)
		ctl.Update(&in, now, now-last)
		last = now
		u := ctl.Uniforms(now)
		if cfg.PrintDebug && now-lastDebug > time.Second {
			lastDebug = now
			log(ctl.DebugText())
		}

		gl.ClearColor(0, 0, 0, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT)
		prog.Bind()
		gl.Uniform1f(uProgress, u.Progress)
		gl.Uniform3f(uRayBaseValue, u.Basis.Base.X, u.Basis.Base.Y, u.Basis.Base.Z)
		gl.Uniform3f(uRayXContrib, u.Basis.XContrib.X, u.Basis.XContrib.Y, u.Basis.XContrib.Z)
		gl.Uniform3f(uRayYContrib, u.Basis.YContrib.X, u.Basis.YContrib.Y, u.Basis.YContrib.Z)
		gl.Uniform3f(uRayOrg, u.Origin.X, u.Origin.Y, u.Origin.Z)
		gl.BindVertexArray(vao)
		gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
		window.SwapBuffers()
		glfw.PollEvents()
	}
	return nil
}

// uploadVolume uploads vol as a single channel 3D texture bound to texture unit 0.
func uploadVolume(vol *glvox.Volume) error {
	err := vol.Validate()
	if err != nil {
		return err
	}
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_3D, tex)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_BASE_LEVEL, 0)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MAX_LEVEL, 0)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_S, vol.Wrap[0].GLEnum())
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_T, vol.Wrap[1].GLEnum())
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_R, vol.Wrap[2].GLEnum())
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage3D(gl.TEXTURE_3D, 0, gl.R8, int32(vol.Width), int32(vol.Height), int32(vol.Depth), 0, gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(vol.Data))
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("uploading volume texture: GL error %#x", code)
	}
	return nil
}

func framebufferViewport(window *glfw.Window) glrender.Viewport {
	fbw, fbh := window.GetFramebufferSize()
	ww, _ := window.GetSize()
	ratio := float32(1)
	if ww > 0 {
		ratio = float32(fbw) / float32(ww)
	}
	return glrender.Viewport{Width: fbw, Height: fbh, PixelRatio: ratio}
}

func startGLFW(width, height int, title string) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err = glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
