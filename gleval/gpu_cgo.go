//go:build !tinygo && cgo

package gleval

import (
	"errors"
	"fmt"
	"io"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// Init1x1GLFW opens a hidden 1x1 window so that a GL 4.6 context is current on
// the calling goroutine. terminate releases the window and must be called on the same goroutine.
func Init1x1GLFW() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "sdf",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

// NewComputeGPUSDF3 compiles a compute program written by
// [glbuild.Programmer.WriteComputeSDF3] with a local group size of invocX.
// bb is reported as the field's bounds.
//
// Evaluations must be run on the goroutine that owns the GL context.
func NewComputeGPUSDF3(glglSourceCode io.Reader, bb ms3.Box, invocX int) (*SDF3Compute, error) {
	if invocX < 1 {
		return nil, errZeroInvoc
	}
	src, err := glgl.ParseCombined(glglSourceCode)
	if err != nil {
		return nil, err
	}
	prog, err := glgl.CompileProgram(src)
	if err != nil {
		return nil, fmt.Errorf("compiling SDF compute program: %w\n%s", err, src.Compute)
	}
	return &SDF3Compute{prog: prog, bb: bb, invocX: invocX}, nil
}

// SDF3Compute evaluates a distance field with a compute shader.
type SDF3Compute struct {
	prog   glgl.Program
	bb     ms3.Box
	invocX int
}

func (sdf *SDF3Compute) Bounds() ms3.Box { return sdf.bb }

// Evaluate uploads pos, dispatches one invocation per position and reads the distances back.
func (sdf *SDF3Compute) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(dist) == 0 {
		return errEmptyBuffers
	}
	sdf.prog.Bind()
	defer sdf.prog.Unbind()

	in, err := newSSBO(0, len(pos)*int(unsafe.Sizeof(pos[0])), unsafe.Pointer(&pos[0]), gl.STATIC_DRAW)
	if err != nil {
		return fmt.Errorf("uploading positions: %w", err)
	}
	defer in.delete()
	out, err := newSSBO(1, len(dist)*int(unsafe.Sizeof(dist[0])), nil, gl.DYNAMIC_READ)
	if err != nil {
		return fmt.Errorf("allocating distances: %w", err)
	}
	defer out.delete()

	groups := (len(dist) + sdf.invocX - 1) / sdf.invocX
	gl.DispatchCompute(uint32(groups), 1, 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
	err = out.read(unsafe.Pointer(&dist[0]))
	if err != nil {
		return err
	}
	return glgl.Err()
}

// ssbo is a shader storage buffer bound to an indexed binding point.
type ssbo struct {
	id   *uint32
	size int
}

func newSSBO(binding uint32, size int, data unsafe.Pointer, usage uint32) (ssbo, error) {
	// GL writes the buffer name through a pointer, keep it off the stack.
	id := new(uint32)
	gl.GenBuffers(1, id)
	if *id == 0 {
		return ssbo{}, glErrOrMessage("zero SSBO name")
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, *id)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, data, usage)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, binding, *id)
	return ssbo{id: id, size: size}, nil
}

func (b ssbo) read(dst unsafe.Pointer) error {
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, *b.id)
	ptr := gl.MapBufferRange(gl.SHADER_STORAGE_BUFFER, 0, b.size, gl.MAP_READ_BIT)
	if ptr == nil {
		return glErrOrMessage("mapping SSBO for read")
	}
	copy(unsafe.Slice((*byte)(dst), b.size), unsafe.Slice((*byte)(ptr), b.size))
	gl.UnmapBuffer(gl.SHADER_STORAGE_BUFFER)
	return nil
}

func (b ssbo) delete() { gl.DeleteBuffers(1, b.id) }

func glErrOrMessage(msg string) error {
	if err := glgl.Err(); err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return errors.New(msg)
}
