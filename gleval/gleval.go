package gleval

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/soypat/geometry/ms3"
)

// SDF3 implements a 3D signed distance field in vectorized
// form suitable for running on GPU.
type SDF3 interface {
	// Evaluate evaluates the signed distance field over pos positions.
	// dist and pos must be of same length.  Resulting distances are stored
	// in dist.
	//
	// userData facilitates getting data to the evaluators for use in processing, such as [VecPool].
	Evaluate(pos []ms3.Vec, dist []float32, userData any) error
	// Bounds returns the SDF's bounding box such that all of the shape is contained within.
	Bounds() ms3.Box
}

// These interfaces are implemented by all SDF interfaces such as SDF3 and Shader3D.
// Using these instead of `any` Aids in catching mistakes at compile time.
type bounder3 = interface{ Bounds() ms3.Box }

var (
	errEmptyBuffers         = errors.New("empty buffers")
	errMismatchBufferLength = errors.New("position and distance buffer length mismatch")
	errZeroInvoc            = errors.New("zero or negative invocation size")
)

// NewCPUSDF3 checks if the shape implements CPU evaluation and returns it wrapped
// so its evaluations are counted.
func NewCPUSDF3(root bounder3) (*SDF3CPU, error) {
	sdf, err := AssertSDF3(root)
	if err != nil {
		return nil, fmt.Errorf("top level SDF cannot be CPU evaluated: %s", err.Error())
	}
	return &SDF3CPU{SDF: sdf}, nil
}

// AssertSDF3 asserts the Shader3D as a SDF3 implementation
// and returns the raw result. It provides readable errors beyond simply converting the type.
func AssertSDF3(s bounder3) (SDF3, error) {
	if s == nil {
		return nil, errors.New("nil SDF3")
	}
	evaluator, ok := s.(SDF3)
	if !ok {
		return nil, fmt.Errorf("%T does not implement gleval.SDF3", s)
	}
	return evaluator, nil
}

// SDF3CPU wraps a CPU evaluated [SDF3] and keeps an evaluation count.
// It is safe for concurrent use if the wrapped SDF is.
type SDF3CPU struct {
	SDF   SDF3
	evals atomic.Uint64
}

// Evaluate implements [SDF3].
func (sdf *SDF3CPU) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	err := sdf.SDF.Evaluate(pos, dist, userData)
	if err != nil {
		return err
	}
	sdf.evals.Add(uint64(len(pos)))
	return nil
}

// Bounds implements [SDF3].
func (sdf *SDF3CPU) Bounds() ms3.Box { return sdf.SDF.Bounds() }

// Evaluations returns total evaluations performed successfully during sdf's lifetime.
func (sdf *SDF3CPU) Evaluations() uint64 { return sdf.evals.Load() }

// Sample evaluates a single point of the distance field. It is the scalar
// form of [SDF3.Evaluate] and allocates nothing when userData carries a [VecPool].
func Sample(sdf SDF3, p ms3.Vec, userData any) (float32, error) {
	var pos [1]ms3.Vec
	var dist [1]float32
	pos[0] = p
	err := sdf.Evaluate(pos[:], dist[:], userData)
	return dist[0], err
}
