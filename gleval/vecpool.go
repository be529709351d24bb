package gleval

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/soypat/geometry/ms3"
)

// VecPool stores reusable buffers for SDF evaluation. Operations such as
// unions need auxiliary distance buffers; they acquire them from the VecPool
// passed as userData and release them when done.
//
// A VecPool must not be shared between goroutines.
type VecPool struct {
	V3    bufPool[ms3.Vec]
	Float bufPool[float32]
}

// GetVecPool extracts a VecPool from userData. userData may be a *VecPool or
// implement a VecPool() *VecPool method.
func GetVecPool(userData any) (*VecPool, error) {
	switch v := userData.(type) {
	case *VecPool:
		if v == nil {
			return nil, errors.New("nil VecPool in userData")
		}
		return v, nil
	case interface{ VecPool() *VecPool }:
		vp := v.VecPool()
		if vp == nil {
			return nil, errors.New("nil VecPool returned by userData")
		}
		return vp, nil
	}
	return nil, fmt.Errorf("want userData of type *gleval.VecPool for evaluation, got %T", userData)
}

// AssertAllReleased checks that every acquired buffer has been released.
func (vp *VecPool) AssertAllReleased() error {
	err := vp.Float.assertAllReleased()
	if err != nil {
		return fmt.Errorf("float pool: %w", err)
	}
	err = vp.V3.assertAllReleased()
	if err != nil {
		return fmt.Errorf("vec3 pool: %w", err)
	}
	return nil
}

type bufPool[T any] struct {
	bufs  [][]T
	inUse []bool
}

// Acquire returns a buffer of the requested length. Contents are not zeroed.
func (bp *bufPool[T]) Acquire(length int) []T {
	for i, buf := range bp.bufs {
		if !bp.inUse[i] && cap(buf) >= length {
			bp.inUse[i] = true
			return buf[:length]
		}
	}
	newBuf := make([]T, length)
	bp.bufs = append(bp.bufs, newBuf)
	bp.inUse = append(bp.inUse, true)
	return newBuf
}

// Release marks the buffer as free for reuse.
func (bp *bufPool[T]) Release(buf []T) error {
	ptr := unsafe.SliceData(buf[:cap(buf)])
	for i, b := range bp.bufs {
		if unsafe.SliceData(b[:cap(b)]) == ptr {
			if !bp.inUse[i] {
				return errors.New("double release of buffer")
			}
			bp.inUse[i] = false
			return nil
		}
	}
	return errors.New("release of buffer not acquired from pool")
}

func (bp *bufPool[T]) assertAllReleased() error {
	for i, used := range bp.inUse {
		if used {
			return fmt.Errorf("buffer %d of length %d not released", i, len(bp.bufs[i]))
		}
	}
	return nil
}
