package tensor

import (
	"fmt"

	"github.com/EricLina/sentcnn/backend"
	"github.com/EricLina/sentcnn/core"
)

// Re-export core types so callers can use tensor.Shape without importing core.
type (
	Shape = core.Shape
	DType = core.DType
)

const (
	Float32 = core.Float32
	Int64   = core.Int64
)

// Tensor is the core multi-dimensional array: storage + shape + strides + dtype.
// Grad is set during backward; Backward propagates Grad into Parents.
type Tensor struct {
	Storage      backend.Storage
	Shape        core.Shape
	Strides      core.Strides
	DType        core.DType
	Grad         *Tensor   // accumulated gradient (optional)
	Backward     func()    // called during backward pass (optional)
	Parents      []*Tensor // inputs of the op that produced this tensor
	RequiresGrad bool
}

// New creates a tensor from existing storage, shape, and strides.
// If strides is nil, contiguous row-major strides are computed.
func New(storage backend.Storage, shape core.Shape, strides core.Strides, dtype core.DType) *Tensor {
	if strides == nil {
		strides = core.ContiguousStrides(shape, dtype.Size())
	}
	return &Tensor{
		Storage: storage,
		Shape:   shape,
		Strides: strides,
		DType:   dtype,
	}
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.Shape.NumElements()
}

// Device returns the device holding the tensor's storage.
func (t *Tensor) Device() backend.Device {
	return t.Storage.Device()
}

// Backend returns the backend that owns the tensor's storage.
func (t *Tensor) Backend() (backend.Backend, error) {
	return backend.GetForDevice(t.Storage.Device())
}

// View returns a new tensor sharing storage with t but with the given shape.
// The product of shape must equal t.NumElements().
func (t *Tensor) View(shape ...int) (*Tensor, error) {
	s := core.Shape(shape)
	if s.NumElements() != t.NumElements() {
		return nil, fmt.Errorf("view shape %v has %d elements, tensor has %d: %w", shape, s.NumElements(), t.NumElements(), core.ErrShape)
	}
	return New(t.Storage, s, nil, t.DType), nil
}

// Zeros allocates a zero-filled tensor on dev.
func Zeros(dev backend.Device, dtype core.DType, shape ...int) (*Tensor, error) {
	s := core.Shape(shape).Clone()
	be, err := backend.GetForDevice(dev)
	if err != nil {
		return nil, err
	}
	storage, err := be.Alloc(s.NumElements() * int(dtype.Size()))
	if err != nil {
		return nil, err
	}
	return New(storage, s, nil, dtype), nil
}

// FromFloat32 creates a new CPU tensor from a float32 slice (copy; contiguous).
func FromFloat32(data []float32, shape ...int) (*Tensor, error) {
	return FromFloat32On(backend.CPU0, data, shape...)
}

// FromFloat32On creates a tensor on dev holding a copy of data.
func FromFloat32On(dev backend.Device, data []float32, shape ...int) (*Tensor, error) {
	s := core.Shape(shape)
	if s.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v has %d elements, data has %d: %w", shape, s.NumElements(), len(data), core.ErrShape)
	}
	t, err := Zeros(dev, core.Float32, shape...)
	if err != nil {
		return nil, err
	}
	copy(t.Storage.Bytes(), BytesFromFloat32(data))
	return t, nil
}

// FromInt64 creates a new CPU tensor from an int64 slice (e.g. token indices).
func FromInt64(data []int64, shape ...int) (*Tensor, error) {
	s := core.Shape(shape)
	if s.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v has %d elements, data has %d: %w", shape, s.NumElements(), len(data), core.ErrShape)
	}
	t, err := Zeros(backend.CPU0, core.Int64, shape...)
	if err != nil {
		return nil, err
	}
	copy(Int64FromBytes(t.Storage.Bytes()), data)
	return t, nil
}

// Float32 returns the underlying float32 slice for CPU tensors (shared memory).
// Panics if not Float32 dtype.
func (t *Tensor) Float32() []float32 {
	if t.DType != core.Float32 {
		panic("Float32() only for Float32 tensors")
	}
	return Float32FromBytes(t.Storage.Bytes())[:t.NumElements()]
}

// Int64 returns the underlying int64 slice for CPU tensors.
func (t *Tensor) Int64() []int64 {
	if t.DType != core.Int64 {
		panic("Int64() only for Int64 tensors")
	}
	return Int64FromBytes(t.Storage.Bytes())[:t.NumElements()]
}

// Clone allocates a new tensor with the same shape and data. The clone has no
// gradient and is detached from any graph.
func (t *Tensor) Clone() (*Tensor, error) {
	be, err := t.Backend()
	if err != nil {
		return nil, err
	}
	byteLen := t.NumElements() * int(t.DType.Size())
	newStorage, err := be.Alloc(byteLen)
	if err != nil {
		return nil, err
	}
	if err := be.Copy(newStorage, t.Storage, byteLen); err != nil {
		newStorage.Free()
		return nil, err
	}
	return New(newStorage, t.Shape.Clone(), nil, t.DType), nil
}
