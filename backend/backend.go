package backend

import (
	"errors"
	"fmt"
	"strings"
)

// DeviceType identifies the kind of hardware.
type DeviceType uint8

const (
	CPU DeviceType = iota
	CUDA
)

// String returns the device type name used in configuration.
func (d DeviceType) String() string {
	switch d {
	case CPU:
		return "cpu"
	case CUDA:
		return "cuda"
	default:
		return fmt.Sprintf("device(%d)", uint8(d))
	}
}

// Device identifies a specific device (e.g. GPU 0).
type Device struct {
	Type  DeviceType
	Index int
}

func (d Device) String() string {
	return fmt.Sprintf("%s:%d", d.Type, d.Index)
}

// CPU0 is the default CPU device.
var CPU0 = Device{Type: CPU, Index: 0}

// Storage represents raw memory on a device.
type Storage interface {
	Device() Device
	Bytes() []byte // CPU only; nil for GPU
	ByteLen() int
	Free()
}

// Conv1dParams describes a batched 1-D convolution over channel-first input
// x [Batch, InChannels, Length] with weights [OutChannels, InChannels, Kernel].
// Output is [Batch, OutChannels, OutLength()].
type Conv1dParams struct {
	Batch       int
	InChannels  int
	OutChannels int
	Length      int
	Kernel      int
	Padding     int
}

// OutLength is the number of output positions: Length + 2*Padding - Kernel + 1.
func (p Conv1dParams) OutLength() int {
	return p.Length + 2*p.Padding - p.Kernel + 1
}

// Backend is the contract every hardware backend must implement.
// All float kernels operate on contiguous float32 storage; index storage is int64.
type Backend interface {
	Name() string
	DeviceType() DeviceType

	Alloc(byteLen int) (Storage, error)
	Free(s Storage)
	Copy(dst, src Storage, byteLen int) error

	Fill(dst Storage, nElems int, value float32) error
	// Axpy: dst += alpha * src.
	Axpy(dst, src Storage, nElems int, alpha float32) error

	Relu(dst, src Storage, nElems int) error
	// ReluBackward: gradX += gradOut where x > 0.
	ReluBackward(gradX, gradOut, x Storage, nElems int) error

	// MatMul: C = op(A) @ op(B) + beta*C with op(A) [M, K], op(B) [K, N], C [M, N].
	MatMul(dst, a, b Storage, M, N, K int, transA, transB bool, beta float32) error
	// AddBias: dst[r, c] += bias[c].
	AddBias(dst, bias Storage, rows, cols int) error
	// SumRows: dst[c] += sum_r src[r, c].
	SumRows(dst, src Storage, rows, cols int) error

	// Embedding: indices (int64), table (float32) [tableRows, tableCols], out [nIdx, tableCols].
	Embedding(dst, table, indices Storage, tableRows, tableCols, nIdx int) error
	// EmbeddingBackward scatters gradOut rows into tableGrad; rows whose index equals skip are dropped.
	EmbeddingBackward(tableGrad, gradOut, indices Storage, tableRows, tableCols, nIdx int, skip int64) error

	// Transpose12 swaps the last two axes of a [batch, rows, cols] tensor.
	Transpose12(dst, src Storage, batch, rows, cols int) error

	Conv1d(dst, x, w, bias Storage, p Conv1dParams) error
	// Conv1dBackward accumulates into any non-nil gradient storage.
	Conv1dBackward(gradX, gradW, gradB, gradOut, x, w Storage, p Conv1dParams) error

	// MaxOverTime reduces x [batch, channels, length] to dst [batch, channels] and
	// writes the winning position per (batch, channel) into argmax (int64).
	// When lengths is non-nil only positions < lengths[b] of row b take part.
	MaxOverTime(dst, argmax, x Storage, batch, channels, length int, lengths []int) error
	// MaxOverTimeBackward routes gradOut [batch, channels] back to the argmax positions of gradX.
	MaxOverTimeBackward(gradX, gradOut, argmax Storage, batch, channels, length int) error

	// LogSoftmax along the last axis of a [rows, cols] tensor.
	LogSoftmax(dst, src Storage, rows, cols int) error
	// LogSoftmaxBackward: gradX += gradOut - exp(out) * sum(gradOut) per row.
	LogSoftmaxBackward(gradX, gradOut, out Storage, rows, cols int) error
}

var registry = make(map[DeviceType]Backend)

// Register adds a backend for its device type.
func Register(b Backend) {
	registry[b.DeviceType()] = b
}

// Get returns the backend for a device type.
func Get(dt DeviceType) (Backend, error) {
	b, ok := registry[dt]
	if !ok {
		return nil, fmt.Errorf("no backend registered for device type %v: %w", dt, ErrNoDevice)
	}
	return b, nil
}

// GetForDevice returns the backend that handles the given device.
func GetForDevice(d Device) (Backend, error) {
	return Get(d.Type)
}

// Select resolves a configured device name to a registered device.
// "auto" prefers an accelerator and falls back to the CPU.
func Select(name string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		if _, ok := registry[CUDA]; ok {
			return Device{Type: CUDA}, nil
		}
		if _, ok := registry[CPU]; ok {
			return CPU0, nil
		}
		return Device{}, ErrNoDevice
	case "cpu":
		if _, err := Get(CPU); err != nil {
			return Device{}, err
		}
		return CPU0, nil
	case "cuda", "gpu":
		if _, err := Get(CUDA); err != nil {
			return Device{}, err
		}
		return Device{Type: CUDA}, nil
	default:
		return Device{}, fmt.Errorf("device %q: %w", name, ErrUnsupported)
	}
}

var (
	// ErrUnsupported is returned when an operation is not supported.
	ErrUnsupported = errors.New("operation not supported")
	// ErrNoDevice is returned when no backend serves the requested device.
	ErrNoDevice = errors.New("device not available")
)
