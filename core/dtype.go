package core

// DType represents a tensor element type.
type DType uint8

const (
	Float32 DType = iota
	Int64
)

// Size returns the byte size of one element of this type.
func (d DType) Size() uintptr {
	switch d {
	case Float32:
		return 4
	case Int64:
		return 8
	default:
		return 4 // fallback
	}
}

// String returns a human-readable name for the type.
func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Int64:
		return "int64"
	default:
		return "unknown"
	}
}
