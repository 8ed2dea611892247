package cpu

import "github.com/EricLina/sentcnn/backend"

// storage is host memory backing a tensor; float32 and int64 views share buf.
type storage struct {
	buf []byte
	dev backend.Device
}

// Alloc returns zeroed CPU storage of the given byte length.
func Alloc(byteLen int) backend.Storage {
	return &storage{buf: make([]byte, byteLen), dev: backend.CPU0}
}

func (s *storage) Device() backend.Device { return s.dev }
func (s *storage) ByteLen() int           { return len(s.buf) }
func (s *storage) Bytes() []byte          { return s.buf }

// Free drops the buffer; the garbage collector reclaims it.
func (s *storage) Free() {
	s.buf = nil
}
