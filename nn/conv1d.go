package nn

import (
	"fmt"

	"github.com/EricLina/sentcnn/ops"
	"github.com/EricLina/sentcnn/tensor"
)

// Conv1d is a bank of OutChannels filters of width Kernel sliding over the
// last axis of a channel-first input [batch, inChannels, length].
type Conv1d struct {
	W       *tensor.Tensor // [outChannels, inChannels, kernel]
	Bias    *tensor.Tensor // [outChannels]
	Padding int
}

// NewConv1d wraps initialized weights.
func NewConv1d(w, bias *tensor.Tensor, padding int) (*Conv1d, error) {
	if len(w.Shape) != 3 || bias.NumElements() != w.Shape[0] {
		return nil, fmt.Errorf("Conv1d: W must be [out,in,k] and bias [out], got %v and %v", w.Shape, bias.Shape)
	}
	return &Conv1d{W: w, Bias: bias, Padding: padding}, nil
}

// Forward returns relu-free convolution output [batch, outChannels, outLength].
func (c *Conv1d) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	return ops.Conv1d(x, c.W, c.Bias, c.Padding)
}
