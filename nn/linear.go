package nn

import (
	"fmt"

	"github.com/EricLina/sentcnn/ops"
	"github.com/EricLina/sentcnn/tensor"
)

// Linear is y = x @ W^T + bias. InSize, OutSize; W is [OutSize, InSize], bias [OutSize].
type Linear struct {
	W       *tensor.Tensor // [OutSize, InSize]
	Bias    *tensor.Tensor // [OutSize]
	InSize  int
	OutSize int
}

// NewLinear creates a linear layer with W and bias (caller provides initialized tensors).
func NewLinear(inSize, outSize int, W, bias *tensor.Tensor) (*Linear, error) {
	if W.NumElements() != outSize*inSize || bias.NumElements() != outSize {
		return nil, fmt.Errorf("Linear: W must be [%d,%d], bias [%d]", outSize, inSize, outSize)
	}
	return &Linear{W: W, Bias: bias, InSize: inSize, OutSize: outSize}, nil
}

// Forward computes x @ W^T + bias. x: [batch, InSize], out: [batch, OutSize].
func (l *Linear) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	return ops.Linear(x, l.W, l.Bias)
}
