package autograd

import (
	"github.com/EricLina/sentcnn/core"
	"github.com/EricLina/sentcnn/tensor"
)

// ZeroGrad allocates zero-filled gradient storage for t if it has none.
func ZeroGrad(t *tensor.Tensor) error {
	if t.Grad != nil {
		return nil
	}
	g, err := tensor.Zeros(t.Device(), core.Float32, t.Shape...)
	if err != nil {
		return err
	}
	t.Grad = g
	return nil
}

// ResetGrad zeroes an existing gradient in place.
func ResetGrad(t *tensor.Tensor) error {
	if t.Grad == nil {
		return nil
	}
	be, err := t.Backend()
	if err != nil {
		return err
	}
	return be.Fill(t.Grad.Storage, t.NumElements(), 0)
}

// Grad returns t.Grad, allocating it first. Ops call it from backward closures
// only for inputs that require gradients.
func Grad(t *tensor.Tensor) *tensor.Tensor {
	if err := ZeroGrad(t); err != nil {
		panic(err)
	}
	return t.Grad
}

// Track marks out as produced from inputs. It reports whether a backward
// closure is needed, i.e. whether any input requires gradients.
func Track(out *tensor.Tensor, inputs ...*tensor.Tensor) bool {
	for _, in := range inputs {
		if in != nil && in.RequiresGrad {
			out.RequiresGrad = true
			out.Parents = inputs
			return true
		}
	}
	return false
}
