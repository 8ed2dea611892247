// Package ops implements the differentiable operations of the sentence CNN.
// Every op allocates a fresh output; when any input requires gradients the
// output records its parents and a closure that accumulates into their Grad.
package ops

import (
	"fmt"

	"github.com/EricLina/sentcnn/autograd"
	"github.com/EricLina/sentcnn/backend"
	"github.com/EricLina/sentcnn/core"
	"github.com/EricLina/sentcnn/tensor"
)

func alloc(like *tensor.Tensor, dtype core.DType, shape ...int) (*tensor.Tensor, backend.Backend, error) {
	be, err := like.Backend()
	if err != nil {
		return nil, nil, err
	}
	out, err := tensor.Zeros(like.Device(), dtype, shape...)
	if err != nil {
		return nil, nil, err
	}
	return out, be, nil
}

func checkFloat(name string, t *tensor.Tensor, rank int) error {
	if t.DType != core.Float32 {
		return fmt.Errorf("%s: want float32, got %v: %w", name, t.DType, core.ErrShape)
	}
	return core.CheckRank(name, t.Shape, rank)
}

// Embedding looks up one row of table [V, E] per id of ids [B, L] and
// returns [B, L, E]. Gradients are not propagated into row paddingIdx.
func Embedding(table, ids *tensor.Tensor, paddingIdx int64) (*tensor.Tensor, error) {
	if err := checkFloat("embedding table", table, 2); err != nil {
		return nil, err
	}
	if ids.DType != core.Int64 {
		return nil, fmt.Errorf("embedding ids: want int64, got %v: %w", ids.DType, core.ErrShape)
	}
	vocab, dim := table.Shape[0], table.Shape[1]
	shape := append(ids.Shape.Clone(), dim)
	out, be, err := alloc(table, core.Float32, shape...)
	if err != nil {
		return nil, err
	}
	n := ids.NumElements()
	if err := be.Embedding(out.Storage, table.Storage, ids.Storage, vocab, dim, n); err != nil {
		return nil, fmt.Errorf("embedding: id outside [0, %d): %w", vocab, core.ErrShape)
	}
	if autograd.Track(out, table) {
		out.Backward = func() {
			if out.Grad == nil {
				return
			}
			be.EmbeddingBackward(autograd.Grad(table).Storage, out.Grad.Storage, ids.Storage, vocab, dim, n, paddingIdx)
		}
	}
	return out, nil
}

// Transpose12 turns [B, R, C] into [B, C, R].
func Transpose12(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkFloat("transpose", x, 3); err != nil {
		return nil, err
	}
	b, r, c := x.Shape[0], x.Shape[1], x.Shape[2]
	out, be, err := alloc(x, core.Float32, b, c, r)
	if err != nil {
		return nil, err
	}
	if err := be.Transpose12(out.Storage, x.Storage, b, r, c); err != nil {
		return nil, err
	}
	if autograd.Track(out, x) {
		out.Backward = func() {
			if out.Grad == nil {
				return
			}
			tmp, err := be.Alloc(x.NumElements() * 4)
			if err != nil {
				panic(err)
			}
			be.Transpose12(tmp, out.Grad.Storage, b, c, r)
			be.Axpy(autograd.Grad(x).Storage, tmp, x.NumElements(), 1)
			be.Free(tmp)
		}
	}
	return out, nil
}

// Conv1d convolves x [B, C, L] with w [O, C, K] plus bias [O] using
// symmetric zero padding, producing [B, O, L+2*padding-K+1].
func Conv1d(x, w, bias *tensor.Tensor, padding int) (*tensor.Tensor, error) {
	if err := checkFloat("conv1d input", x, 3); err != nil {
		return nil, err
	}
	if err := checkFloat("conv1d weight", w, 3); err != nil {
		return nil, err
	}
	if err := core.CheckDim("conv1d weight", w.Shape, 1, x.Shape[1]); err != nil {
		return nil, err
	}
	if err := core.CheckDim("conv1d bias", bias.Shape, 0, w.Shape[0]); err != nil {
		return nil, err
	}
	p := backend.Conv1dParams{
		Batch:       x.Shape[0],
		InChannels:  x.Shape[1],
		OutChannels: w.Shape[0],
		Length:      x.Shape[2],
		Kernel:      w.Shape[2],
		Padding:     padding,
	}
	if p.OutLength() < 1 {
		return nil, fmt.Errorf("conv1d: length %d too short for kernel %d with padding %d: %w", p.Length, p.Kernel, p.Padding, core.ErrShape)
	}
	out, be, err := alloc(x, core.Float32, p.Batch, p.OutChannels, p.OutLength())
	if err != nil {
		return nil, err
	}
	if err := be.Conv1d(out.Storage, x.Storage, w.Storage, bias.Storage, p); err != nil {
		return nil, err
	}
	if autograd.Track(out, x, w, bias) {
		out.Backward = func() {
			if out.Grad == nil {
				return
			}
			var gx, gw, gb backend.Storage
			if x.RequiresGrad {
				gx = autograd.Grad(x).Storage
			}
			if w.RequiresGrad {
				gw = autograd.Grad(w).Storage
			}
			if bias.RequiresGrad {
				gb = autograd.Grad(bias).Storage
			}
			be.Conv1dBackward(gx, gw, gb, out.Grad.Storage, x.Storage, w.Storage, p)
		}
	}
	return out, nil
}

// Relu returns max(0, x).
func Relu(x *tensor.Tensor) (*tensor.Tensor, error) {
	out, be, err := alloc(x, core.Float32, x.Shape...)
	if err != nil {
		return nil, err
	}
	n := x.NumElements()
	if err := be.Relu(out.Storage, x.Storage, n); err != nil {
		return nil, err
	}
	if autograd.Track(out, x) {
		out.Backward = func() {
			if out.Grad == nil {
				return
			}
			be.ReluBackward(autograd.Grad(x).Storage, out.Grad.Storage, x.Storage, n)
		}
	}
	return out, nil
}

// MaxOverTime collapses the last axis of x [B, O, T] to its maximum, giving [B, O].
// If lengths is non-nil, row b only pools over its first lengths[b] positions.
func MaxOverTime(x *tensor.Tensor, lengths []int) (*tensor.Tensor, error) {
	if err := checkFloat("max pool", x, 3); err != nil {
		return nil, err
	}
	b, c, t := x.Shape[0], x.Shape[1], x.Shape[2]
	if lengths != nil && len(lengths) != b {
		return nil, fmt.Errorf("max pool: %d lengths for batch of %d: %w", len(lengths), b, core.ErrShape)
	}
	out, be, err := alloc(x, core.Float32, b, c)
	if err != nil {
		return nil, err
	}
	argmax, err := be.Alloc(b * c * 8)
	if err != nil {
		return nil, err
	}
	if err := be.MaxOverTime(out.Storage, argmax, x.Storage, b, c, t, lengths); err != nil {
		return nil, err
	}
	if autograd.Track(out, x) {
		out.Backward = func() {
			if out.Grad == nil {
				return
			}
			be.MaxOverTimeBackward(autograd.Grad(x).Storage, out.Grad.Storage, argmax, b, c, t)
		}
	}
	return out, nil
}

// Linear computes x @ W^T + bias for x [B, I], W [O, I], bias [O].
func Linear(x, w, bias *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkFloat("linear input", x, 2); err != nil {
		return nil, err
	}
	if err := checkFloat("linear weight", w, 2); err != nil {
		return nil, err
	}
	if err := core.CheckDim("linear weight", w.Shape, 1, x.Shape[1]); err != nil {
		return nil, err
	}
	if err := core.CheckDim("linear bias", bias.Shape, 0, w.Shape[0]); err != nil {
		return nil, err
	}
	batch, in, outSize := x.Shape[0], x.Shape[1], w.Shape[0]
	out, be, err := alloc(x, core.Float32, batch, outSize)
	if err != nil {
		return nil, err
	}
	if err := be.MatMul(out.Storage, x.Storage, w.Storage, batch, outSize, in, false, true, 0); err != nil {
		return nil, err
	}
	if err := be.AddBias(out.Storage, bias.Storage, batch, outSize); err != nil {
		return nil, err
	}
	if autograd.Track(out, x, w, bias) {
		out.Backward = func() {
			if out.Grad == nil {
				return
			}
			g := out.Grad.Storage
			if x.RequiresGrad {
				// dX [B, I] += dY [B, O] @ W [O, I]
				be.MatMul(autograd.Grad(x).Storage, g, w.Storage, batch, in, outSize, false, false, 1)
			}
			if w.RequiresGrad {
				// dW [O, I] += dY^T [O, B] @ X [B, I]
				be.MatMul(autograd.Grad(w).Storage, g, x.Storage, outSize, in, batch, true, false, 1)
			}
			if bias.RequiresGrad {
				be.SumRows(autograd.Grad(bias).Storage, g, batch, outSize)
			}
		}
	}
	return out, nil
}

// LogSoftmax normalizes each row of x [B, C] to log-probabilities.
func LogSoftmax(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkFloat("log softmax", x, 2); err != nil {
		return nil, err
	}
	rows, cols := x.Shape[0], x.Shape[1]
	out, be, err := alloc(x, core.Float32, rows, cols)
	if err != nil {
		return nil, err
	}
	if err := be.LogSoftmax(out.Storage, x.Storage, rows, cols); err != nil {
		return nil, err
	}
	if autograd.Track(out, x) {
		out.Backward = func() {
			if out.Grad == nil {
				return
			}
			be.LogSoftmaxBackward(autograd.Grad(x).Storage, out.Grad.Storage, out.Storage, rows, cols)
		}
	}
	return out, nil
}
