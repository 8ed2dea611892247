package ops

import (
	"errors"
	"fmt"

	"github.com/EricLina/sentcnn/autograd"
	"github.com/EricLina/sentcnn/core"
	"github.com/EricLina/sentcnn/tensor"
)

// ErrLabel is returned when a target class is outside [0, numClasses).
var ErrLabel = errors.New("label out of range")

// NLLLoss computes mean(-logProbs[i, target[i]]) over the batch.
// logProbs: [batch, numClasses] float32, target: [batch] int64. Returns a [1] scalar.
func NLLLoss(logProbs, target *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkFloat("nll log-probs", logProbs, 2); err != nil {
		return nil, err
	}
	if target.DType != core.Int64 {
		return nil, fmt.Errorf("nll target: want int64, got %v: %w", target.DType, core.ErrShape)
	}
	batch, numClasses := logProbs.Shape[0], logProbs.Shape[1]
	if err := core.CheckDim("nll target", target.Shape, 0, batch); err != nil {
		return nil, err
	}
	lp := logProbs.Float32()
	tgt := target.Int64()
	var loss float32
	for i, c := range tgt {
		if c < 0 || int(c) >= numClasses {
			return nil, fmt.Errorf("nll: target %d of row %d with %d classes: %w", c, i, numClasses, ErrLabel)
		}
		loss -= lp[i*numClasses+int(c)]
	}
	loss /= float32(batch)
	out, err := tensor.FromFloat32On(logProbs.Device(), []float32{loss}, 1)
	if err != nil {
		return nil, err
	}
	if autograd.Track(out, logProbs) {
		out.Backward = func() {
			if out.Grad == nil {
				return
			}
			scale := out.Grad.Float32()[0] / float32(batch)
			g := autograd.Grad(logProbs).Float32()
			for i, c := range tgt {
				g[i*numClasses+int(c)] -= scale
			}
		}
	}
	return out, nil
}

// Argmax returns the index of the largest value in each row of x [rows, cols].
// Ties resolve to the lowest index.
func Argmax(x *tensor.Tensor) ([]int, error) {
	if err := checkFloat("argmax", x, 2); err != nil {
		return nil, err
	}
	rows, cols := x.Shape[0], x.Shape[1]
	v := x.Float32()
	out := make([]int, rows)
	for r := 0; r < rows; r++ {
		row := v[r*cols : (r+1)*cols]
		best := 0
		for j := 1; j < cols; j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[r] = best
	}
	return out, nil
}
