package ops

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/EricLina/sentcnn/autograd"
	_ "github.com/EricLina/sentcnn/backend/cpu"
	"github.com/EricLina/sentcnn/core"
	"github.com/EricLina/sentcnn/tensor"
)

func param(t *testing.T, rng *rand.Rand, shape ...int) *tensor.Tensor {
	t.Helper()
	n := core.Shape(shape).NumElements()
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(rng.NormFloat64() * 0.5)
	}
	p, err := tensor.FromFloat32(data, shape...)
	require.NoError(t, err)
	p.RequiresGrad = true
	return p
}

func TestLinearForward(t *testing.T) {
	x, _ := tensor.FromFloat32([]float32{1, 2, 3, 4}, 2, 2)
	w, _ := tensor.FromFloat32([]float32{1, 0, 0, 1, 1, 1}, 3, 2)
	b, _ := tensor.FromFloat32([]float32{0, 0, 10}, 3)
	out, err := Linear(x, w, b)
	require.NoError(t, err)
	assert.Equal(t, core.Shape{2, 3}, out.Shape)
	assert.Equal(t, []float32{1, 2, 13, 3, 4, 17}, out.Float32())
	assert.False(t, out.RequiresGrad)
	assert.Nil(t, out.Backward)
}

func TestLinearRejectsMismatchedWeight(t *testing.T) {
	x, _ := tensor.FromFloat32([]float32{1, 2, 3, 4}, 2, 2)
	w, _ := tensor.FromFloat32([]float32{1, 2, 3}, 1, 3)
	b, _ := tensor.FromFloat32([]float32{0}, 1)
	_, err := Linear(x, w, b)
	assert.ErrorIs(t, err, core.ErrShape)
}

func TestNLLLossValueAndLabelCheck(t *testing.T) {
	lp, _ := tensor.FromFloat32([]float32{-0.1, -2.3, -1.2, -0.4}, 2, 2)
	target, _ := tensor.FromInt64([]int64{0, 1}, 2)
	loss, err := NLLLoss(lp, target)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, loss.Float32()[0], 1e-6)

	bad, _ := tensor.FromInt64([]int64{0, 2}, 2)
	_, err = NLLLoss(lp, bad)
	assert.ErrorIs(t, err, ErrLabel)
}

func TestArgmax(t *testing.T) {
	x, _ := tensor.FromFloat32([]float32{0.1, 0.9, 0.7, 0.3, 0.5, 0.5}, 3, 2)
	got, err := Argmax(x)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 0}, got)
}

func TestConv1dTooShort(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	x := param(t, rng, 1, 2, 1)
	w := param(t, rng, 3, 2, 4)
	b := param(t, rng, 3)
	_, err := Conv1d(x, w, b, 1)
	assert.ErrorIs(t, err, core.ErrShape)
}

func TestEmbeddingRejectsOutOfRangeID(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	table := param(t, rng, 4, 3)
	ids, _ := tensor.FromInt64([]int64{1, 4}, 1, 2)
	_, err := Embedding(table, ids, 0)
	assert.ErrorIs(t, err, core.ErrShape)
}

// pipeline is the full sentence-CNN forward pass used for gradient checking.
func pipeline(table, convW, convB, linW, linB, ids, target *tensor.Tensor, lengths []int) (*tensor.Tensor, error) {
	emb, err := Embedding(table, ids, 0)
	if err != nil {
		return nil, err
	}
	x, err := Transpose12(emb)
	if err != nil {
		return nil, err
	}
	conv, err := Conv1d(x, convW, convB, 1)
	if err != nil {
		return nil, err
	}
	act, err := Relu(conv)
	if err != nil {
		return nil, err
	}
	pooled, err := MaxOverTime(act, lengths)
	if err != nil {
		return nil, err
	}
	logits, err := Linear(pooled, linW, linB)
	if err != nil {
		return nil, err
	}
	lp, err := LogSoftmax(logits)
	if err != nil {
		return nil, err
	}
	return NLLLoss(lp, target)
}

func TestPipelineGradientsMatchFiniteDifferences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	table := param(t, rng, 6, 4)
	copy(table.Float32()[:4], make([]float32, 4))
	convW := param(t, rng, 5, 4, 3)
	convB := param(t, rng, 5)
	linW := param(t, rng, 2, 5)
	linB := param(t, rng, 2)
	ids, _ := tensor.FromInt64([]int64{2, 3, 4, 0, 5, 1, 2, 3}, 2, 4)
	target, _ := tensor.FromInt64([]int64{0, 1}, 2)
	lengths := []int{3, 4}

	loss, err := pipeline(table, convW, convB, linW, linB, ids, target, lengths)
	require.NoError(t, err)
	require.NoError(t, autograd.Backward(loss))

	eval := func() float64 {
		l, err := pipeline(table, convW, convB, linW, linB, ids, target, lengths)
		require.NoError(t, err)
		return float64(l.Float32()[0])
	}
	const eps = 1e-3
	for _, p := range []*tensor.Tensor{table, convW, convB, linW, linB} {
		require.NotNil(t, p.Grad)
		data := p.Float32()
		grad := p.Grad.Float32()
		idx := []int{0, len(data) / 2, len(data) - 1}
		if p == table {
			// skip the pad row, it is excluded from updates
			idx[0] = 4
		}
		for _, i := range idx {
			orig := data[i]
			data[i] = orig + eps
			plus := eval()
			data[i] = orig - eps
			minus := eval()
			data[i] = orig
			numeric := (plus - minus) / (2 * eps)
			assert.InDelta(t, numeric, float64(grad[i]), 2e-2, "param shape %v index %d", p.Shape, i)
		}
	}

	// Row 0 of the table is the pad row and never receives gradient.
	padGrad := table.Grad.Float32()[:4]
	assert.Equal(t, 0.0, floats.Norm(toF64(padGrad), 2))
}

func TestLogSoftmaxGradientSumsToZero(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x := param(t, rng, 3, 4)
	lp, err := LogSoftmax(x)
	require.NoError(t, err)
	for r := 0; r < 3; r++ {
		row := toF64(lp.Float32()[r*4 : (r+1)*4])
		sum := 0.0
		for _, v := range row {
			sum += math.Exp(v)
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	}
	target, _ := tensor.FromInt64([]int64{0, 3, 1}, 3)
	loss, err := NLLLoss(lp, target)
	require.NoError(t, err)
	require.NoError(t, autograd.Backward(loss))
	g := x.Grad.Float32()
	for r := 0; r < 3; r++ {
		assert.InDelta(t, 0.0, floats.Sum(toF64(g[r*4:(r+1)*4])), 1e-5)
	}
}

func toF64(xs []float32) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = float64(v)
	}
	return out
}
