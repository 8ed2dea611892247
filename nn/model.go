package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/EricLina/sentcnn/backend"
	"github.com/EricLina/sentcnn/core"
	"github.com/EricLina/sentcnn/ops"
	"github.com/EricLina/sentcnn/tensor"
)

// TextCNN is Embedding -> Conv1d -> ReLU -> max over time -> Linear -> log-softmax.
type TextCNN struct {
	Config    Config
	Embedding *Embedding
	Conv      *Conv1d
	Output    *Linear
}

// New allocates a TextCNN on dev with randomly initialized, trainable
// parameters: embeddings ~ N(0, 1) with a zero pad row, conv and linear
// weights ~ U(-1/sqrt(fanIn), 1/sqrt(fanIn)).
func New(cfg Config, dev backend.Device, rng *rand.Rand) (*TextCNN, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	shapes := cfg.ParamShapes()
	params := make([]*tensor.Tensor, len(shapes))
	for i, ps := range shapes {
		data := make([]float32, ps.Shape.NumElements())
		switch ps.Name {
		case ParamEmbedding:
			for j := range data {
				data[j] = float32(rng.NormFloat64())
			}
			pad := int(cfg.PadID) * cfg.EmbeddingDim
			clear(data[pad : pad+cfg.EmbeddingDim])
		case ParamConvW, ParamConvB:
			uniform(rng, data, cfg.EmbeddingDim*cfg.FilterSize)
		case ParamLinearW, ParamLinearB:
			uniform(rng, data, cfg.NumFilters)
		}
		t, err := tensor.FromFloat32On(dev, data, ps.Shape...)
		if err != nil {
			return nil, err
		}
		t.RequiresGrad = true
		params[i] = t
	}
	return FromParameters(cfg, params)
}

func uniform(rng *rand.Rand, data []float32, fanIn int) {
	bound := 1 / math.Sqrt(float64(fanIn))
	for j := range data {
		data[j] = float32((rng.Float64()*2 - 1) * bound)
	}
}

// FromParameters assembles a model from tensors in Parameters order, checking
// every shape against cfg.
func FromParameters(cfg Config, params []*tensor.Tensor) (*TextCNN, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	shapes := cfg.ParamShapes()
	if len(params) != len(shapes) {
		return nil, fmt.Errorf("model: want %d parameters, got %d: %w", len(shapes), len(params), core.ErrShape)
	}
	for i, ps := range shapes {
		if params[i].DType != core.Float32 || !params[i].Shape.Equal(ps.Shape) {
			return nil, fmt.Errorf("model: %s must be float32 %v, got %v %v: %w", ps.Name, ps.Shape, params[i].DType, params[i].Shape, core.ErrShape)
		}
	}
	emb, err := NewEmbedding(params[0], cfg.PadID)
	if err != nil {
		return nil, err
	}
	conv, err := NewConv1d(params[1], params[2], cfg.Padding())
	if err != nil {
		return nil, err
	}
	out, err := NewLinear(cfg.NumFilters, cfg.NumClasses, params[3], params[4])
	if err != nil {
		return nil, err
	}
	return &TextCNN{Config: cfg, Embedding: emb, Conv: conv, Output: out}, nil
}

// Parameters returns the trainable tensors in a fixed order
// (embedding, conv weight, conv bias, linear weight, linear bias).
func (m *TextCNN) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{m.Embedding.Table, m.Conv.W, m.Conv.Bias, m.Output.W, m.Output.Bias}
}

// Frozen returns a deep copy whose parameters carry no gradients. Forward on
// a frozen model builds no graph, and later training of m does not affect it.
func (m *TextCNN) Frozen() (*TextCNN, error) {
	params := m.Parameters()
	clones := make([]*tensor.Tensor, len(params))
	for i, p := range params {
		c, err := p.Clone()
		if err != nil {
			return nil, err
		}
		clones[i] = c
	}
	return FromParameters(m.Config, clones)
}

// Forward maps padded ids [batch, seq] to class log-probabilities [batch, classes].
// lengths holds each row's unpadded length; it is used to keep padded
// positions out of the max-pool when MaskPadding is set and may be nil.
func (m *TextCNN) Forward(ids *tensor.Tensor, lengths []int) (*tensor.Tensor, error) {
	if ids.DType != core.Int64 {
		return nil, fmt.Errorf("indices must be int64, got %v: %w", ids.DType, core.ErrShape)
	}
	if err := core.CheckRank("indices", ids.Shape, 2); err != nil {
		return nil, err
	}
	if lengths != nil && len(lengths) != ids.Shape[0] {
		return nil, fmt.Errorf("got %d lengths for %d rows: %w", len(lengths), ids.Shape[0], core.ErrShape)
	}
	// x [batch, seq, embed] -> channel-first [batch, embed, seq]
	x, err := m.Embedding.Forward(ids)
	if err != nil {
		return nil, err
	}
	x, err = ops.Transpose12(x)
	if err != nil {
		return nil, err
	}
	x, err = m.Conv.Forward(x)
	if err != nil {
		return nil, err
	}
	x, err = ops.Relu(x)
	if err != nil {
		return nil, err
	}
	if !m.Config.MaskPadding {
		lengths = nil
	}
	x, err = ops.MaxOverTime(x, lengths)
	if err != nil {
		return nil, err
	}
	logits, err := m.Output.Forward(x)
	if err != nil {
		return nil, err
	}
	return ops.LogSoftmax(logits)
}

// Predict returns the argmax class per row.
func (m *TextCNN) Predict(ids *tensor.Tensor, lengths []int) ([]int, error) {
	logProbs, err := m.Forward(ids, lengths)
	if err != nil {
		return nil, err
	}
	return ops.Argmax(logProbs)
}
