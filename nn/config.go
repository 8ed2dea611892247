package nn

import (
	"fmt"

	"github.com/EricLina/sentcnn/core"
)

// Config fixes the shape of a TextCNN. It is stored alongside trained
// parameters so a model can be rebuilt without the training configuration.
type Config struct {
	VocabSize    int   `json:"vocab_size"`
	EmbeddingDim int   `json:"embedding_dim"`
	FilterSize   int   `json:"filter_size"`
	NumFilters   int   `json:"num_filters"`
	NumClasses   int   `json:"num_classes"`
	PadID        int64 `json:"pad_id"`
	MaskPadding  bool  `json:"mask_padding"`
}

// Padding is the symmetric zero padding applied by the convolution.
func (c Config) Padding() int {
	return (c.FilterSize - 1) / 2
}

// Validate rejects configurations that cannot build a model.
func (c Config) Validate() error {
	switch {
	case c.VocabSize <= 0:
		return fmt.Errorf("model: vocab size must be positive, got %d", c.VocabSize)
	case c.EmbeddingDim <= 0:
		return fmt.Errorf("model: embedding dim must be positive, got %d", c.EmbeddingDim)
	case c.FilterSize <= 0:
		return fmt.Errorf("model: filter size must be positive, got %d", c.FilterSize)
	case c.NumFilters <= 0:
		return fmt.Errorf("model: filter count must be positive, got %d", c.NumFilters)
	case c.NumClasses < 2:
		return fmt.Errorf("model: need at least 2 classes, got %d", c.NumClasses)
	case c.PadID < 0 || c.PadID >= int64(c.VocabSize):
		return fmt.Errorf("model: pad id %d outside vocabulary of %d", c.PadID, c.VocabSize)
	}
	return nil
}

// Parameter names in the order returned by TextCNN.Parameters.
const (
	ParamEmbedding = "embedding.weight"
	ParamConvW     = "conv1d.weight"
	ParamConvB     = "conv1d.bias"
	ParamLinearW   = "linear.weight"
	ParamLinearB   = "linear.bias"
)

// ParamShape pairs a parameter name with the shape the config requires.
type ParamShape struct {
	Name  string
	Shape core.Shape
}

// ParamShapes lists every parameter of a model built from c.
func (c Config) ParamShapes() []ParamShape {
	return []ParamShape{
		{ParamEmbedding, core.Shape{c.VocabSize, c.EmbeddingDim}},
		{ParamConvW, core.Shape{c.NumFilters, c.EmbeddingDim, c.FilterSize}},
		{ParamConvB, core.Shape{c.NumFilters}},
		{ParamLinearW, core.Shape{c.NumClasses, c.NumFilters}},
		{ParamLinearB, core.Shape{c.NumClasses}},
	}
}
