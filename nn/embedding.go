package nn

import (
	"fmt"

	"github.com/EricLina/sentcnn/ops"
	"github.com/EricLina/sentcnn/tensor"
)

// Embedding is a lookup table: out = table[indices]. Table [numEmbeddings, embedDim].
// Row PaddingIdx is kept at zero and never updated.
type Embedding struct {
	Table      *tensor.Tensor // [numEmbeddings, embedDim]
	PaddingIdx int64
}

// NewEmbedding wraps a table tensor.
func NewEmbedding(table *tensor.Tensor, paddingIdx int64) (*Embedding, error) {
	if len(table.Shape) != 2 {
		return nil, fmt.Errorf("embedding table must be 2D, got %v", table.Shape)
	}
	if paddingIdx < 0 || paddingIdx >= int64(table.Shape[0]) {
		return nil, fmt.Errorf("embedding padding index %d outside table of %d rows", paddingIdx, table.Shape[0])
	}
	return &Embedding{Table: table, PaddingIdx: paddingIdx}, nil
}

// Forward returns table[indices]. indices: int64 [batch, seq]; out: [batch, seq, embedDim].
func (e *Embedding) Forward(indices *tensor.Tensor) (*tensor.Tensor, error) {
	return ops.Embedding(e.Table, indices, e.PaddingIdx)
}
