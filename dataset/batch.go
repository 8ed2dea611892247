package dataset

import (
	"errors"
	"fmt"
	"iter"
	"math/rand"

	"github.com/EricLina/sentcnn/tensor"
)

// ErrBatchSize is returned for a non-positive batch size.
var ErrBatchSize = errors.New("batch size must be positive")

// Batch is a rectangular block of token ids. Row i holds Lengths[i] real ids
// followed by pad ids up to Width.
type Batch struct {
	IDs     []int64 // row-major [Rows, Width]
	Rows    int
	Width   int
	Lengths []int
	Labels  []int64
}

// Row returns row i of the id matrix.
func (b Batch) Row(i int) []int64 {
	return b.IDs[i*b.Width : (i+1)*b.Width]
}

// Tensors returns the ids as an int64 [Rows, Width] tensor and the labels as [Rows].
func (b Batch) Tensors() (ids, labels *tensor.Tensor, err error) {
	ids, err = tensor.FromInt64(b.IDs, b.Rows, b.Width)
	if err != nil {
		return nil, nil, err
	}
	if b.Labels == nil {
		return ids, nil, nil
	}
	labels, err = tensor.FromInt64(b.Labels, b.Rows)
	if err != nil {
		return nil, nil, err
	}
	return ids, labels, nil
}

// Pad right-pads sequences to the longest one. Labels are left nil. A batch
// whose sequences are all empty gets width 1 so it stays a valid model input.
func Pad(seqs [][]int64, padID int64) Batch {
	width := 1
	for _, s := range seqs {
		width = max(width, len(s))
	}
	b := Batch{
		IDs:     make([]int64, len(seqs)*width),
		Rows:    len(seqs),
		Width:   width,
		Lengths: make([]int, len(seqs)),
	}
	for i, s := range seqs {
		row := b.Row(i)
		copy(row, s)
		for j := len(s); j < width; j++ {
			row[j] = padID
		}
		b.Lengths[i] = len(s)
	}
	return b
}

// Loader yields padded batches over a fixed list of examples.
type Loader struct {
	examples  []Example
	batchSize int
	shuffle   bool
	padID     int64
	rng       *rand.Rand
}

// NewLoader validates the batch size. When shuffle is set every call to
// Batches visits the examples in a new order drawn from rng.
func NewLoader(examples []Example, batchSize int, padID int64, shuffle bool, rng *rand.Rand) (*Loader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrBatchSize, batchSize)
	}
	if shuffle && rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Loader{examples: examples, batchSize: batchSize, shuffle: shuffle, padID: padID, rng: rng}, nil
}

// Len returns the number of batches per pass.
func (l *Loader) Len() int {
	return (len(l.examples) + l.batchSize - 1) / l.batchSize
}

// Examples returns the number of examples per pass.
func (l *Loader) Examples() int { return len(l.examples) }

// Batches lazily produces one pass over the examples. Each batch is padded to
// its own longest row.
func (l *Loader) Batches() iter.Seq[Batch] {
	order := make([]int, len(l.examples))
	for i := range order {
		order[i] = i
	}
	if l.shuffle {
		l.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return func(yield func(Batch) bool) {
		for start := 0; start < len(order); start += l.batchSize {
			end := min(start+l.batchSize, len(order))
			seqs := make([][]int64, 0, end-start)
			labels := make([]int64, 0, end-start)
			for _, idx := range order[start:end] {
				seqs = append(seqs, l.examples[idx].IDs)
				labels = append(labels, int64(l.examples[idx].Label))
			}
			b := Pad(seqs, l.padID)
			b.Labels = labels
			if !yield(b) {
				return
			}
		}
	}
}
