// Package infer classifies sentences with a persisted model.
package infer

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/EricLina/sentcnn/backend"
	"github.com/EricLina/sentcnn/checkpoint"
	"github.com/EricLina/sentcnn/dataset"
	"github.com/EricLina/sentcnn/nn"
	"github.com/EricLina/sentcnn/tokenizer"
)

// Predictor maps tokenized sentences to polarity labels. It holds a frozen
// model and is safe for concurrent use.
type Predictor struct {
	model *nn.TextCNN
	vocab *tokenizer.Vocab
}

// New wraps a model and the vocabulary it was trained with. The model is
// snapshotted so later training does not change predictions.
func New(model *nn.TextCNN, vocab *tokenizer.Vocab) (*Predictor, error) {
	if err := checkpoint.CheckVocab(model.Config, vocab); err != nil {
		return nil, err
	}
	frozen, err := model.Frozen()
	if err != nil {
		return nil, err
	}
	return &Predictor{model: frozen, vocab: vocab}, nil
}

// Load reads a checkpoint from path onto dev.
func Load(path string, dev backend.Device, log zerolog.Logger) (*Predictor, error) {
	ck, err := checkpoint.Load(path, dev)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("path", path).
		Str("run_id", ck.Meta.RunID).
		Int("vocab", ck.Vocab.Len()).
		Str("device", dev.String()).
		Msg("model loaded")
	return &Predictor{model: ck.Model, vocab: ck.Vocab}, nil
}

// Vocab returns the predictor's vocabulary.
func (p *Predictor) Vocab() *tokenizer.Vocab { return p.vocab }

// LogProbs returns per-sentence class log-probabilities. Tokens missing from
// the vocabulary map to the unknown id.
func (p *Predictor) LogProbs(sentences [][]string) ([][]float32, error) {
	if len(sentences) == 0 {
		return nil, nil
	}
	seqs := make([][]int64, len(sentences))
	for i, s := range sentences {
		seqs[i] = p.vocab.IDs(s)
	}
	b := dataset.Pad(seqs, p.vocab.PadID())
	ids, _, err := b.Tensors()
	if err != nil {
		return nil, err
	}
	out, err := p.model.Forward(ids, b.Lengths)
	if err != nil {
		return nil, fmt.Errorf("infer: %w", err)
	}
	classes := p.model.Config.NumClasses
	flat := out.Float32()
	rows := make([][]float32, len(sentences))
	for i := range rows {
		rows[i] = append([]float32(nil), flat[i*classes:(i+1)*classes]...)
	}
	return rows, nil
}

// Predict returns one label per sentence: Positive for class 0, Negative
// otherwise.
func (p *Predictor) Predict(sentences [][]string) ([]dataset.Label, error) {
	rows, err := p.LogProbs(sentences)
	if err != nil {
		return nil, err
	}
	labels := make([]dataset.Label, len(rows))
	for i, row := range rows {
		best := 0
		for c, v := range row {
			if v > row[best] {
				best = c
			}
		}
		if best == int(dataset.Positive) {
			labels[i] = dataset.Positive
		} else {
			labels[i] = dataset.Negative
		}
	}
	return labels, nil
}

// PredictText normalizes and splits raw strings before predicting.
func (p *Predictor) PredictText(texts []string) ([]dataset.Label, error) {
	sentences := make([][]string, len(texts))
	for i, text := range texts {
		toks, err := tokenizer.Split(text)
		if err != nil {
			return nil, fmt.Errorf("infer: sentence %d: %w", i, err)
		}
		sentences[i] = toks
	}
	return p.Predict(sentences)
}
