// Package checkpoint persists a trained classifier together with the
// vocabulary it was trained on.
package checkpoint

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/EricLina/sentcnn/backend"
	"github.com/EricLina/sentcnn/core"
	"github.com/EricLina/sentcnn/nn"
	"github.com/EricLina/sentcnn/tensor"
	"github.com/EricLina/sentcnn/tokenizer"
)

const formatVersion = 1

var (
	// ErrParamShape is returned when a stored tensor does not fit the stored config.
	ErrParamShape = errors.New("checkpoint parameter shape mismatch")
	// ErrVocabMismatch is returned when a vocabulary does not match the model.
	ErrVocabMismatch = errors.New("vocabulary does not match model")
)

// Meta describes the run that produced a checkpoint.
type Meta struct {
	RunID    string
	Created  time.Time
	Accuracy float64
}

type param struct {
	Name  string
	Shape []int
	Data  []float32
}

type artifact struct {
	Version int
	Meta    Meta
	Config  nn.Config
	Vocab   []string
	Params  []param
}

// Checkpoint is a loaded model ready for inference. Model carries no
// gradients.
type Checkpoint struct {
	Meta  Meta
	Model *nn.TextCNN
	Vocab *tokenizer.Vocab
}

// Save writes model and vocab to path. The file is replaced atomically.
func Save(path string, model *nn.TextCNN, vocab *tokenizer.Vocab, meta Meta) error {
	if err := CheckVocab(model.Config, vocab); err != nil {
		return err
	}
	if meta.Created.IsZero() {
		meta.Created = time.Now().UTC()
	}
	a := artifact{Version: formatVersion, Meta: meta, Config: model.Config, Vocab: vocab.Tokens()}
	shapes := model.Config.ParamShapes()
	for i, p := range model.Parameters() {
		a.Params = append(a.Params, param{
			Name:  shapes[i].Name,
			Shape: append([]int(nil), p.Shape...),
			Data:  p.Float32(),
		})
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	defer os.Remove(f.Name())
	if err := gob.NewEncoder(f).Encode(&a); err != nil {
		f.Close()
		return fmt.Errorf("checkpoint: encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return os.Rename(f.Name(), path)
}

// Load reads a checkpoint written by Save and places the parameters on dev.
func Load(path string, dev backend.Device) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	defer f.Close()
	var a artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("checkpoint: decode %s: %w", path, err)
	}
	if a.Version != formatVersion {
		return nil, fmt.Errorf("checkpoint: %s has format version %d, want %d", path, a.Version, formatVersion)
	}
	if err := a.Config.Validate(); err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}

	vocab, err := tokenizer.FromTokens(a.Vocab)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w: %v", ErrVocabMismatch, err)
	}
	if err := CheckVocab(a.Config, vocab); err != nil {
		return nil, err
	}

	shapes := a.Config.ParamShapes()
	if len(a.Params) != len(shapes) {
		return nil, fmt.Errorf("checkpoint: %d parameters stored, model needs %d: %w", len(a.Params), len(shapes), ErrParamShape)
	}
	params := make([]*tensor.Tensor, len(shapes))
	for i, want := range shapes {
		p := a.Params[i]
		if p.Name != want.Name || !core.Shape(p.Shape).Equal(want.Shape) {
			return nil, fmt.Errorf("checkpoint: %s %v, model needs %s %v: %w", p.Name, p.Shape, want.Name, want.Shape, ErrParamShape)
		}
		t, err := tensor.FromFloat32On(dev, p.Data, p.Shape...)
		if err != nil {
			return nil, fmt.Errorf("checkpoint: %s: %w", p.Name, ErrParamShape)
		}
		params[i] = t
	}
	model, err := nn.FromParameters(a.Config, params)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	return &Checkpoint{Meta: a.Meta, Model: model, Vocab: vocab}, nil
}

// CheckVocab reports whether vocab can index the embedding table of a model
// built from cfg.
func CheckVocab(cfg nn.Config, vocab *tokenizer.Vocab) error {
	if vocab.Len() != cfg.VocabSize {
		return fmt.Errorf("checkpoint: vocabulary has %d tokens, model has %d rows: %w", vocab.Len(), cfg.VocabSize, ErrVocabMismatch)
	}
	if vocab.PadID() != cfg.PadID {
		return fmt.Errorf("checkpoint: pad id %d, model uses %d: %w", vocab.PadID(), cfg.PadID, ErrVocabMismatch)
	}
	return nil
}
