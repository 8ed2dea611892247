// Package train drives optimization of the sentence classifier: per-batch
// steps, epochs with summed loss, and accuracy on held-out examples.
package train

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v2"

	"github.com/EricLina/sentcnn/autograd"
	"github.com/EricLina/sentcnn/dataset"
	"github.com/EricLina/sentcnn/nn"
	"github.com/EricLina/sentcnn/ops"
)

// ErrNonFiniteLoss is returned when a batch loss is NaN or infinite.
var ErrNonFiniteLoss = errors.New("loss is not finite")

// Options controls a training run.
type Options struct {
	Epochs    int
	BatchSize int
	Seed      int64
	// EvalWorkers bounds parallel evaluation; values below 1 mean one worker.
	EvalWorkers int
	// Progress receives a per-epoch progress bar; nil disables it.
	Progress io.Writer
}

// EpochFunc observes the summed loss after each epoch.
type EpochFunc func(ctx context.Context, runID string, epoch int, loss float64) error

// Trainer runs the training loop: forward, loss, backward, step.
type Trainer struct {
	Model     *nn.TextCNN
	Optimizer nn.Optimizer
	Options   Options
	// OnEpoch, when set, is called after every epoch. An error aborts Fit.
	OnEpoch EpochFunc

	log   zerolog.Logger
	runID string
}

// Result summarizes a finished run. Model is a frozen snapshot of the
// trained parameters.
type Result struct {
	RunID     string
	EpochLoss []float64
	Accuracy  float64
	Model     *nn.TextCNN
}

// NewTrainer creates a trainer with a fresh run id.
func NewTrainer(model *nn.TextCNN, opt nn.Optimizer, opts Options, log zerolog.Logger) (*Trainer, error) {
	if opts.Epochs < 0 {
		return nil, fmt.Errorf("train: epochs must not be negative, got %d", opts.Epochs)
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("train: %w: got %d", dataset.ErrBatchSize, opts.BatchSize)
	}
	runID := uuid.NewString()
	return &Trainer{
		Model:     model,
		Optimizer: opt,
		Options:   opts,
		log:       log.With().Str("run_id", runID).Logger(),
		runID:     runID,
	}, nil
}

// RunID identifies this trainer's run in logs, checkpoints and the run store.
func (t *Trainer) RunID() string { return t.runID }

// Step runs one update on b and returns the batch mean loss.
func (t *Trainer) Step(b dataset.Batch) (float64, error) {
	ids, labels, err := b.Tensors()
	if err != nil {
		return 0, err
	}
	if labels == nil {
		return 0, errors.New("train: batch has no labels")
	}
	if err := t.Optimizer.ZeroGrad(); err != nil {
		return 0, err
	}
	logProbs, err := t.Model.Forward(ids, b.Lengths)
	if err != nil {
		return 0, err
	}
	lossT, err := ops.NLLLoss(logProbs, labels)
	if err != nil {
		return 0, err
	}
	loss := float64(lossT.Float32()[0])
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return 0, fmt.Errorf("train: batch of %d rows: %w", b.Rows, ErrNonFiniteLoss)
	}
	if err := autograd.Backward(lossT); err != nil {
		return 0, err
	}
	if err := t.Optimizer.Step(); err != nil {
		return 0, err
	}
	return loss, nil
}

// Epoch makes one pass over loader and returns the sum of the batch losses.
// The context is checked between batches.
func (t *Trainer) Epoch(ctx context.Context, loader *dataset.Loader, bar *progressbar.ProgressBar) (float64, error) {
	var total float64
	for b := range loader.Batches() {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		loss, err := t.Step(b)
		if err != nil {
			return total, err
		}
		total += loss
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	return total, nil
}

// Fit trains for Options.Epochs passes over train, then measures accuracy on
// test one example at a time using a frozen copy of the model.
func (t *Trainer) Fit(ctx context.Context, train, test []dataset.Example) (*Result, error) {
	rng := rand.New(rand.NewSource(t.Options.Seed))
	loader, err := dataset.NewLoader(train, t.Options.BatchSize, t.Model.Config.PadID, true, rng)
	if err != nil {
		return nil, err
	}
	t.log.Info().
		Int("train_examples", len(train)).
		Int("test_examples", len(test)).
		Int("batches", loader.Len()).
		Int("epochs", t.Options.Epochs).
		Msg("training started")

	res := &Result{RunID: t.runID, EpochLoss: make([]float64, 0, t.Options.Epochs)}
	for epoch := 1; epoch <= t.Options.Epochs; epoch++ {
		start := time.Now()
		bar := t.progress(loader.Len(), epoch)
		loss, err := t.Epoch(ctx, loader, bar)
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			return nil, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		res.EpochLoss = append(res.EpochLoss, loss)
		t.log.Info().Int("epoch", epoch).Float64("loss", loss).Dur("elapsed", time.Since(start)).Msg("epoch done")
		if t.OnEpoch != nil {
			if err := t.OnEpoch(ctx, t.runID, epoch, loss); err != nil {
				return nil, fmt.Errorf("epoch %d: %w", epoch, err)
			}
		}
	}

	frozen, err := t.Model.Frozen()
	if err != nil {
		return nil, err
	}
	res.Model = frozen
	res.Accuracy, err = Evaluate(ctx, frozen, test, t.Options.EvalWorkers)
	if err != nil {
		return nil, err
	}
	t.log.Info().Float64("accuracy", res.Accuracy).Int("examples", len(test)).Msg("evaluation done")
	return res, nil
}

func (t *Trainer) progress(n, epoch int) *progressbar.ProgressBar {
	if t.Options.Progress == nil {
		return nil
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(t.Options.Progress),
		progressbar.OptionSetDescription(fmt.Sprintf("Training Epoch %d", epoch)),
	)
}
