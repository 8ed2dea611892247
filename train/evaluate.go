package train

import (
	"context"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"github.com/EricLina/sentcnn/dataset"
	"github.com/EricLina/sentcnn/nn"
)

// Evaluate returns the fraction of examples whose argmax prediction equals
// the label. Each example is classified on its own, unpadded. model must not
// be trained concurrently; pass a Frozen snapshot. Empty input yields 0.
func Evaluate(ctx context.Context, model *nn.TextCNN, examples []dataset.Example, workers int) (float64, error) {
	if len(examples) == 0 {
		return 0, nil
	}
	p := pool.New().WithMaxGoroutines(max(1, workers)).WithContext(ctx).WithCancelOnError()
	var correct atomic.Int64
	for _, ex := range examples {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b := dataset.Pad([][]int64{ex.IDs}, model.Config.PadID)
			ids, _, err := b.Tensors()
			if err != nil {
				return err
			}
			pred, err := model.Predict(ids, b.Lengths)
			if err != nil {
				return err
			}
			if dataset.Label(pred[0]) == ex.Label {
				correct.Add(1)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return 0, err
	}
	return float64(correct.Load()) / float64(len(examples)), nil
}
