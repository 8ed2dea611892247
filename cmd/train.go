package cmd

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/EricLina/sentcnn/checkpoint"
	"github.com/EricLina/sentcnn/dataset"
	"github.com/EricLina/sentcnn/nn"
	"github.com/EricLina/sentcnn/optim"
	"github.com/EricLina/sentcnn/runstore"
	"github.com/EricLina/sentcnn/tokenizer"
	"github.com/EricLina/sentcnn/train"
)

func newTrainCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train on the polarity corpus and save the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := a.cfg
			corpus, err := dataset.LoadPolarity(cfg.Data.CorpusDir, cfg.Data.TrainPerClass)
			if err != nil {
				return err
			}
			vocab := tokenizer.Build(corpus.Tokens(), 1)
			a.log.Info().Int("vocab", vocab.Len()).Int("train", len(corpus.Train)).Int("test", len(corpus.Test)).Msg("corpus loaded")

			model, err := nn.New(cfg.NetConfig(vocab.Len(), vocab.PadID()), a.dev, rand.New(rand.NewSource(cfg.Train.Seed)))
			if err != nil {
				return err
			}
			opt, err := optim.NewAdam(model.Parameters(), cfg.Train.LearningRate)
			if err != nil {
				return err
			}
			opts := train.Options{
				Epochs:      cfg.Train.Epochs,
				BatchSize:   cfg.Train.BatchSize,
				Seed:        cfg.Train.Seed,
				EvalWorkers: cfg.Train.EvalWorkers,
			}
			if cfg.Train.Progress {
				opts.Progress = cmd.ErrOrStderr()
			}
			tr, err := train.NewTrainer(model, opt, opts, a.log)
			if err != nil {
				return err
			}

			var runs *runstore.Store
			if cfg.Runs.Enabled {
				runs, err = runstore.Open(ctx, cfg.Runs.DSN)
				if err != nil {
					return err
				}
				defer runs.Close()
				err = runs.Begin(ctx, runstore.Run{
					ID:           tr.RunID(),
					Epochs:       cfg.Train.Epochs,
					BatchSize:    cfg.Train.BatchSize,
					LearningRate: cfg.Train.LearningRate,
				})
				if err != nil {
					return err
				}
				tr.OnEpoch = runs.RecordEpoch
			}

			res, err := tr.Fit(ctx, dataset.Encode(vocab, corpus.Train), dataset.Encode(vocab, corpus.Test))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Acc: %.2f\n", res.Accuracy)

			err = checkpoint.Save(cfg.ModelPath, res.Model, vocab, checkpoint.Meta{RunID: res.RunID, Accuracy: res.Accuracy})
			if err != nil {
				return err
			}
			a.log.Info().Str("path", cfg.ModelPath).Str("run_id", res.RunID).Msg("model saved")
			if runs != nil {
				return runs.Finish(ctx, res.RunID, res.Accuracy, cfg.ModelPath)
			}
			return nil
		},
	}
}
