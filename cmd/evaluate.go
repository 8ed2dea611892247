package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EricLina/sentcnn/checkpoint"
	"github.com/EricLina/sentcnn/dataset"
	"github.com/EricLina/sentcnn/train"
)

func newEvaluateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate",
		Short: "Report accuracy of the saved model on the test split",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ck, err := checkpoint.Load(a.cfg.ModelPath, a.dev)
			if err != nil {
				return err
			}
			corpus, err := dataset.LoadPolarity(a.cfg.Data.CorpusDir, a.cfg.Data.TrainPerClass)
			if err != nil {
				return err
			}
			test := dataset.Encode(ck.Vocab, corpus.Test)
			acc, err := train.Evaluate(cmd.Context(), ck.Model, test, a.cfg.Train.EvalWorkers)
			if err != nil {
				return err
			}
			a.log.Info().Float64("accuracy", acc).Int("examples", len(test)).Str("run_id", ck.Meta.RunID).Msg("evaluation done")
			fmt.Fprintf(cmd.OutOrStdout(), "Acc: %.2f\n", acc)
			return nil
		},
	}
}
