package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/EricLina/sentcnn/dataset"
	"github.com/EricLina/sentcnn/infer"
)

func newPredictCommand(a *app) *cobra.Command {
	var raw bool
	c := &cobra.Command{
		Use:   "predict sentence...",
		Short: "Print one polarity label per sentence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := infer.Load(a.cfg.ModelPath, a.dev, a.log)
			if err != nil {
				return err
			}
			var labels []dataset.Label
			if raw {
				labels, err = p.PredictText(args)
			} else {
				sentences := make([][]string, len(args))
				for i, s := range args {
					sentences[i] = strings.Fields(s)
				}
				labels, err = p.Predict(sentences)
			}
			if err != nil {
				return err
			}
			return printLabels(cmd, labels)
		},
	}
	c.Flags().BoolVar(&raw, "raw", false, "normalize untokenized text before lookup")
	return c
}

func printLabels(cmd *cobra.Command, labels []dataset.Label) error {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.String()
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "[%s]\n", strings.Join(names, " "))
	return err
}
