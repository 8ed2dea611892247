// Package cmd wires the command line: training, evaluation and prediction.
package cmd

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/EricLina/sentcnn/backend"
	"github.com/EricLina/sentcnn/backend/cpu"
	"github.com/EricLina/sentcnn/config"
	"github.com/EricLina/sentcnn/infer"
)

// Sentences classified when the program runs without a sub-command.
var demoSentences = [][]string{
	strings.Fields("the rock is destined to be the 21st century's new \" conan \" and that he's going to make a splash even greater than arnold schwarzenegger , jean-claud van damme or steven segal ."),
	strings.Fields("simplistic , silly and tedious ."),
}

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	modelPath  string
	device     string

	cfg *config.Config
	log zerolog.Logger
	dev backend.Device
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.modelPath != "" {
		cfg.ModelPath = a.modelPath
	}
	if a.device != "" {
		cfg.Device = a.device
	}
	a.cfg = cfg
	a.log = config.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())

	dev, err := backend.Select(cfg.Device)
	if err != nil {
		return err
	}
	a.dev = dev
	f := cpu.DetectFeatures()
	a.log.Debug().
		Str("device", dev.String()).
		Str("cpu", f.Brand).
		Int("cores", f.LogicalCores).
		Bool("avx2", f.AVX2).
		Bool("fma3", f.FMA3).
		Msg("device selected")
	return nil
}

// NewRootCommand builds the sentcnn command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "sentcnn",
		Short:             "Convolutional sentence polarity classifier",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := infer.Load(a.cfg.ModelPath, a.dev, a.log)
			if err != nil {
				return err
			}
			labels, err := p.Predict(demoSentences)
			if err != nil {
				return err
			}
			return printLabels(cmd, labels)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./sentcnn.yaml)")
	root.PersistentFlags().StringVar(&a.modelPath, "model", "", "model artifact path (overrides model_path)")
	root.PersistentFlags().StringVar(&a.device, "device", "", "auto, cpu or cuda (overrides device)")

	root.AddCommand(newTrainCommand(a), newEvaluateCommand(a), newPredictCommand(a))
	return root
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}
