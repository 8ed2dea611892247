package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EricLina/sentcnn/dataset"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// workspace writes a small corpus and a config that trains on it quickly.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus")
	require.NoError(t, os.MkdirAll(corpus, 0o755))
	var pos, neg strings.Builder
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&pos, "a %s film\n", []string{"great", "fun", "moving"}[i%3])
		fmt.Fprintf(&neg, "a %s film\n", []string{"awful", "dull", "tedious"}[i%3])
	}
	require.NoError(t, os.WriteFile(filepath.Join(corpus, dataset.PositiveFile), []byte(pos.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(corpus, dataset.NegativeFile), []byte(neg.String()), 0o644))

	cfg := fmt.Sprintf(`
model:
  embedding_dim: 8
  num_filters: 6
train:
  batch_size: 4
  epochs: 30
  learning_rate: 0.02
  progress: false
data:
  corpus_dir: %q
  train_per_class: 9
model_path: %q
device: cpu
log_level: error
`, corpus, filepath.Join(dir, "model_cnn.gob"))
	path := filepath.Join(dir, "sentcnn.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestTrainEvaluatePredict(t *testing.T) {
	cfg := workspace(t)

	out, err := run(t, "train", "--config", cfg)
	require.NoError(t, err)
	assert.Regexp(t, `^Acc: \d\.\d\d\n$`, out)

	out, err = run(t, "evaluate", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "Acc: 1.00\n", out)

	out, err = run(t, "predict", "--config", cfg, "a great film", "a dull film")
	require.NoError(t, err)
	assert.Equal(t, "[pos neg]\n", out)

	out, err = run(t, "predict", "--config", cfg, "--raw", "A GREAT Film!", "Dull")
	require.NoError(t, err)
	assert.Equal(t, "[pos neg]\n", out)

	out, err = run(t, "--config", cfg)
	require.NoError(t, err)
	assert.Regexp(t, `^\[(pos|neg) (pos|neg)\]\n$`, out)
}

func TestMissingModelFails(t *testing.T) {
	cfg := workspace(t)
	_, err := run(t, "--config", cfg, "--model", filepath.Join(t.TempDir(), "none.gob"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestUnknownDeviceFails(t *testing.T) {
	cfg := workspace(t)
	_, err := run(t, "predict", "--config", cfg, "--device", "cuda", "x")
	assert.Error(t, err)
}
