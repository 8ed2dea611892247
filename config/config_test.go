package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)
	suite.tempDir = suite.T().TempDir()
	require.NoError(suite.T(), os.Chdir(suite.tempDir))
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		os.Chdir(suite.origDir)
	}
}

func (suite *ConfigTestSuite) TestDefaults() {
	cfg, err := Load("")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), 128, cfg.Model.EmbeddingDim)
	assert.Equal(suite.T(), 3, cfg.Model.FilterSize)
	assert.Equal(suite.T(), 100, cfg.Model.NumFilters)
	assert.Equal(suite.T(), 2, cfg.Model.NumClasses)
	assert.True(suite.T(), cfg.Model.MaskPadding)
	assert.Equal(suite.T(), 32, cfg.Train.BatchSize)
	assert.Equal(suite.T(), 100, cfg.Train.Epochs)
	assert.Equal(suite.T(), 0.001, cfg.Train.LearningRate)
	assert.Equal(suite.T(), int64(42), cfg.Train.Seed)
	assert.Positive(suite.T(), cfg.Train.EvalWorkers)
	assert.Equal(suite.T(), 4000, cfg.Data.TrainPerClass)
	assert.Equal(suite.T(), "model_cnn.gob", cfg.ModelPath)
	assert.Equal(suite.T(), "auto", cfg.Device)
	assert.False(suite.T(), cfg.Runs.Enabled)
}

func (suite *ConfigTestSuite) TestFileAndEnvOverrides() {
	content := `
model:
  num_filters: 16
train:
  epochs: 5
  eval_workers: 3
device: cpu
`
	require.NoError(suite.T(), os.WriteFile(filepath.Join(suite.tempDir, "sentcnn.yaml"), []byte(content), 0o644))
	suite.T().Setenv("SENTCNN_TRAIN_BATCH_SIZE", "8")

	cfg, err := Load("")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 16, cfg.Model.NumFilters)
	assert.Equal(suite.T(), 5, cfg.Train.Epochs)
	assert.Equal(suite.T(), 3, cfg.Train.EvalWorkers)
	assert.Equal(suite.T(), 8, cfg.Train.BatchSize)
	assert.Equal(suite.T(), "cpu", cfg.Device)
	assert.Equal(suite.T(), 128, cfg.Model.EmbeddingDim)
}

func (suite *ConfigTestSuite) TestExplicitMissingFile() {
	_, err := Load(filepath.Join(suite.tempDir, "absent.yaml"))
	assert.Error(suite.T(), err)
}

func (suite *ConfigTestSuite) TestRejectsInvalidValues() {
	suite.T().Setenv("SENTCNN_TRAIN_BATCH_SIZE", "0")
	_, err := Load("")
	assert.ErrorContains(suite.T(), err, "batch_size")

	suite.T().Setenv("SENTCNN_TRAIN_BATCH_SIZE", "4")
	suite.T().Setenv("SENTCNN_DEVICE", "tpu")
	_, err = Load("")
	assert.ErrorContains(suite.T(), err, "device")
}

func TestNetConfig(t *testing.T) {
	c := &Config{Model: ModelConfig{EmbeddingDim: 4, FilterSize: 3, NumFilters: 2, NumClasses: 2, MaskPadding: true}}
	nc := c.NetConfig(10, 0)
	assert.Equal(t, 10, nc.VocabSize)
	assert.Equal(t, 1, nc.Padding())
	assert.NoError(t, nc.Validate())
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("warn", &buf)
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), `"time"`)

	assert.Equal(t, zerolog.InfoLevel, NewLogger("bogus", &buf).GetLevel())
}
