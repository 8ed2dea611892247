package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EricLina/sentcnn/backend"
	_ "github.com/EricLina/sentcnn/backend/cpu"
	"github.com/EricLina/sentcnn/core"
	"github.com/EricLina/sentcnn/tensor"
)

func testConfig() Config {
	return Config{VocabSize: 12, EmbeddingDim: 6, FilterSize: 3, NumFilters: 5, NumClasses: 2, PadID: 0, MaskPadding: true}
}

func newModel(t *testing.T, cfg Config) *TextCNN {
	t.Helper()
	m, err := New(cfg, backend.CPU0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return m
}

func TestForwardShapeAndNormalization(t *testing.T) {
	m := newModel(t, testConfig())
	ids, err := tensor.FromInt64([]int64{2, 3, 4, 0, 5, 6, 7, 8, 9, 10, 0, 0}, 3, 4)
	require.NoError(t, err)

	out, err := m.Forward(ids, []int{3, 4, 2})
	require.NoError(t, err)
	assert.Equal(t, core.Shape{3, 2}, out.Shape)
	lp := out.Float32()
	for r := 0; r < 3; r++ {
		sum := math.Exp(float64(lp[2*r])) + math.Exp(float64(lp[2*r+1]))
		assert.InDelta(t, 1.0, sum, 1e-5)
	}
}

func TestForwardRejectsBadInput(t *testing.T) {
	m := newModel(t, testConfig())

	flat, _ := tensor.FromInt64([]int64{1, 2, 3}, 3)
	_, err := m.Forward(flat, nil)
	assert.ErrorIs(t, err, core.ErrShape)

	outOfRange, _ := tensor.FromInt64([]int64{1, 12}, 1, 2)
	_, err = m.Forward(outOfRange, nil)
	assert.ErrorIs(t, err, core.ErrShape)

	floatIDs, _ := tensor.FromFloat32([]float32{1, 2}, 1, 2)
	_, err = m.Forward(floatIDs, nil)
	assert.ErrorIs(t, err, core.ErrShape)

	ids, _ := tensor.FromInt64([]int64{1, 2}, 1, 2)
	_, err = m.Forward(ids, []int{1, 2})
	assert.ErrorIs(t, err, core.ErrShape)
}

func TestMaskedOutputIgnoresExtraPadding(t *testing.T) {
	m := newModel(t, testConfig())
	short, _ := tensor.FromInt64([]int64{4, 7}, 1, 2)
	padded, _ := tensor.FromInt64([]int64{4, 7, 0, 0, 0}, 1, 5)

	a, err := m.Forward(short, []int{2})
	require.NoError(t, err)
	b, err := m.Forward(padded, []int{2})
	require.NoError(t, err)
	assert.InDeltaSlice(t, a.Float32(), b.Float32(), 1e-6)
}

func TestFrozenIsIndependentAndTracksNoGradient(t *testing.T) {
	m := newModel(t, testConfig())
	frozen, err := m.Frozen()
	require.NoError(t, err)

	for _, p := range frozen.Parameters() {
		assert.False(t, p.RequiresGrad)
	}
	ids, _ := tensor.FromInt64([]int64{1, 2, 3}, 1, 3)
	before, err := frozen.Forward(ids, nil)
	require.NoError(t, err)
	assert.False(t, before.RequiresGrad)
	assert.Nil(t, before.Parents)

	m.Output.Bias.Float32()[0] += 5
	after, err := frozen.Forward(ids, nil)
	require.NoError(t, err)
	assert.Equal(t, before.Float32(), after.Float32())
}

func TestNewZeroesPadRow(t *testing.T) {
	cfg := testConfig()
	cfg.PadID = 3
	m := newModel(t, cfg)
	row := m.Embedding.Table.Float32()[3*cfg.EmbeddingDim : 4*cfg.EmbeddingDim]
	assert.Equal(t, make([]float32, cfg.EmbeddingDim), row)
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Padding())

	bad := cfg
	bad.NumClasses = 1
	assert.Error(t, bad.Validate())
	bad = cfg
	bad.PadID = 12
	assert.Error(t, bad.Validate())
	bad = cfg
	bad.VocabSize = 0
	assert.Error(t, bad.Validate())
}

func TestFromParametersChecksShapes(t *testing.T) {
	cfg := testConfig()
	m := newModel(t, cfg)
	params := m.Parameters()
	params[1], params[3] = params[3], params[1]
	_, err := FromParameters(cfg, params)
	assert.ErrorIs(t, err, core.ErrShape)
}
