package dataset

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/EricLina/sentcnn/backend/cpu"
	"github.com/EricLina/sentcnn/core"
)

func examples(lengths ...int) []Example {
	out := make([]Example, len(lengths))
	for i, n := range lengths {
		ids := make([]int64, n)
		for j := range ids {
			ids[j] = int64(2 + i)
		}
		out[i] = Example{IDs: ids, Label: Label(i % 2)}
	}
	return out
}

func TestNewLoaderRejectsNonPositiveBatchSize(t *testing.T) {
	for _, size := range []int{0, -3} {
		_, err := NewLoader(examples(1), size, 0, false, nil)
		assert.ErrorIs(t, err, ErrBatchSize)
	}
}

func TestBatchesArePaddedPerBatch(t *testing.T) {
	l, err := NewLoader(examples(2, 5, 1, 3, 4), 2, 0, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, l.Len())

	var widths []int
	for b := range l.Batches() {
		widths = append(widths, b.Width)
		assert.Len(t, b.Labels, b.Rows)
		assert.Len(t, b.IDs, b.Rows*b.Width)
		maxLen := 0
		for i := 0; i < b.Rows; i++ {
			maxLen = max(maxLen, b.Lengths[i])
			row := b.Row(i)
			for j := b.Lengths[i]; j < b.Width; j++ {
				assert.Equal(t, int64(0), row[j], "row %d col %d", i, j)
			}
			for j := 0; j < b.Lengths[i]; j++ {
				assert.NotEqual(t, int64(0), row[j])
			}
		}
		assert.Equal(t, maxLen, b.Width)
	}
	assert.Equal(t, []int{5, 3, 4}, widths)
}

func TestEvaluationOrderIsPreserved(t *testing.T) {
	ex := examples(1, 2, 3, 4)
	l, err := NewLoader(ex, 1, 0, false, nil)
	require.NoError(t, err)
	i := 0
	for b := range l.Batches() {
		assert.Equal(t, ex[i].IDs, b.Row(0))
		assert.Equal(t, []int64{int64(ex[i].Label)}, b.Labels)
		i++
	}
	assert.Equal(t, 4, i)
}

func TestShuffleVisitsEveryExampleOnce(t *testing.T) {
	ex := examples(1, 2, 3, 4, 5, 6, 7)
	l, err := NewLoader(ex, 3, 0, true, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	for pass := 0; pass < 2; pass++ {
		seen := map[int64]int{}
		for b := range l.Batches() {
			for i := 0; i < b.Rows; i++ {
				seen[b.Row(i)[0]]++
			}
		}
		assert.Len(t, seen, len(ex))
		for id, n := range seen {
			assert.Equal(t, 1, n, "id %d", id)
		}
	}
}

func TestBatchesStopEarly(t *testing.T) {
	l, err := NewLoader(examples(1, 1, 1, 1), 1, 0, false, nil)
	require.NoError(t, err)
	n := 0
	for range l.Batches() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestPadAndTensors(t *testing.T) {
	b := Pad([][]int64{{5, 6, 7}, {8}}, 0)
	assert.Equal(t, []int64{5, 6, 7, 8, 0, 0}, b.IDs)
	assert.Equal(t, []int{3, 1}, b.Lengths)

	ids, labels, err := b.Tensors()
	require.NoError(t, err)
	assert.Nil(t, labels)
	assert.Equal(t, core.Shape{2, 3}, ids.Shape)

	empty := Pad([][]int64{{}, {}}, 0)
	assert.Equal(t, 1, empty.Width)
	assert.Equal(t, []int64{0, 0}, empty.IDs)
}

func TestLoadPolaritySplitsPerClass(t *testing.T) {
	dir := t.TempDir()
	pos := "a fine film .\nthe rock is destined .\n\ngreat\n"
	neg := "simplistic , silly and tedious .\nbad\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, PositiveFile), []byte(pos), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, NegativeFile), []byte(neg), 0o644))

	c, err := LoadPolarity(dir, 1)
	require.NoError(t, err)
	require.Len(t, c.Train, 2)
	require.Len(t, c.Test, 3)
	assert.Equal(t, Positive, c.Train[0].Label)
	assert.Equal(t, Negative, c.Train[1].Label)
	assert.Equal(t, []string{"simplistic", ",", "silly", "and", "tedious", "."}, c.Train[1].Tokens)
	assert.Equal(t, []string{"great"}, c.Test[1].Tokens)
	assert.Len(t, c.Tokens(), 5)

	_, err = LoadPolarity(t.TempDir(), 1)
	assert.Error(t, err)
}

func TestReadSentencesDecodesLatin1(t *testing.T) {
	got, err := ReadSentences(strings.NewReader("caf\xe9 au lait\n"), Positive)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "café", got[0].Tokens[0])
}

func TestLabelString(t *testing.T) {
	assert.Equal(t, "pos", Positive.String())
	assert.Equal(t, "neg", Negative.String())
}
