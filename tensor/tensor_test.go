package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/EricLina/sentcnn/backend/cpu"
	"github.com/EricLina/sentcnn/core"
)

func TestFromFloat32RejectsWrongShape(t *testing.T) {
	_, err := FromFloat32([]float32{1, 2, 3}, 2, 2)
	assert.ErrorIs(t, err, core.ErrShape)
}

func TestCloneIsDetached(t *testing.T) {
	x, err := FromFloat32([]float32{1, 2, 3, 4}, 2, 2)
	require.NoError(t, err)
	x.RequiresGrad = true

	c, err := x.Clone()
	require.NoError(t, err)
	assert.False(t, c.RequiresGrad)
	assert.Equal(t, x.Float32(), c.Float32())

	c.Float32()[0] = 42
	assert.Equal(t, float32(1), x.Float32()[0])
}

func TestViewSharesStorage(t *testing.T) {
	x, err := FromInt64([]int64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	v, err := x.View(3, 2)
	require.NoError(t, err)
	v.Int64()[5] = 60
	assert.Equal(t, int64(60), x.Int64()[5])

	_, err = x.View(4, 2)
	assert.ErrorIs(t, err, core.ErrShape)
}
