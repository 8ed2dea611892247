package tokenizer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReservesPadAndUnk(t *testing.T) {
	v := Build([][]string{{"good", "movie"}, {"bad", "movie"}}, 1)
	assert.Equal(t, []string{PadToken, UnkToken, "good", "movie", "bad"}, v.Tokens())
	assert.Equal(t, int64(0), v.PadID())
	assert.Equal(t, int64(1), v.UnkID())
	assert.Equal(t, int64(3), v.ID("movie"))
	assert.Equal(t, []int64{2, 1, 4}, v.IDs([]string{"good", "awful", "bad"}))
}

func TestBuildMinFreqAndReserved(t *testing.T) {
	v := Build([][]string{{"a", "b", "a", UnkToken}}, 2, "<bos>")
	assert.Equal(t, []string{PadToken, UnkToken, "<bos>", "a"}, v.Tokens())
	assert.Equal(t, v.UnkID(), v.ID("b"))
}

func TestIDsStayInRange(t *testing.T) {
	v := Build([][]string{{"x", "y"}}, 1)
	for _, id := range v.IDs([]string{"x", "y", "z", ""}) {
		assert.GreaterOrEqual(t, id, int64(0))
		assert.Less(t, id, int64(v.Len()))
	}
	_, err := v.Token(int64(v.Len()))
	assert.ErrorIs(t, err, ErrUnknownID)
	tok, err := v.Token(2)
	require.NoError(t, err)
	assert.Equal(t, "x", tok)
}

func TestWriteReadRoundTrip(t *testing.T) {
	v := Build([][]string{{"the", "rock", "is", "destined"}}, 1)
	var buf bytes.Buffer
	_, err := v.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadVocab(&buf)
	require.NoError(t, err)
	assert.Equal(t, v.Tokens(), got.Tokens())
	assert.Equal(t, v.ID("rock"), got.ID("rock"))
}

func TestFromTokensRejectsBadLists(t *testing.T) {
	_, err := FromTokens([]string{"a", "b"})
	assert.Error(t, err)
	_, err = FromTokens([]string{PadToken, UnkToken, "a", "a"})
	assert.Error(t, err)
}

func TestSplitLowercases(t *testing.T) {
	got, err := Split("  Great FILM ")
	require.NoError(t, err)
	assert.Equal(t, []string{"great", "film"}, got)
}
