package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkCoversInputInOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	for n := 1; n <= len(items)+2; n++ {
		chunks, err := Chunk(items, n)
		require.NoError(t, err)

		wantCount := (len(items) + n - 1) / n
		require.Len(t, chunks, wantCount, "size %d", n)

		var joined []int
		for _, c := range chunks {
			require.LessOrEqual(t, len(c), n)
			require.NotEmpty(t, c)
			joined = append(joined, c...)
		}
		require.Equal(t, items, joined, "size %d", n)
	}
}

func TestChunkLastChunkMayBeShort(t *testing.T) {
	chunks, err := Chunk([]string{"a", "b", "c", "d", "e"}, 2)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, chunks)
}

func TestChunkZeroSizeIsInvalid(t *testing.T) {
	_, err := ChunkSeq([]int{1, 2}, 0)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = Chunk([]int{1, 2}, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestChunkNegativeSizeYieldsNothing(t *testing.T) {
	chunks, err := Chunk([]int{1, 2, 3}, -1)
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestChunkEmptyInput(t *testing.T) {
	chunks, err := Chunk([]int(nil), 3)
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestChunkSeqIsRestartable(t *testing.T) {
	seq, err := ChunkSeq([]int{1, 2, 3}, 2)
	require.NoError(t, err)

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	require.Equal(t, 2, count())
	require.Equal(t, 2, count())
}

func TestChunkSeqStopsEarly(t *testing.T) {
	seq, err := ChunkSeq([]int{1, 2, 3, 4, 5}, 1)
	require.NoError(t, err)

	var seen []int
	for c := range seq {
		seen = append(seen, c...)
		if len(seen) == 2 {
			break
		}
	}
	require.Equal(t, []int{1, 2}, seen)
}

func TestChunkAppendDoesNotClobberNextChunk(t *testing.T) {
	items := []int{1, 2, 3, 4}
	chunks, err := Chunk(items, 2)
	require.NoError(t, err)

	_ = append(chunks[0], 99)
	require.Equal(t, []int{3, 4}, chunks[1])
	require.Equal(t, []int{1, 2, 3, 4}, items)
}
