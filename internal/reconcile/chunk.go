package reconcile

import (
	"fmt"
	"iter"
)

// ChunkSeq returns a lazy sequence of consecutive sub-slices of items, each at most n long.
// A zero size is rejected with ErrInvalidArgument; a negative size yields no chunks.
// Chunks share the backing array of items but have their capacity capped, so appending
// to one never overwrites the next. Every call returns an independent sequence.
func ChunkSeq[T any](items []T, n int) (iter.Seq[[]T], error) {
	if n == 0 {
		return nil, fmt.Errorf("%w: chunk size must not be zero", ErrInvalidArgument)
	}
	return func(yield func([]T) bool) {
		if n < 0 {
			return
		}
		for start := 0; start < len(items); start += n {
			end := min(start+n, len(items))
			if !yield(items[start:end:end]) {
				return
			}
		}
	}, nil
}

// Chunk is the eager form of ChunkSeq.
func Chunk[T any](items []T, n int) ([][]T, error) {
	seq, err := ChunkSeq(items, n)
	if err != nil {
		return nil, err
	}
	var out [][]T
	for chunk := range seq {
		out = append(out, chunk)
	}
	return out, nil
}
