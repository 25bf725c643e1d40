// Package paging assembles exact pages of filtered results from keyset scans.
//
// A store can only skip raw rows, but callers page over rows that pass a
// client-side predicate. Lister drives a keyset fetcher block by block,
// counting matches until the requested window is filled.
package paging

import (
	"context"
	"fmt"

	"principal-registry/internal/domain"
)

// DefaultBlockSize is the number of raw records fetched per keyset query.
const DefaultBlockSize = 100

// FetchFunc returns up to limit records strictly after the cursor in sort
// order. A nil cursor starts from the beginning. An empty result means the
// scan is exhausted.
type FetchFunc[T, K any] func(ctx context.Context, after *K, limit int) ([]T, error)

// Stats describes the work done by one List call.
type Stats struct {
	Blocks  int // keyset queries issued
	Scanned int // raw records read
	Matched int // records accepted by the predicate
}

// Lister is an immutable paging configuration. The zero value is not usable;
// build one with NewLister.
type Lister[T, K any] struct {
	key       func(T) K
	blockSize int
}

// NewLister returns a Lister that extracts the keyset cursor of a record with
// key and reads blockSize records per query (DefaultBlockSize when <= 0).
func NewLister[T, K any](key func(T) K, blockSize int) Lister[T, K] {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return Lister[T, K]{key: key, blockSize: blockSize}
}

// BlockSize returns the number of records fetched per block.
func (l Lister[T, K]) BlockSize() int { return l.blockSize }

// List returns the records at positions [startIndex, startIndex+maxCount) of
// the sequence of records accepted by match, in sort order. A nil match
// accepts everything.
func (l Lister[T, K]) List(ctx context.Context, fetch FetchFunc[T, K], startIndex, maxCount int, match func(T) bool) ([]T, Stats, error) {
	var stats Stats
	if startIndex < 0 {
		return nil, stats, domain.ErrValidation("start index must be non-negative, got %d", startIndex)
	}
	if maxCount <= 0 {
		return nil, stats, domain.ErrValidation("max results must be positive, got %d", maxCount)
	}

	var (
		out    []T
		count  int
		cursor *K
	)
	for len(out) < maxCount {
		raw, err := fetch(ctx, cursor, l.blockSize)
		if err != nil {
			return nil, stats, fmt.Errorf("fetch block %d: %w", stats.Blocks+1, err)
		}
		stats.Blocks++
		if len(raw) == 0 {
			break
		}
		stats.Scanned += len(raw)

		matched := raw[:0:0]
		for _, rec := range raw {
			if match == nil || match(rec) {
				matched = append(matched, rec)
			}
		}
		stats.Matched += len(matched)

		switch {
		case count+len(matched) < startIndex:
			// Window starts after this block.
		case count >= startIndex:
			out = append(out, matched...)
		default:
			out = append(out, matched[startIndex-count:]...)
		}
		count += len(matched)

		next := l.key(raw[len(raw)-1])
		cursor = &next
	}

	if len(out) > maxCount {
		out = out[:maxCount]
	}
	return out, stats, nil
}
