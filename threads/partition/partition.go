// Package partition computes how a one-dimensional loop is split into
// contiguous blocks for parallel execution.
//
// The split minimizes the critical path (the largest block) first and the
// number of blocks second: for loopmax=5 and nthr=4 the blocks are 2, 2 and 1
// rather than four uneven blocks, since the critical path is 2 either way and
// one worker fewer has to be started.
package partition

import (
	"errors"
	"fmt"
)

// ErrInvalidArgs is wrapped by the panics of Plan and Split.
var ErrInvalidArgs = errors.New("partition: loopmax and nthr must be positive")

// Span is a half-open block [Lo, Hi) of the iteration space.
type Span struct {
	Lo, Hi int
}

// Len returns Hi - Lo.
func (s Span) Len() int { return s.Hi - s.Lo }

// Plan returns the block size and the number of blocks used to cover
// [0, loopmax) with at most nthr blocks.
//
//	blockSize = ceil(loopmax / nthr)
//	workers   = ceil(loopmax / blockSize)
//
// Plan panics if loopmax <= 0 or nthr <= 0.
func Plan(loopmax, nthr int) (blockSize, workers int) {
	if loopmax <= 0 || nthr <= 0 {
		panic(fmt.Errorf("%w: loopmax=%d nthr=%d", ErrInvalidArgs, loopmax, nthr))
	}
	blockSize = ceilDiv(loopmax, nthr)
	workers = ceilDiv(loopmax, blockSize)
	return blockSize, workers
}

// Bounds returns the half-open bounds of block i. Only the last block may be
// shorter than blockSize.
func Bounds(i, blockSize, loopmax int) (lo, hi int) {
	lo = i * blockSize
	hi = lo + min(blockSize, loopmax-lo)
	return lo, hi
}

// Split returns every block of Plan(loopmax, nthr) in ascending order.
func Split(loopmax, nthr int) []Span {
	blockSize, workers := Plan(loopmax, nthr)
	spans := make([]Span, workers)
	for i := range spans {
		spans[i].Lo, spans[i].Hi = Bounds(i, blockSize, loopmax)
	}
	return spans
}

// CriticalPath returns the size of the largest block of Plan(loopmax, nthr).
func CriticalPath(loopmax, nthr int) int {
	blockSize, _ := Plan(loopmax, nthr)
	return blockSize
}

// ceilDiv returns ceil(a/b) for positive a and b without overflowing.
func ceilDiv(a, b int) int {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}
