package spectrum

import (
	"math"
	"math/cmplx"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-threads/threads"
)

// ParallelThreshold is the default bin count from which extraction is split
// over workers.
const ParallelThreshold = 1 << 14

var threshold atomic.Int64

func init() {
	threshold.Store(ParallelThreshold)
}

// SetParallelThreshold changes the bin count from which extraction is split
// over workers and returns the previous value. n <= 0 restores the default.
func SetParallelThreshold(n int) int {
	if n <= 0 {
		n = ParallelThreshold
	}
	return int(threshold.Swap(int64(n)))
}

// scratchBuf holds pooled scratch memory for complex-to-real unpacking.
type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) (re, im []float64, buf *scratchBuf) {
	buf = scratchPool.Get().(*scratchBuf)
	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]float64, need)
	} else {
		buf.data = buf.data[:need]
	}
	return buf.data[:n], buf.data[n:need], buf
}

func putScratch(buf *scratchBuf) {
	scratchPool.Put(buf)
}

// kernel writes one value per bin of re/im into dst.
type kernel func(dst, re, im []float64)

type job struct {
	dst []float64
	in  []complex128
	re  []float64
	im  []float64
	k   kernel
}

// each runs the job over bins [lo, hi).
func (j *job) each(lo, hi int) {
	if j.in != nil {
		re, im, buf := getScratch(hi - lo)
		for i, c := range j.in[lo:hi] {
			re[i] = real(c)
			im[i] = imag(c)
		}
		j.k(j.dst[lo:hi], re, im)
		putScratch(buf)
		return
	}
	j.k(j.dst[lo:hi], j.re[lo:hi], j.im[lo:hi])
}

func runJob(r *threads.Range) {
	r.Data.(*job).each(r.Min, r.Max)
}

func (j *job) run(n int) {
	if n < int(threshold.Load()) {
		j.each(0, n)
		return
	}
	threads.SpawnLoop(n, threads.CurrentCapabilities().MaxWorkers, runJob, j)
}

// Magnitude returns |X[k]| for each complex spectrum bin.
//
// Scratch buffers are pooled internally, so in steady state this allocates
// only the output slice.
func Magnitude(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}
	out := make([]float64, len(in))
	(&job{dst: out, in: in, k: vecmath.Magnitude}).run(len(in))
	return out
}

// MagnitudeFromParts computes |X[k]| = sqrt(re[k]^2 + im[k]^2) into dst.
// All three slices must have the same length.
func MagnitudeFromParts(dst, re, im []float64) {
	(&job{dst: dst, re: re, im: im, k: vecmath.Magnitude}).run(len(dst))
}

// Power returns |X[k]|^2 for each complex spectrum bin.
func Power(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}
	out := make([]float64, len(in))
	(&job{dst: out, in: in, k: vecmath.Power}).run(len(in))
	return out
}

// PowerFromParts computes |X[k]|^2 = re[k]^2 + im[k]^2 into dst.
// All three slices must have the same length.
func PowerFromParts(dst, re, im []float64) {
	(&job{dst: dst, re: re, im: im, k: vecmath.Power}).run(len(dst))
}

// Phase returns arg(X[k]) for each complex spectrum bin in radians.
func Phase(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}
	out := make([]float64, len(in))
	phase := func(r *threads.Range) {
		for i := r.Min; i < r.Max; i++ {
			out[i] = cmplx.Phase(in[i])
		}
	}
	if len(in) < int(threshold.Load()) {
		phase(&threads.Range{Min: 0, Max: len(in)})
		return out
	}
	threads.SpawnLoop(len(in), threads.CurrentCapabilities().MaxWorkers, phase, nil)
	return out
}

// UnwrapPhase returns a new phase slice with +/-2*pi discontinuities removed.
func UnwrapPhase(phase []float64) []float64 {
	if len(phase) == 0 {
		return nil
	}
	out := make([]float64, len(phase))
	out[0] = phase[0]
	offset := 0.0
	for i := 1; i < len(phase); i++ {
		d := phase[i] - phase[i-1]
		switch {
		case d > math.Pi:
			offset -= 2 * math.Pi
		case d < -math.Pi:
			offset += 2 * math.Pi
		}
		out[i] = phase[i] + offset
	}
	return out
}
