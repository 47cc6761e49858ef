package conv

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-threads/threads"
	"github.com/cwbudde/algo-threads/threads/partition"
)

// OverlapAdd implements FFT-based convolution using the overlap-add method.
// This is efficient for convolving long signals with shorter kernels.
//
// Input blocks are distributed over workers with threads.SpawnLoop:
//  1. Each worker zero-pads its blocks to FFT size and convolves them in the frequency domain
//  2. The first blockSize samples of every block result are written straight into the output
//  3. The remaining kernelLen-1 samples are kept per block and added after all workers finish
//
// Blocks write disjoint output ranges during the parallel phase, so no
// locking is needed. An OverlapAdd must not be used by several goroutines
// at once.
type OverlapAdd struct {
	// Kernel in frequency domain
	kernelFFT []complex128

	kernelLen int // Original kernel length
	blockSize int // Input block size
	fftSize   int // FFT size (blockSize + kernelLen - 1, rounded to power of 2)

	// Requested worker count; 0 follows threads.CurrentCapabilities.
	workers int

	// Per-worker FFT plans and scratch, indexed by ThrNum.
	states []*olaWorker
}

type olaWorker struct {
	plan *algofft.Plan[complex128]
	buf  []complex128
}

// Option configures an OverlapAdd convolver.
type Option func(*OverlapAdd)

// WithWorkers sets the number of workers Process splits blocks over.
// k <= 0 keeps the default of threads.CurrentCapabilities().MaxWorkers.
func WithWorkers(k int) Option {
	return func(oa *OverlapAdd) {
		if k > 0 {
			oa.workers = k
		}
	}
}

// NewOverlapAdd creates a new overlap-add convolver for the given kernel.
// blockSize determines how the input signal is segmented.
// If blockSize is 0, an automatic size is chosen based on kernel length.
func NewOverlapAdd(kernel []float64, blockSize int, opts ...Option) (*OverlapAdd, error) {
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}
	if blockSize < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}

	kernelLen := len(kernel)

	if blockSize == 0 {
		// Rule of thumb: block size roughly equal to or larger than kernel
		blockSize = max(nextPowerOf2(kernelLen), 256)
	}

	// FFT size must accommodate block + kernel - 1 for linear convolution
	fftSize := nextPowerOf2(blockSize + kernelLen - 1)

	oa := &OverlapAdd{
		kernelFFT: make([]complex128, fftSize),
		kernelLen: kernelLen,
		blockSize: blockSize,
		fftSize:   fftSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(oa)
		}
	}

	if err := oa.grow(1); err != nil {
		return nil, err
	}

	kernelPadded := make([]complex128, fftSize)
	for i, v := range kernel {
		kernelPadded[i] = complex(v, 0)
	}

	if err := oa.states[0].plan.Forward(oa.kernelFFT, kernelPadded); err != nil {
		return nil, fmt.Errorf("conv: failed to compute kernel FFT: %w", err)
	}

	return oa, nil
}

// grow makes sure at least n worker states exist.
func (oa *OverlapAdd) grow(n int) error {
	for len(oa.states) < n {
		plan, err := algofft.NewPlan64(oa.fftSize)
		if err != nil {
			return fmt.Errorf("conv: failed to create FFT plan: %w", err)
		}
		oa.states = append(oa.states, &olaWorker{
			plan: plan,
			buf:  make([]complex128, oa.fftSize),
		})
	}
	return nil
}

// BlockSize returns the input block size.
func (oa *OverlapAdd) BlockSize() int {
	return oa.blockSize
}

// FFTSize returns the FFT size used internally.
func (oa *OverlapAdd) FFTSize() int {
	return oa.fftSize
}

// KernelLen returns the kernel length.
func (oa *OverlapAdd) KernelLen() int {
	return oa.kernelLen
}

// Workers returns the requested worker count, resolving the default.
func (oa *OverlapAdd) Workers() int {
	if oa.workers > 0 {
		return oa.workers
	}
	return threads.CurrentCapabilities().MaxWorkers
}

// Process convolves the input signal with the kernel.
// Returns the full linear convolution result.
func (oa *OverlapAdd) Process(input []float64) ([]float64, error) {
	if len(input) == 0 {
		return nil, ErrEmptyInput
	}

	output := make([]float64, len(input)+oa.kernelLen-1)
	if err := oa.process(output, input); err != nil {
		return nil, err
	}
	return output, nil
}

// ProcessTo convolves input and writes to pre-allocated output.
// Output must have length len(input) + kernelLen - 1.
func (oa *OverlapAdd) ProcessTo(output, input []float64) error {
	if len(input) == 0 {
		return ErrEmptyInput
	}
	expectedLen := len(input) + oa.kernelLen - 1
	if len(output) != expectedLen {
		return fmt.Errorf("%w: expected %d, got %d", ErrLengthMismatch, expectedLen, len(output))
	}

	// Only tails land past the input length.
	clear(output[len(input):])
	return oa.process(output, input)
}

// olaJob is the per-call state handed to the work function.
type olaJob struct {
	oa     *OverlapAdd
	input  []float64
	output []float64
	tails  []float64 // numBlocks * (kernelLen-1)
	errs   []error   // indexed by ThrNum
}

func (oa *OverlapAdd) process(output, input []float64) error {
	numBlocks := (len(input) + oa.blockSize - 1) / oa.blockSize
	nthr := oa.Workers()

	_, workers := partition.Plan(numBlocks, nthr)
	if err := oa.grow(workers); err != nil {
		return err
	}

	tailLen := oa.kernelLen - 1
	job := &olaJob{
		oa:     oa,
		input:  input,
		output: output,
		tails:  make([]float64, numBlocks*tailLen),
		errs:   make([]error, workers),
	}

	threads.SpawnLoop(numBlocks, nthr, processBlocks, job)

	if err := errors.Join(job.errs...); err != nil {
		return err
	}

	// Sequential overlap of the block tails.
	for b := range numBlocks {
		end := min((b+1)*oa.blockSize, len(input))
		tail := job.tails[b*tailLen : (b+1)*tailLen]
		for i, v := range tail {
			output[end+i] += v
		}
	}

	return nil
}

func processBlocks(r *threads.Range) {
	job := r.Data.(*olaJob)
	oa := job.oa
	w := oa.states[r.ThrNum]
	tailLen := oa.kernelLen - 1

	for b := r.Min; b < r.Max; b++ {
		start := b * oa.blockSize
		end := min(start+oa.blockSize, len(job.input))
		blockLen := end - start

		clear(w.buf)
		for i, v := range job.input[start:end] {
			w.buf[i] = complex(v, 0)
		}

		if err := w.plan.Forward(w.buf, w.buf); err != nil {
			job.errs[r.ThrNum] = fmt.Errorf("conv: forward FFT failed: %w", err)
			return
		}

		for i := range w.buf {
			w.buf[i] *= oa.kernelFFT[i]
		}

		if err := w.plan.Inverse(w.buf, w.buf); err != nil {
			job.errs[r.ThrNum] = fmt.Errorf("conv: inverse FFT failed: %w", err)
			return
		}

		for i := range blockLen {
			job.output[start+i] = real(w.buf[i])
		}
		tail := job.tails[b*tailLen : (b+1)*tailLen]
		for i := range tail {
			tail[i] = real(w.buf[blockLen+i])
		}
	}
}

// OverlapAddConvolve performs one-shot overlap-add convolution.
// This is a convenience function that creates a temporary OverlapAdd instance.
func OverlapAddConvolve(signal, kernel []float64) ([]float64, error) {
	oa, err := NewOverlapAdd(kernel, 0)
	if err != nil {
		return nil, err
	}
	return oa.Process(signal)
}

// OverlapAddConvolveTo performs one-shot overlap-add convolution to a pre-allocated buffer.
func OverlapAddConvolveTo(output, signal, kernel []float64) error {
	oa, err := NewOverlapAdd(kernel, 0)
	if err != nil {
		return err
	}
	return oa.ProcessTo(output, signal)
}
