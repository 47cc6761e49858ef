// Package conv provides linear convolution built on the parallel loop
// dispatcher.
//
//   - Direct convolution: O(N*M) time-domain convolution, best for short kernels (< 64 samples)
//   - Overlap-add (OLA): FFT-based block convolution, efficient for long signals with medium kernels
//
// Both strategies split their work with threads.SpawnLoop. Direct
// convolution partitions the output samples, overlap-add partitions the
// input blocks and gives every worker its own FFT plan and scratch buffers.
// Before threads.Init, or in a build without threads, everything runs on
// the calling goroutine.
//
// # Usage
//
// For one-shot convolution, use the simple functions:
//
//	result, err := conv.Convolve(signal, kernel)  // Auto-selects best algorithm
//	result, err := conv.Direct(signal, kernel)    // Force direct convolution
//
// For repeated convolution with the same kernel, create a reusable convolver:
//
//	c, err := conv.NewOverlapAdd(kernel, blockSize, conv.WithWorkers(4))
//	result, err := c.Process(signal)
//
// A work function must not dispatch again, so none of these functions may be
// called from inside a threads.SpawnLoop work function.
package conv
