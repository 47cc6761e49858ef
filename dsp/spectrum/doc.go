// Package spectrum extracts magnitude, power and phase from complex
// spectrum bins.
//
// Large spectra are split over workers with threads.SpawnLoop; each worker
// unpacks its block into pooled scratch memory and hands it to the vecmath
// kernels. Below ParallelThreshold bins, or before threads.Init, everything
// runs on the calling goroutine.
package spectrum
