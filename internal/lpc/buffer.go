package lpc

import (
	"math"
	"sort"
)

// SampleRate is the fixed analysis/synthesis rate. Input buffers must
// already be mono at this rate; resampling is the ingest layer's job.
const SampleRate = 8000

// Preprocessing transforms. Each is a pure buffer in, buffer out function;
// the input slice is never mutated so windows taken from an earlier stage
// stay valid.

// RemoveDC subtracts the buffer mean from every sample.
func RemoveDC(buf []float64) []float64 {
	out := make([]float64, len(buf))
	if len(buf) == 0 {
		return out
	}
	var sum float64
	for _, s := range buf {
		sum += s
	}
	mean := sum / float64(len(buf))
	for i, s := range buf {
		out[i] = s - mean
	}
	return out
}

// MedianFilter applies a rolling median of the given odd width. Useful for
// knocking out single-sample clicks before analysis. Width < 3 returns a
// copy unchanged.
func MedianFilter(buf []float64, width int) []float64 {
	out := make([]float64, len(buf))
	copy(out, buf)
	if width < 3 {
		return out
	}
	if width%2 == 0 {
		width++
	}
	half := width / 2
	window := make([]float64, 0, width)
	for i := range buf {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > len(buf) {
			hi = len(buf)
		}
		window = append(window[:0], buf[lo:hi]...)
		sort.Float64s(window)
		out[i] = window[len(window)/2]
	}
	return out
}

// NoiseGate zeroes stretches whose local RMS over windowSize samples falls
// below threshold. The gate decision is made per window to avoid chattering
// on individual samples.
func NoiseGate(buf []float64, threshold float64, windowSize int) []float64 {
	out := make([]float64, len(buf))
	copy(out, buf)
	if threshold <= 0 || windowSize <= 0 {
		return out
	}
	for start := 0; start < len(buf); start += windowSize {
		end := start + windowSize
		if end > len(buf) {
			end = len(buf)
		}
		if rmsOf(buf[start:end]) < threshold {
			for i := start; i < end; i++ {
				out[i] = 0
			}
		}
	}
	return out
}

// PeakNormalize rescales so the largest magnitude hits peak. A silent
// buffer is returned unchanged.
func PeakNormalize(buf []float64, peak float64) []float64 {
	out := make([]float64, len(buf))
	var max float64
	for _, s := range buf {
		if a := math.Abs(s); a > max {
			max = a
		}
	}
	if max == 0 {
		copy(out, buf)
		return out
	}
	scale := peak / max
	for i, s := range buf {
		out[i] = s * scale
	}
	return out
}

// LowPass applies a single-pole low-pass with the given cutoff frequency.
func LowPass(buf []float64, cutoffHz float64) []float64 {
	out := make([]float64, len(buf))
	alpha := onePoleAlpha(cutoffHz)
	var y float64
	for i, x := range buf {
		y += alpha * (x - y)
		out[i] = y
	}
	return out
}

// HighPass applies a single-pole high-pass with the given cutoff frequency.
func HighPass(buf []float64, cutoffHz float64) []float64 {
	out := make([]float64, len(buf))
	alpha := 1.0 - onePoleAlpha(cutoffHz)
	var y, prev float64
	for i, x := range buf {
		y = alpha * (y + x - prev)
		prev = x
		out[i] = y
	}
	return out
}

// PreEmphasize applies the classic first-order emphasis y[n] = x[n] - a*x[n-1],
// tilting the spectrum up ahead of LPC analysis.
func PreEmphasize(buf []float64, alpha float64) []float64 {
	out := make([]float64, len(buf))
	var prev float64
	for i, x := range buf {
		out[i] = x - alpha*prev
		prev = x
	}
	return out
}

// onePoleAlpha converts a cutoff frequency to the smoothing coefficient of
// a single-pole RC filter at the fixed sample rate.
func onePoleAlpha(cutoffHz float64) float64 {
	if cutoffHz <= 0 {
		return 1.0
	}
	rc := 1.0 / (2.0 * math.Pi * cutoffHz)
	dt := 1.0 / float64(SampleRate)
	return dt / (rc + dt)
}

// rmsOf returns the root mean square of a slice; 0 for an empty slice.
func rmsOf(buf []float64) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, s := range buf {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(buf)))
}
