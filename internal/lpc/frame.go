package lpc

import "math"

// Frame holds the three per-hop views of the preprocessed signal. All
// slices are explicit copies so later stages can never be bitten by a
// transform mutating a shared backing array.
type Frame struct {
	Index int

	// AnalysisWindow is the Hamming-weighted span the spectral model is
	// fit over. It may extend beyond the hop on both sides when the
	// window multiplier is > 1.
	AnalysisWindow []float64

	// HopSegment is exactly one hop of the emphasized signal; it drives
	// the frame's energy measurements.
	HopSegment []float64

	// PlainHopSegment is the same hop taken from the signal before
	// pre-emphasis, for the energy-ratio criterion.
	PlainHopSegment []float64

	// PitchWindow is two hops of the separately low-passed,
	// non-emphasized signal, regardless of the analysis multiplier.
	// Pitch tracking must not inherit the emphasis tilt.
	PitchWindow []float64
}

// Segment slices the signal into fixed-hop frames. analysisBuf is the
// (possibly pre-emphasized) signal the spectral model is fit to, plainBuf
// the same signal before emphasis, and pitchBuf the low-passed pitch
// tracking signal. All three must be the same length.
func Segment(analysisBuf, plainBuf, pitchBuf []float64, hop int, windowMultiplier float64) []Frame {
	if hop <= 0 || len(analysisBuf) == 0 {
		return nil
	}
	if windowMultiplier < 1 {
		windowMultiplier = 1
	}
	width := int(math.Round(float64(hop) * windowMultiplier))
	n := len(analysisBuf) / hop
	frames := make([]Frame, 0, n)
	for i := 0; i < n; i++ {
		start := i * hop
		// Center the analysis window on the hop.
		aStart := start - (width-hop)/2
		aEnd := aStart + width
		if aStart < 0 {
			aStart = 0
		}
		if aEnd > len(analysisBuf) {
			aEnd = len(analysisBuf)
		}
		pEnd := start + 2*hop
		if pEnd > len(pitchBuf) {
			pEnd = len(pitchBuf)
		}
		f := Frame{
			Index:           i,
			AnalysisWindow:  applyHamming(analysisBuf[aStart:aEnd]),
			HopSegment:      copySlice(analysisBuf[start : start+hop]),
			PlainHopSegment: copySlice(plainBuf[start : start+hop]),
			PitchWindow:     copySlice(pitchBuf[start:pEnd]),
		}
		frames = append(frames, f)
	}
	return frames
}

// applyHamming returns a windowed copy of the segment.
func applyHamming(seg []float64) []float64 {
	out := make([]float64, len(seg))
	if len(seg) < 2 {
		copy(out, seg)
		return out
	}
	n := float64(len(seg) - 1)
	for i, s := range seg {
		w := 0.54 - 0.46*math.Cos(2.0*math.Pi*float64(i)/n)
		out[i] = s * w
	}
	return out
}

func copySlice(seg []float64) []float64 {
	out := make([]float64, len(seg))
	copy(out, seg)
	return out
}

// Autocorrelate computes lags 0..maxLag of the segment. Lags past the
// segment length are zero.
func Autocorrelate(seg []float64, maxLag int) []float64 {
	r := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag; lag++ {
		if lag >= len(seg) {
			break
		}
		var sum float64
		for i := lag; i < len(seg); i++ {
			sum += seg[i] * seg[i-lag]
		}
		r[lag] = sum
	}
	return r
}
