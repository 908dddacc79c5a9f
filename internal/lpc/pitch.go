package lpc

import "math"

// PitchEstimate is the periodicity measurement for one frame. A zero
// period means no usable periodicity was found.
type PitchEstimate struct {
	PeriodSamples float64
	Quality       float64 // peak autocorrelation over lag-0 energy, in [0,1]
	Reliable      bool
}

// PitchConfig bounds the period search and tunes octave correction.
type PitchConfig struct {
	MinHz float64 // lowest fundamental considered
	MaxHz float64 // highest fundamental considered

	// SubMultipleThreshold is the correlation ratio at which a lag of
	// half the winning period is preferred, fixing the classic
	// pitch-halving error. Zero disables the correction.
	SubMultipleThreshold float64

	// QualityThreshold marks the estimate reliable.
	QualityThreshold float64

	// OffsetSamples is added to the estimated period after the search.
	OffsetSamples float64

	// OverrideHz, when nonzero, bypasses estimation entirely and reports
	// a fully reliable estimate at the given fundamental.
	OverrideHz float64
}

// DefaultPitchConfig covers the usable range of the chip pitch tables.
func DefaultPitchConfig() PitchConfig {
	return PitchConfig{
		MinHz:                50,
		MaxHz:                500,
		SubMultipleThreshold: 0.9,
		QualityThreshold:     0.25,
	}
}

// EstimatePitch searches the pitch window's autocorrelation for the
// strongest lag inside the configured frequency range. The window must be
// the low-passed, non-emphasized signal.
func EstimatePitch(pitchWindow []float64, cfg PitchConfig) PitchEstimate {
	if cfg.OverrideHz > 0 {
		return PitchEstimate{
			PeriodSamples: float64(SampleRate)/cfg.OverrideHz + cfg.OffsetSamples,
			Quality:       1.0,
			Reliable:      true,
		}
	}

	minLag := int(math.Floor(float64(SampleRate) / cfg.MaxHz))
	maxLag := int(math.Ceil(float64(SampleRate) / cfg.MinHz))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(pitchWindow) {
		maxLag = len(pitchWindow) - 1
	}
	if maxLag < minLag {
		return PitchEstimate{}
	}

	r := Autocorrelate(pitchWindow, maxLag)
	if r[0] <= 0 || math.IsNaN(r[0]) || math.IsInf(r[0], 0) {
		return PitchEstimate{}
	}

	bestLag := 0
	bestVal := math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		if r[lag] > bestVal {
			bestVal = r[lag]
			bestLag = lag
		}
	}
	if bestLag == 0 || bestVal <= 0 {
		return PitchEstimate{}
	}

	// Octave correction: a comparably strong peak at half the period
	// means the real fundamental is an octave up.
	if cfg.SubMultipleThreshold > 0 {
		half := bestLag / 2
		if half >= minLag && r[half] >= cfg.SubMultipleThreshold*bestVal {
			bestLag = half
			bestVal = r[half]
		}
	}

	quality := bestVal / r[0]
	if quality < 0 {
		quality = 0
	} else if quality > 1 {
		quality = 1
	}

	return PitchEstimate{
		PeriodSamples: float64(bestLag) + cfg.OffsetSamples,
		Quality:       quality,
		Reliable:      quality >= cfg.QualityThreshold,
	}
}
