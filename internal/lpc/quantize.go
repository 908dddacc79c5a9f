package lpc

import "math"

// AnalyzedFrame is the immutable result of per-frame analysis: the fitted
// spectral model, the pitch estimate, and the voicing classification.
// Normalization never mutates these; it returns a rescaled copy.
type AnalyzedFrame struct {
	Index int
	Model SpectralModel
	Pitch PitchEstimate
	Class Classification
}

// FrameParameters is one frame's quantized wire representation. KCodes
// beyond K4 are meaningful only for voiced, non-repeat frames; silence and
// stop frames carry the energy code alone.
type FrameParameters struct {
	EnergyCode int
	Repeat     bool
	PitchCode  int
	KCodes     [modelOrder]int
}

// IsSilence reports whether the frame is the reserved rest frame.
func (p FrameParameters) IsSilence() bool { return p.EnergyCode == energySilence }

// IsStop reports whether the frame is the reserved terminal frame.
func (p FrameParameters) IsStop() bool { return p.EnergyCode == energyStop }

// Voiced reports whether the decoder will use chirp excitation.
func (p FrameParameters) Voiced() bool { return p.PitchCode != 0 }

// ClosestIndex returns the index of the table entry nearest to x. Ties
// resolve to the lower index; values at or below the first entry of an
// ascending table land on index 0.
func ClosestIndex(x float64, table []float64) int {
	best := 0
	bestDiff := math.Inf(1)
	for i, v := range table {
		d := math.Abs(v - x)
		if d < bestDiff {
			bestDiff = d
			best = i
		}
	}
	return best
}

// QuantizeRMS maps an rms value onto the energy table, excluding the
// reserved stop slot.
func (t *CodingTable) QuantizeRMS(rms float64) int {
	return ClosestIndex(rms, t.Energy[:energyStop])
}

// QuantizePitch maps a period in samples onto the pitch table. A
// non-positive period is the unvoiced code 0.
func (t *CodingTable) QuantizePitch(periodSamples float64) int {
	if periodSamples <= 0 {
		return 0
	}
	return 1 + ClosestIndex(periodSamples, t.Pitch[1:])
}

// QuantizeK maps reflection coefficient i (0-based) onto its table.
func (t *CodingTable) QuantizeK(i int, k float64) int {
	return ClosestIndex(k, t.K[i])
}

// QuantizeFrame converts an analyzed frame to parameter codes. K5..K10 are
// quantized only when the frame comes out voiced; the chip never transmits
// them otherwise. Repeat detection happens later, once neighboring frames
// are known.
func (t *CodingTable) QuantizeFrame(af AnalyzedFrame) FrameParameters {
	p := FrameParameters{
		EnergyCode: t.QuantizeRMS(af.Model.RMS),
	}
	if af.Class.IsVoiced {
		p.PitchCode = t.QuantizePitch(af.Pitch.PeriodSamples)
	}
	limit := 4
	if p.PitchCode != 0 {
		limit = modelOrder
	}
	for i := 0; i < limit; i++ {
		p.KCodes[i] = t.QuantizeK(i, af.Model.K[i])
	}
	return p
}

// NormalizerConfig drives the population-wide energy rescaling pass.
type NormalizerConfig struct {
	// VoicedTargetIndex / UnvoicedTargetIndex are the energy table slots
	// the loudest frame of each population is scaled onto.
	VoicedTargetIndex   int
	UnvoicedTargetIndex int

	// UnvoicedMultiplier is applied to every non-silent unvoiced frame
	// after target scaling.
	UnvoicedMultiplier float64

	// SilenceRMS is the rms below which a frame is exempt from
	// normalization (and will later quantize to the rest code).
	SilenceRMS float64
}

// DefaultNormalizerConfig leaves one table slot of headroom for the voiced
// population and runs unvoiced frames a little quieter, which reads far
// less harsh through the chip's noise excitation.
func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{
		VoicedTargetIndex:   13,
		UnvoicedTargetIndex: 11,
		UnvoicedMultiplier:  1.0,
	}
}

// NormalizeRMS rescales the voiced and unvoiced populations independently
// so each population's peak rms lands on its configured energy table slot,
// then applies the unvoiced multiplier. Frames below the silence rms are
// never touched, preserving their near-zero energy. The input is left
// unmodified; a rescaled copy is returned.
func NormalizeRMS(frames []AnalyzedFrame, t *CodingTable, cfg NormalizerConfig) []AnalyzedFrame {
	out := make([]AnalyzedFrame, len(frames))
	copy(out, frames)

	scalePopulation := func(voiced bool, targetIdx int) {
		var max float64
		for _, f := range out {
			if f.Class.IsVoiced != voiced || f.Model.RMS < cfg.SilenceRMS {
				continue
			}
			if f.Model.RMS > max {
				max = f.Model.RMS
			}
		}
		if max <= 0 {
			return
		}
		if targetIdx < 0 || targetIdx >= len(t.Energy) {
			targetIdx = len(t.Energy) - 2
		}
		scale := t.Energy[targetIdx] / max
		for i := range out {
			if out[i].Class.IsVoiced != voiced || out[i].Model.RMS < cfg.SilenceRMS {
				continue
			}
			out[i].Model.RMS *= scale
		}
	}

	scalePopulation(true, cfg.VoicedTargetIndex)
	scalePopulation(false, cfg.UnvoicedTargetIndex)

	if cfg.UnvoicedMultiplier > 0 && cfg.UnvoicedMultiplier != 1.0 {
		for i := range out {
			if !out[i].Class.IsVoiced && out[i].Model.RMS >= cfg.SilenceRMS {
				out[i].Model.RMS *= cfg.UnvoicedMultiplier
			}
		}
	}
	return out
}
