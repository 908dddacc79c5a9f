package lpc

// Classification records the per-frame voicing decision and the individual
// criteria that fed it. IsSilent is decided later, after quantization and
// RMS normalization, so rescaling cannot flip silence decisions
// inconsistently across a file; see markSilence in encoder.go.
type Classification struct {
	PassEnergy       bool
	PassEnergyRatio  bool
	PassPitchQuality bool
	IsVoiced         bool
	IsSilent         bool
}

// ClassifyConfig holds the three voicing thresholds. The energy-ratio
// criterion is advisory unless RequireEnergyRatio is set, since
// pre-emphasis is optional and the ratio is meaningless without it.
type ClassifyConfig struct {
	MinEnergy             float64
	EnergyRatioThreshold  float64
	PitchQualityThreshold float64
	RequireEnergyRatio    bool
}

// DefaultClassifyConfig matches typical speech levels after peak
// normalization.
func DefaultClassifyConfig() ClassifyConfig {
	return ClassifyConfig{
		MinEnergy:             0.01,
		EnergyRatioThreshold:  1.2,
		PitchQualityThreshold: 0.25,
	}
}

// Classify applies the energy, energy-ratio, and pitch-quality criteria.
// plainEnergy and emphasizedEnergy are the RMS of the same hop before and
// after pre-emphasis.
func Classify(plainEnergy, emphasizedEnergy float64, pitch PitchEstimate, cfg ClassifyConfig) Classification {
	c := Classification{
		PassEnergy:       plainEnergy >= cfg.MinEnergy,
		PassPitchQuality: pitch.Quality >= cfg.PitchQualityThreshold,
	}
	if emphasizedEnergy > 0 {
		c.PassEnergyRatio = plainEnergy/emphasizedEnergy >= cfg.EnergyRatioThreshold
	}
	c.IsVoiced = c.PassEnergy && c.PassPitchQuality
	if cfg.RequireEnergyRatio {
		c.IsVoiced = c.IsVoiced && c.PassEnergyRatio
	}
	return c
}
