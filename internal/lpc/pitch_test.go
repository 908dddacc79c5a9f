package lpc

import (
	"math"
	"testing"
)

func sine(freq, amp float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/SampleRate)
	}
	return out
}

func TestEstimatePitchSine(t *testing.T) {
	// 150 Hz at 8 kHz is a 53.3-sample period.
	est := EstimatePitch(sine(150, 0.8, 400), DefaultPitchConfig())
	if !est.Reliable {
		t.Fatalf("pure sine should be reliable, quality %v", est.Quality)
	}
	if est.PeriodSamples < 51 || est.PeriodSamples > 55 {
		t.Fatalf("period %v, want about 53.3", est.PeriodSamples)
	}
}

// TestEstimatePitchOctaveCorrection builds a signal whose strongest
// harmonic is an octave above a weaker fundamental. Without correction the
// search locks onto the full 80-sample period; with the sub-multiple check
// it prefers the 40-sample lag.
func TestEstimatePitchOctaveCorrection(t *testing.T) {
	n := 480
	sig := make([]float64, n)
	for i := range sig {
		ti := float64(i) / SampleRate
		sig[i] = math.Sin(2*math.Pi*200*ti) + 0.15*math.Sin(2*math.Pi*100*ti)
	}

	raw := DefaultPitchConfig()
	raw.SubMultipleThreshold = 0
	rawEst := EstimatePitch(sig, raw)
	if math.Abs(rawEst.PeriodSamples-80) > 2 {
		t.Fatalf("uncorrected period %v, want about 80", rawEst.PeriodSamples)
	}

	corrEst := EstimatePitch(sig, DefaultPitchConfig())
	if math.Abs(corrEst.PeriodSamples-40) > 2 {
		t.Fatalf("corrected period %v, want about 40", corrEst.PeriodSamples)
	}
}

func TestEstimatePitchOverride(t *testing.T) {
	cfg := DefaultPitchConfig()
	cfg.OverrideHz = 200
	est := EstimatePitch(sine(97, 0.5, 400), cfg)
	if !est.Reliable || est.Quality != 1.0 {
		t.Fatalf("override must be fully reliable, got %+v", est)
	}
	if est.PeriodSamples != 40 {
		t.Fatalf("override period %v, want 40", est.PeriodSamples)
	}
}

func TestEstimatePitchSilence(t *testing.T) {
	est := EstimatePitch(make([]float64, 400), DefaultPitchConfig())
	if est.Reliable || est.PeriodSamples != 0 {
		t.Fatalf("silence should yield the zero estimate, got %+v", est)
	}
}

func TestEstimatePitchOffset(t *testing.T) {
	cfg := DefaultPitchConfig()
	base := EstimatePitch(sine(150, 0.8, 400), cfg)
	cfg.OffsetSamples = 2
	shifted := EstimatePitch(sine(150, 0.8, 400), cfg)
	if shifted.PeriodSamples != base.PeriodSamples+2 {
		t.Fatalf("offset not applied: %v vs %v", shifted.PeriodSamples, base.PeriodSamples)
	}
}
