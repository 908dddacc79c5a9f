package lpc

import (
	"math"
	"testing"
)

func TestRemoveDC(t *testing.T) {
	buf := []float64{1.5, 2.5, 0.5, 1.5}
	out := RemoveDC(buf)
	var sum float64
	for _, s := range out {
		sum += s
	}
	if math.Abs(sum) > 1e-12 {
		t.Fatalf("mean not removed, sum %v", sum)
	}
	if buf[0] != 1.5 {
		t.Fatal("input mutated")
	}
}

func TestPeakNormalize(t *testing.T) {
	out := PeakNormalize([]float64{0.1, -0.4, 0.2}, 1.0)
	var peak float64
	for _, s := range out {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if math.Abs(peak-1.0) > 1e-12 {
		t.Fatalf("peak %v, want 1", peak)
	}

	silent := PeakNormalize(make([]float64, 8), 1.0)
	for _, s := range silent {
		if s != 0 {
			t.Fatal("silent buffer should stay silent")
		}
	}
}

func TestMedianFilterKillsImpulse(t *testing.T) {
	buf := make([]float64, 50)
	buf[25] = 10 // single-sample click
	out := MedianFilter(buf, 5)
	if out[25] != 0 {
		t.Fatalf("impulse survived the median: %v", out[25])
	}
	if got := MedianFilter(buf, 1); got[25] != 10 {
		t.Fatal("width < 3 must pass the signal through")
	}
}

func TestNoiseGate(t *testing.T) {
	quiet := make([]float64, 200)
	for i := range quiet {
		quiet[i] = 0.001
	}
	loud := sine(100, 0.5, 200)
	buf := append(quiet, loud...)

	out := NoiseGate(buf, 0.01, 200)
	for i := 0; i < 200; i++ {
		if out[i] != 0 {
			t.Fatalf("quiet region sample %d not gated: %v", i, out[i])
		}
	}
	for i := 200; i < 400; i++ {
		if out[i] != buf[i] {
			t.Fatalf("loud region sample %d altered: %v", i, out[i])
		}
	}
}

func TestPreEmphasize(t *testing.T) {
	buf := []float64{1, 1, 1}
	out := PreEmphasize(buf, 0.9375)
	want := []float64{1, 1 - 0.9375, 1 - 0.9375}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-12 {
			t.Fatalf("sample %d: got %v, want %v", i, out[i], want[i])
		}
	}
}

// TestFilterFrequencyResponse pushes tones through the one-pole filters
// and checks attenuation lands on the right side of the cutoff.
func TestFilterFrequencyResponse(t *testing.T) {
	amp := func(buf []float64) float64 {
		// Skip the transient at the front.
		return rmsOf(buf[len(buf)/2:])
	}
	low := sine(100, 0.5, 4000)
	high := sine(3000, 0.5, 4000)

	if got := amp(LowPass(high, 500)); got > 0.5*amp(high) {
		t.Errorf("low-pass barely touched a tone far above cutoff: %v", got)
	}
	if got := amp(LowPass(low, 500)); got < 0.5*amp(low) {
		t.Errorf("low-pass crushed a tone below cutoff: %v", got)
	}
	if got := amp(HighPass(low, 1000)); got > 0.5*amp(low) {
		t.Errorf("high-pass barely touched a tone far below cutoff: %v", got)
	}
	if got := amp(HighPass(high, 1000)); got < 0.5*amp(high) {
		t.Errorf("high-pass crushed a tone above cutoff: %v", got)
	}
}
