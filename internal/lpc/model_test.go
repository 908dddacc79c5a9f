package lpc

import (
	"math"
	"testing"
)

// TestFitModelFirstOrderSignal checks the recursion against an analytic
// case: an AR(1) autocorrelation r[i] = rho^i must yield k1 = -rho and
// vanishing higher coefficients.
func TestFitModelFirstOrderSignal(t *testing.T) {
	const rho = 0.9
	r := make([]float64, modelOrder+1)
	for i := range r {
		r[i] = math.Pow(rho, float64(i))
	}
	m := FitModel(r, 400)

	if math.Abs(m.K[0]+rho) > 1e-9 {
		t.Fatalf("k1 mismatch: want %v got %v", -rho, m.K[0])
	}
	for i := 1; i < modelOrder; i++ {
		if math.Abs(m.K[i]) > 1e-9 {
			t.Errorf("k%d should vanish for an AR(1) input, got %v", i+1, m.K[i])
		}
	}
	if m.RMS <= 0 {
		t.Fatalf("rms should be positive, got %v", m.RMS)
	}
}

// TestFitModelDegenerateInput verifies that zero and non-finite
// autocorrelation energies resolve to the zero model instead of leaking
// NaN into the pipeline.
func TestFitModelDegenerateInput(t *testing.T) {
	cases := map[string]float64{
		"zero": 0,
		"nan":  math.NaN(),
		"inf":  math.Inf(1),
	}
	for name, r0 := range cases {
		r := make([]float64, modelOrder+1)
		r[0] = r0
		m := FitModel(r, 200)
		if m.RMS != 0 {
			t.Errorf("%s: rms should be 0, got %v", name, m.RMS)
		}
		for i, k := range m.K {
			if k != 0 {
				t.Errorf("%s: k%d should be 0, got %v", name, i+1, k)
			}
		}
	}
}

// TestFitModelClampsCoefficients feeds pathological autocorrelation
// vectors and checks every coefficient stays inside the stable range.
func TestFitModelClampsCoefficients(t *testing.T) {
	vectors := [][]float64{
		// Perfectly correlated input pushes k1 to the boundary.
		{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		// Alternating signs push the other way.
		{1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1},
		// Tiny energy with large lags.
		{1e-20, 5, -3, 2, 0, 0, 1, 0, 0, 0, 0},
	}
	for vi, r := range vectors {
		m := FitModel(r, 100)
		for i, k := range m.K {
			if math.IsNaN(k) || math.IsInf(k, 0) {
				t.Fatalf("vector %d: k%d is not finite: %v", vi, i+1, k)
			}
			if k < -kClamp || k > kClamp {
				t.Errorf("vector %d: k%d = %v outside [-%v, %v]", vi, i+1, k, kClamp, kClamp)
			}
		}
		if math.IsNaN(m.RMS) || math.IsInf(m.RMS, 0) || m.RMS < 0 {
			t.Errorf("vector %d: bad rms %v", vi, m.RMS)
		}
	}
}

// TestFitModelFromRealFrame runs the full window/autocorrelate/fit chain
// on a synthetic vowel-ish frame and sanity checks the outcome.
func TestFitModelFromRealFrame(t *testing.T) {
	frame := make([]float64, 400)
	for i := range frame {
		ti := float64(i) / SampleRate
		frame[i] = 0.6*math.Sin(2*math.Pi*120*ti) + 0.25*math.Sin(2*math.Pi*720*ti)
	}
	r := Autocorrelate(applyHamming(frame), modelOrder)
	m := FitModel(r, len(frame))

	if m.RMS <= 0 {
		t.Fatalf("expected positive rms for a loud frame, got %v", m.RMS)
	}
	// Low-frequency dominated speech has k1 near -1.
	if m.K[0] > -0.5 {
		t.Errorf("k1 should be strongly negative for a low-frequency frame, got %v", m.K[0])
	}
}

func TestIsUnvoicedByK1(t *testing.T) {
	var m SpectralModel
	m.K[0] = 0.3
	if !m.IsUnvoicedByK1(0.18) {
		t.Fatal("k1 above threshold should read unvoiced")
	}
	m.K[0] = -0.9
	if m.IsUnvoicedByK1(0.18) {
		t.Fatal("strongly negative k1 should read voiced")
	}
}
