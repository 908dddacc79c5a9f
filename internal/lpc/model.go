package lpc

import "math"

// modelOrder is the number of lattice stages the target chips implement.
const modelOrder = 10

// kClamp bounds every reflection coefficient strictly inside the unit
// circle so the synthesis lattice can never diverge.
const kClamp = 0.9999

// SpectralModel is one frame's fitted all-pole model: ten reflection
// coefficients and the residual energy expressed in the chip's rms space.
type SpectralModel struct {
	K   [modelOrder]float64
	RMS float64
}

// FitModel runs the order-10 Levinson-Durbin recursion over an
// autocorrelation vector r[0..10]. numSamples is the window length the
// autocorrelation was computed over and scales the residual into rms.
//
// Degenerate input (zero or non-finite r[0]) yields the zero model so a
// silent frame can never push NaN or Inf downstream. If the prediction
// error collapses mid-recursion the remaining coefficients stay zero.
func FitModel(r []float64, numSamples int) SpectralModel {
	var m SpectralModel
	if len(r) < modelOrder+1 || numSamples <= 0 {
		return m
	}
	if r[0] == 0 || math.IsNaN(r[0]) || math.IsInf(r[0], 0) {
		return m
	}

	var a [modelOrder + 1]float64
	e := r[0]
	floor := r[0] * 1e-9
	for i := 1; i <= modelOrder; i++ {
		if e < floor || math.IsNaN(e) || math.IsInf(e, 0) {
			// Residual collapsed; keep whatever orders we have.
			e = math.Max(e, 0)
			break
		}
		acc := r[i]
		for j := 1; j < i; j++ {
			acc += a[j] * r[i-j]
		}
		k := -acc / e
		if k > kClamp {
			k = kClamp
		} else if k < -kClamp {
			k = -kClamp
		}
		m.K[i-1] = k

		// Standard step-up of the prediction coefficients.
		a[i] = k
		for j := 1; j <= i/2; j++ {
			tmp := a[j] + k*a[i-j]
			a[i-j] += k * a[j]
			a[j] = tmp
		}
		e *= 1.0 - k*k
	}

	if e < 0 || math.IsNaN(e) || math.IsInf(e, 0) {
		e = 0
	}
	m.RMS = math.Sqrt(e/float64(numSamples)) * (1 << 15)
	return m
}

// IsUnvoicedByK1 is the simple k1-threshold voicing test: a strongly
// positive k1 means the frame lacks the low-frequency tilt of voiced
// speech.
func (m SpectralModel) IsUnvoicedByK1(threshold float64) bool {
	return m.K[0] >= threshold
}
