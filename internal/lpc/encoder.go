package lpc

import (
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/retro-voice-lab/internal/logging"
)

// DetectionMethod selects how voicing is decided.
type DetectionMethod int

const (
	// DetectEnergy uses the 3-criterion classifier (energy, advisory
	// energy ratio, pitch quality).
	DetectEnergy DetectionMethod = iota
	// DetectK1 uses the simple k1-threshold test.
	DetectK1
)

// EncoderConfig is the full tuning surface of the analysis pipeline.
type EncoderConfig struct {
	Variant   Variant
	FrameRate float64 // analysis frames per second

	// Analysis window width as a multiple of the hop (>= 1).
	WindowMultiplier float64

	// Preprocessing. Zero values disable the optional stages.
	MedianWidth      int
	GateThreshold    float64
	GateWindowSize   int
	PeakNormalize    bool
	HighPassHz       float64
	LowPassHz        float64
	PreEmphasis      bool
	PreEmphasisAlpha float64

	// PitchLowPassHz shapes the separate pitch-tracking path.
	PitchLowPassHz float64

	Detection           DetectionMethod
	UnvoicedK1Threshold float64 // k1-based detection only

	Pitch      PitchConfig
	Classify   ClassifyConfig
	Normalizer NormalizerConfig

	// TrimSilence drops leading and trailing silent frames.
	TrimSilence bool

	// IncludeStopFrame appends the reserved terminal frame.
	IncludeStopFrame bool

	// StartSample/EndSample restrict encoding to a sample range.
	// EndSample 0 means the end of the buffer.
	StartSample int
	EndSample   int
}

// DefaultEncoderConfig mirrors the classic 40 frames/sec, 2x-window
// analysis setup for a variant.
func DefaultEncoderConfig(v Variant) EncoderConfig {
	return EncoderConfig{
		Variant:             v,
		FrameRate:           40,
		WindowMultiplier:    2,
		PeakNormalize:       true,
		HighPassHz:          60,
		PreEmphasis:         true,
		PreEmphasisAlpha:    0.9375,
		PitchLowPassHz:      800,
		Detection:           DetectEnergy,
		UnvoicedK1Threshold: 0.18,
		Pitch:               DefaultPitchConfig(),
		Classify:            DefaultClassifyConfig(),
		Normalizer:          DefaultNormalizerConfig(),
		IncludeStopFrame:    true,
	}
}

func (cfg *EncoderConfig) validate() error {
	if cfg.FrameRate <= 0 {
		return fmt.Errorf("frame rate must be positive, got %v", cfg.FrameRate)
	}
	if cfg.WindowMultiplier < 1 {
		cfg.WindowMultiplier = 1
	}
	if cfg.StartSample < 0 || (cfg.EndSample != 0 && cfg.EndSample < cfg.StartSample) {
		return fmt.Errorf("invalid sample range [%d, %d)", cfg.StartSample, cfg.EndSample)
	}
	return nil
}

// Encode runs the complete analysis pipeline over a mono 8 kHz buffer and
// returns the packed bitstream.
func Encode(samples []float64, cfg EncoderConfig) ([]byte, error) {
	params, err := EncodeToFrames(samples, cfg)
	if err != nil {
		return nil, err
	}
	return EncodeFrames(params, Table(cfg.Variant)), nil
}

// EncodeToFrames runs the pipeline up to (but not including) bitstream
// packing, returning the quantized frame parameters. Useful for
// inspection and tests.
func EncodeToFrames(samples []float64, cfg EncoderConfig) ([]FrameParameters, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty sample buffer")
	}

	end := cfg.EndSample
	if end == 0 || end > len(samples) {
		end = len(samples)
	}
	if cfg.StartSample >= end {
		return nil, fmt.Errorf("sample range [%d, %d) outside buffer of %d samples", cfg.StartSample, cfg.EndSample, len(samples))
	}
	buf := samples[cfg.StartSample:end]

	hop := int(math.Round(float64(SampleRate) / cfg.FrameRate))
	if hop <= 0 {
		return nil, fmt.Errorf("frame rate %v leaves no samples per hop", cfg.FrameRate)
	}

	// Preprocessing. Every stage returns a fresh buffer; the pitch path
	// is taken before pre-emphasis so pitch tracking never inherits the
	// emphasis tilt.
	buf = RemoveDC(buf)
	if cfg.MedianWidth >= 3 {
		buf = MedianFilter(buf, cfg.MedianWidth)
	}
	if cfg.GateThreshold > 0 {
		gw := cfg.GateWindowSize
		if gw <= 0 {
			gw = hop
		}
		buf = NoiseGate(buf, cfg.GateThreshold, gw)
	}
	if cfg.PeakNormalize {
		buf = PeakNormalize(buf, 1.0)
	}
	if cfg.HighPassHz > 0 {
		buf = HighPass(buf, cfg.HighPassHz)
	}
	if cfg.LowPassHz > 0 {
		buf = LowPass(buf, cfg.LowPassHz)
	}

	pitchLP := cfg.PitchLowPassHz
	if pitchLP <= 0 {
		pitchLP = 800
	}
	pitchBuf := LowPass(buf, pitchLP)

	plainBuf := buf
	analysisBuf := buf
	if cfg.PreEmphasis {
		analysisBuf = PreEmphasize(buf, cfg.PreEmphasisAlpha)
	}

	frames := Segment(analysisBuf, plainBuf, pitchBuf, hop, cfg.WindowMultiplier)
	if len(frames) == 0 {
		return nil, fmt.Errorf("buffer of %d samples too short for %v frames/sec", len(buf), cfg.FrameRate)
	}

	analyzed := analyzeFrames(frames, cfg)

	table := Table(cfg.Variant)
	normalized := NormalizeRMS(analyzed, table, cfg.Normalizer)

	params := make([]FrameParameters, len(normalized))
	for i, af := range normalized {
		params[i] = table.QuantizeFrame(af)
	}

	markSilence(params, table, cfg.Normalizer.SilenceRMS)
	markRepeats(params)

	if cfg.TrimSilence {
		params = trimSilentFrames(params)
	}
	if cfg.IncludeStopFrame {
		params = append(params, FrameParameters{EnergyCode: energyStop})
	}

	logging.Debugw("encoded frame parameters",
		"variant", cfg.Variant.String(), "frames", len(params), "hop", hop)
	return params, nil
}

// analyzeFrames runs the per-frame stages. Each frame depends only on its
// own slices, so the work is spread across a worker per CPU; the
// normalization pass that follows is the global barrier.
func analyzeFrames(frames []Frame, cfg EncoderConfig) []AnalyzedFrame {
	out := make([]AnalyzedFrame, len(frames))
	workers := runtime.GOMAXPROCS(0)
	if workers > len(frames) {
		workers = len(frames)
	}
	var next int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&next, 1)) - 1
				if i >= len(frames) {
					return
				}
				out[i] = analyzeOne(frames[i], cfg)
			}
		}()
	}
	wg.Wait()
	return out
}

func analyzeOne(f Frame, cfg EncoderConfig) AnalyzedFrame {
	r := Autocorrelate(f.AnalysisWindow, modelOrder)
	model := FitModel(r, len(f.AnalysisWindow))
	pitch := EstimatePitch(f.PitchWindow, cfg.Pitch)

	plainEnergy := rmsOf(f.PlainHopSegment)
	emphEnergy := rmsOf(f.HopSegment)

	var class Classification
	switch cfg.Detection {
	case DetectK1:
		class = Classify(plainEnergy, emphEnergy, pitch, cfg.Classify)
		class.IsVoiced = class.PassEnergy && !model.IsUnvoicedByK1(cfg.UnvoicedK1Threshold)
	default:
		class = Classify(plainEnergy, emphEnergy, pitch, cfg.Classify)
	}

	return AnalyzedFrame{Index: f.Index, Model: model, Pitch: pitch, Class: class}
}

// markSilence forces frames whose final quantized rms falls below the
// silence threshold down to the rest code. The check runs after
// normalization so rescaling cannot flip silence decisions inconsistently
// across a file.
func markSilence(params []FrameParameters, t *CodingTable, silenceRMS float64) {
	for i := range params {
		if params[i].IsStop() {
			continue
		}
		if t.Energy[params[i].EnergyCode] <= silenceRMS || params[i].EnergyCode == energySilence {
			params[i] = FrameParameters{EnergyCode: energySilence}
		}
	}
}

// markRepeats flags frames whose transmitted coefficient codes exactly
// match the previous speech frame's, letting the wire format drop the
// coefficient fields. Silence resets the chain since the decoder clears
// its targets on a rest frame.
func markRepeats(params []FrameParameters) {
	havePrev := false
	var prev FrameParameters
	for i := range params {
		p := params[i]
		if p.IsSilence() || p.IsStop() {
			havePrev = false
			continue
		}
		if havePrev && p.Voiced() == prev.Voiced() && sameKCodes(p, prev) {
			params[i].Repeat = true
			// Keep prev as the coefficient source for further repeats.
			continue
		}
		prev = p
		havePrev = true
	}
}

func sameKCodes(a, b FrameParameters) bool {
	limit := 4
	if a.Voiced() {
		limit = modelOrder
	}
	for i := 0; i < limit; i++ {
		if a.KCodes[i] != b.KCodes[i] {
			return false
		}
	}
	return true
}

// trimSilentFrames drops leading and trailing rest frames.
func trimSilentFrames(params []FrameParameters) []FrameParameters {
	start := 0
	for start < len(params) && params[start].IsSilence() {
		start++
	}
	end := len(params)
	for end > start && params[end-1].IsSilence() {
		end--
	}
	return params[start:end]
}

// FormatHex renders the bitstream as comma-separated hex bytes for
// embedding in firmware sources.
func FormatHex(data []byte) string {
	var b strings.Builder
	for i, v := range data {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "0x%02X", v)
	}
	return b.String()
}

// FormatCArray renders the bitstream as a complete C array definition,
// sixteen bytes per line, the way the chip vocabulary headers ship.
func FormatCArray(name string, data []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "const uint8_t %s[%d] = {\n", name, len(data))
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		b.WriteString("  ")
		for j := i; j < end; j++ {
			fmt.Fprintf(&b, "0x%02X,", data[j])
		}
		b.WriteByte('\n')
	}
	b.WriteString("};\n")
	return b.String()
}
