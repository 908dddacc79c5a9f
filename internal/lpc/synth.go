package lpc

// Synthesis engine: decodes a conforming bitstream and reconstructs PCM by
// driving the 10-stage lattice filter with chirp (voiced) or LFSR noise
// (unvoiced) excitation. The arithmetic deliberately reproduces the chip:
// the lattice output is clamped to the 10-bit signed range before scaling
// up, and a single-pole low-pass stands in for the analog output stage.

// SynthOptions configures the decoder-side niceties that later chip
// revisions and emulators added on top of the raw lattice.
type SynthOptions struct {
	// Interpolate ramps every parameter linearly across each frame
	// instead of stepping at frame boundaries.
	Interpolate bool

	// RCFilter enables the output low-pass emulating the chip's analog
	// output stage.
	RCFilter bool

	// SamplesPerFrame is the frame span in samples. Zero means the
	// hardware's 200 (25 ms at 8 kHz, i.e. 40 frames/sec).
	SamplesPerFrame int
}

// DefaultSynthOptions enables interpolation and the output filter.
func DefaultSynthOptions() SynthOptions {
	return SynthOptions{Interpolate: true, RCFilter: true}
}

// Synthesizer is a sequential state machine over one bitstream. Each
// output sample depends on the previous sample's lattice state, so a
// single stream cannot be parallelized; independent Synthesizers are safe
// to run concurrently since the coding table is read-only.
type Synthesizer struct {
	table *CodingTable
	opts  SynthOptions
	data  []byte

	r               bitReader
	samplesPerFrame int

	// Frame-start and target values for every interpolated parameter.
	startEnergy, targetEnergy float64
	startPitch, targetPitch   float64
	startK, targetK           [modelOrder]float64

	interpolating bool // whether this frame ramps or snaps
	haveFrame     bool // at least one speech frame seen
	prevVoiced    bool
	prevSpeech    bool

	sampleInFrame int
	samplePos     int
	periodCounter float64
	lfsr          uint16
	x             [modelOrder]float64 // lattice delay registers
	rcState       float64
	finished      bool

	frameOffsets []int
}

// NewSynthesizer builds a synthesizer over data for the given variant.
// The stream need not have been produced by this package's encoder; any
// conforming byte sequence will do.
func NewSynthesizer(data []byte, v Variant, opts SynthOptions) *Synthesizer {
	s := &Synthesizer{table: Table(v), opts: opts, data: data}
	s.samplesPerFrame = opts.SamplesPerFrame
	if s.samplesPerFrame <= 0 {
		s.samplesPerFrame = SampleRate / 40
	}
	s.Reset()
	return s
}

// Reset returns the synthesizer to its fixed initial state: bit cursor at
// zero, LFSR seeded, lattice and output filter cleared. Replaying the same
// stream after Reset yields sample-identical output.
func (s *Synthesizer) Reset() {
	s.r = bitReader{data: s.data}
	s.startEnergy, s.targetEnergy = 0, 0
	s.startPitch, s.targetPitch = 0, 0
	s.startK = [modelOrder]float64{}
	s.targetK = [modelOrder]float64{}
	s.interpolating = false
	s.haveFrame = false
	s.prevVoiced = false
	s.prevSpeech = false
	// Force a frame load on the first NextSample call; Reset itself has
	// no side effects on the bit cursor beyond rewinding it.
	s.sampleInFrame = s.samplesPerFrame
	s.samplePos = 0
	s.periodCounter = 0
	s.lfsr = 1
	s.x = [modelOrder]float64{}
	s.rcState = 0
	s.finished = false
	s.frameOffsets = nil
}

// HasNext reports whether more samples remain. It turns false only after
// a stop frame is consumed or the stream is exhausted.
func (s *Synthesizer) HasNext() bool { return !s.finished }

// FrameOffsets returns the sample offset at which each decoded frame so
// far began, for aligning frames against rendered output.
func (s *Synthesizer) FrameOffsets() []int {
	out := make([]int, len(s.frameOffsets))
	copy(out, s.frameOffsets)
	return out
}

// loadNextFrame pulls the next frame's parameter codes and sets up
// interpolation targets. Frame-start values are wherever the previous
// frame's ramp ended.
func (s *Synthesizer) loadNextFrame() {
	if s.r.remaining() == 0 {
		// Exhausted without a stop frame: a truncated stream decays to
		// silence rather than failing.
		s.finished = true
		return
	}

	// The previous frame's targets are this frame's starting point.
	s.startEnergy = s.targetEnergy
	s.startPitch = s.targetPitch
	s.startK = s.targetK

	energy := s.r.readBits(4)
	switch energy {
	case energySilence:
		s.targetEnergy = 0
		s.targetPitch = 0
		s.targetK = [modelOrder]float64{}
	case energyStop:
		s.targetEnergy = 0
		s.targetPitch = 0
		s.targetK = [modelOrder]float64{}
		s.finished = true
		return
	default:
		t := s.table
		s.targetEnergy = float64(t.chipEnergy[energy])
		repeat := s.r.readBits(1) == 1
		s.targetPitch = t.Pitch[s.r.readBits(t.PitchBits)]
		voiced := s.targetPitch != 0
		if !repeat {
			s.targetK[0] = t.K[0][s.r.readBits(t.KBits[0])]
			s.targetK[1] = t.K[1][s.r.readBits(t.KBits[1])]
			s.targetK[2] = t.K[2][s.r.readBits(t.KBits[2])]
			s.targetK[3] = t.K[3][s.r.readBits(t.KBits[3])]
			if voiced {
				for i := 4; i < modelOrder; i++ {
					s.targetK[i] = t.K[i][s.r.readBits(t.KBits[i])]
				}
			} else {
				for i := 4; i < modelOrder; i++ {
					s.targetK[i] = 0
				}
			}
		} else if !voiced {
			for i := 4; i < modelOrder; i++ {
				s.targetK[i] = 0
			}
		}
	}

	voiced := s.targetPitch != 0
	speech := s.targetEnergy != 0

	// Interpolation is inhibited across excitation regime changes:
	// voiced<->unvoiced flips and frames bordering silence snap straight
	// to their targets to avoid blending two different excitations.
	s.interpolating = s.opts.Interpolate &&
		s.haveFrame && speech && s.prevSpeech && voiced == s.prevVoiced
	if !s.interpolating {
		s.startEnergy = s.targetEnergy
		s.startPitch = s.targetPitch
		s.startK = s.targetK
	}

	s.haveFrame = true
	s.prevVoiced = voiced
	s.prevSpeech = speech
	s.frameOffsets = append(s.frameOffsets, s.samplePos)
	s.sampleInFrame = 0
}

// NextSample produces one output sample in [-1, 1]. After the stream
// finishes it returns silence.
func (s *Synthesizer) NextSample() float64 {
	if s.sampleInFrame >= s.samplesPerFrame {
		s.loadNextFrame()
	}
	if s.finished {
		return 0
	}

	// Interpolate every parameter as a fraction of frame position.
	frac := 0.0
	if s.interpolating {
		frac = float64(s.sampleInFrame) / float64(s.samplesPerFrame)
	} else {
		frac = 1.0
	}
	energy := s.startEnergy + (s.targetEnergy-s.startEnergy)*frac
	pitch := s.startPitch + (s.targetPitch-s.startPitch)*frac
	var k [modelOrder]float64
	for i := range k {
		k[i] = s.startK[i] + (s.targetK[i]-s.startK[i])*frac
	}

	s.sampleInFrame++
	s.samplePos++

	t := s.table

	// Excitation: chirp pulse train when a pitch period is active, LFSR
	// noise otherwise.
	var u float64
	if pitch >= 1 {
		idx := int(s.periodCounter)
		if idx < len(t.Chirp) {
			u = float64(t.Chirp[idx]) * energy / 256.0
		}
		s.periodCounter++
		if s.periodCounter >= pitch {
			s.periodCounter = 0
		}
	} else {
		if s.lfsr&1 != 0 {
			s.lfsr = (s.lfsr >> 1) ^ t.noisePoly
			u = energy * t.noiseAmplitude
		} else {
			s.lfsr >>= 1
			u = -energy * t.noiseAmplitude
		}
	}

	// Lattice forward pass builds u9..u0 by subtracting each stage's
	// reflection from the running excitation.
	var ui [modelOrder + 1]float64
	ui[modelOrder] = u
	for i := modelOrder - 1; i >= 0; i-- {
		ui[i] = ui[i+1] - k[i]*s.x[i]
	}

	// Saturate at the chip's signed output range, final stage only.
	clamp := float64(t.outputClamp)
	if ui[0] > clamp {
		ui[0] = clamp
	} else if ui[0] < -clamp-1 {
		ui[0] = -clamp - 1
	}

	// Reverse pass updates the delay line for the next sample.
	for i := modelOrder - 1; i >= 1; i-- {
		s.x[i] = s.x[i-1] + k[i-1]*ui[i-1]
	}
	s.x[0] = ui[0]

	// Scale the 10-bit lattice output into [-1, 1].
	out := ui[0] * 64.0 / 32768.0
	if s.opts.RCFilter {
		s.rcState += t.rcAlpha * (out - s.rcState)
		out = s.rcState
	}
	return out
}

// Synthesize renders an entire bitstream, returning the PCM samples and
// the sample offset at which each frame began.
func Synthesize(data []byte, v Variant, opts SynthOptions) ([]float64, []int) {
	s := NewSynthesizer(data, v, opts)
	var pcm []float64
	for s.HasNext() {
		pcm = append(pcm, s.NextSample())
	}
	// The final HasNext flip produces one trailing silent sample; trim it.
	if n := len(pcm); n > 0 && s.finished {
		pcm = pcm[:n-1]
	}
	return pcm, s.FrameOffsets()
}
