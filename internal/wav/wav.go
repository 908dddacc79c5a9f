// Package wav is the ingest/export boundary for the codec: it reads RIFF
// audio into the mono 8 kHz float buffer the analysis pipeline expects and
// writes rendered PCM back out. It is deliberately minimal; anything the
// codec core does not need is rejected with a descriptive error.
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

const (
	formatPCM       = 1
	formatIEEEFloat = 3
)

// Decoded is the result of reading a WAV file: mono samples in [-1, 1] at
// the requested rate, plus the source format for logging.
type Decoded struct {
	Samples    []float64
	SourceRate int
	SourceCh   int
}

// ReadFile reads a WAV file, downmixes to mono, and linearly resamples to
// targetRate. Malformed containers fail hard with no partial output.
func ReadFile(path string, targetRate int) (*Decoded, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(raw, targetRate)
}

// Decode parses WAV bytes. See ReadFile.
func Decode(raw []byte, targetRate int) (*Decoded, error) {
	if len(raw) < 12 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE container")
	}

	var (
		format     uint16
		channels   int
		sampleRate int
		bitsPer    int
		data       []byte
		haveFmt    bool
	)

	// Walk the chunk list; chunks are word-aligned.
	pos := 12
	for pos+8 <= len(raw) {
		id := string(raw[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(raw[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(raw) {
			return nil, fmt.Errorf("truncated %q chunk: %d bytes declared, %d available", id, size, len(raw)-body)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too small: %d bytes", size)
			}
			format = binary.LittleEndian.Uint16(raw[body : body+2])
			channels = int(binary.LittleEndian.Uint16(raw[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(raw[body+4 : body+8]))
			bitsPer = int(binary.LittleEndian.Uint16(raw[body+14 : body+16]))
			haveFmt = true
		case "data":
			data = raw[body : body+size]
		}
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	if !haveFmt {
		return nil, fmt.Errorf("missing fmt chunk")
	}
	if data == nil {
		return nil, fmt.Errorf("missing data chunk")
	}
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid fmt: %d channels at %d Hz", channels, sampleRate)
	}

	var mono []float64
	switch {
	case format == formatPCM && bitsPer == 16:
		mono = downmixPCM16(data, channels)
	case format == formatPCM && bitsPer == 8:
		mono = downmixPCM8(data, channels)
	case format == formatIEEEFloat && bitsPer == 32:
		mono = downmixFloat32(data, channels)
	default:
		return nil, fmt.Errorf("unsupported format %d with %d bits per sample", format, bitsPer)
	}

	if targetRate > 0 && targetRate != sampleRate {
		mono = resampleLinear(mono, sampleRate, targetRate)
	}
	return &Decoded{Samples: mono, SourceRate: sampleRate, SourceCh: channels}, nil
}

func downmixPCM16(data []byte, channels int) []float64 {
	frames := len(data) / (2 * channels)
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * 2
			s := int16(binary.LittleEndian.Uint16(data[off : off+2]))
			sum += float64(s) / 32768.0
		}
		out[i] = sum / float64(channels)
	}
	return out
}

func downmixPCM8(data []byte, channels int) []float64 {
	frames := len(data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			// 8-bit WAV is unsigned with 128 as zero.
			sum += (float64(data[i*channels+c]) - 128.0) / 128.0
		}
		out[i] = sum / float64(channels)
	}
	return out
}

func downmixFloat32(data []byte, channels int) []float64 {
	frames := len(data) / (4 * channels)
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * 4
			bits := binary.LittleEndian.Uint32(data[off : off+4])
			sum += float64(math.Float32frombits(bits))
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// resampleLinear converts between rates by linear interpolation. Plenty
// for speech heading into an 8 kHz codec.
func resampleLinear(in []float64, fromRate, toRate int) []float64 {
	if len(in) == 0 {
		return nil
	}
	n := int(math.Round(float64(len(in)) * float64(toRate) / float64(fromRate)))
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	ratio := float64(fromRate) / float64(toRate)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = in[j]*(1-frac) + in[j+1]*frac
	}
	return out
}

// Encode renders mono samples as a 16-bit PCM WAV byte sequence.
func Encode(samples []float64, sampleRate int) []byte {
	var body bytes.Buffer
	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(math.Round(s * 32767.0))
		_ = binary.Write(&body, binary.LittleEndian, v)
	}

	var out bytes.Buffer
	dataLen := body.Len()
	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(36+dataLen))
	out.WriteString("WAVE")
	out.WriteString("fmt ")
	_ = binary.Write(&out, binary.LittleEndian, uint32(16))
	_ = binary.Write(&out, binary.LittleEndian, uint16(formatPCM))
	_ = binary.Write(&out, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&out, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&out, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	_ = binary.Write(&out, binary.LittleEndian, uint16(2))            // block align
	_ = binary.Write(&out, binary.LittleEndian, uint16(16))           // bits per sample
	out.WriteString("data")
	_ = binary.Write(&out, binary.LittleEndian, uint32(dataLen))
	out.Write(body.Bytes())
	return out.Bytes()
}

// WriteFile writes mono samples to path as 16-bit PCM.
func WriteFile(path string, samples []float64, sampleRate int) error {
	if err := os.WriteFile(path, Encode(samples, sampleRate), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
