package lpc

import (
	"fmt"
	"strings"
)

// Variant selects which TMS-series speech chip the codec targets. The
// variants differ in their energy/pitch/coefficient ROMs and in the bit
// width of the pitch field.
type Variant int

const (
	TMS5220 Variant = iota // TI-99/4A era chip, 6-bit pitch codes
	TMS5100                // Speak & Spell era chip, 5-bit pitch codes
	TMS5200                // early 5220 sibling, 6-bit pitch codes
)

func (v Variant) String() string {
	switch v {
	case TMS5220:
		return "tms5220"
	case TMS5100:
		return "tms5100"
	case TMS5200:
		return "tms5200"
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// ParseVariant maps a chip name to its Variant. Case-insensitive.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tms5220", "5220":
		return TMS5220, nil
	case "tms5100", "5100":
		return TMS5100, nil
	case "tms5200", "5200":
		return TMS5200, nil
	}
	return 0, fmt.Errorf("unknown chip variant %q", s)
}

// Reserved energy codes shared by all variants.
const (
	energySilence = 0x0 // rest frame, no further fields
	energyStop    = 0xF // terminal frame, no further fields
)

// CodingTable holds one variant's immutable coding data: the quantization
// tables in continuous space, the raw chip ROM values used by synthesis,
// per-field bit widths and the synthesis constants. Tables are built once
// at package init and shared read-only by all encoders and synthesizers.
type CodingTable struct {
	Variant Variant

	// Quantization-space tables. Energy is in the same numeric space as
	// the spectral model's rms (residual amplitude scaled by 2^15 then
	// into chip units). Pitch entries are periods in samples at 8 kHz.
	// K[i] holds reflection coefficient values in (-1, 1).
	Energy []float64
	Pitch  []float64
	K      [10][]float64

	// Field widths on the wire. Energy is always 4 bits and repeat 1 bit.
	PitchBits int
	KBits     [10]int

	// Chirp is the voiced excitation waveform, one entry per sample,
	// repeated every pitch period.
	Chirp []int8

	// Raw ROM values, kept for bit-exact synthesis.
	chipEnergy []uint16

	// Synthesis constants.
	outputClamp    int32   // lattice output range: [-clamp-1, clamp]
	noisePoly      uint16  // LFSR feedback polynomial
	noiseAmplitude float64 // unvoiced excitation scale
	rcAlpha        float64 // single-pole output low-pass coefficient
}

// Table returns the shared coding table for a variant.
func Table(v Variant) *CodingTable {
	switch v {
	case TMS5100:
		return &tableTMS5100
	case TMS5200:
		return &tableTMS5200
	default:
		return &tableTMS5220
	}
}

// energyScale maps the chip's 8-bit energy ROM values into the rms
// quantization space used by the spectral model.
const energyScale = 32.0

// Raw chip ROM data. K1/K2 are signed Q15, K3..K10 signed Q7, energy and
// pitch are unsigned bytes. Values match the chip coefficient ROMs; the
// TMS5200 shares the TMS5220 coefficient and pitch ROMs but carries its
// own energy curve.

var romEnergy5220 = [16]uint16{
	0x00, 0x02, 0x03, 0x04, 0x05, 0x07, 0x0A, 0x0F,
	0x14, 0x20, 0x29, 0x39, 0x51, 0x72, 0xA1, 0xFF,
}

var romEnergy5100 = [16]uint16{
	0x00, 0x00, 0x01, 0x01, 0x02, 0x03, 0x05, 0x07,
	0x0A, 0x0E, 0x15, 0x1E, 0x2B, 0x3D, 0x56, 0x00,
}

var romEnergy5200 = [16]uint16{
	0x00, 0x01, 0x02, 0x03, 0x04, 0x06, 0x08, 0x0B,
	0x10, 0x17, 0x21, 0x2F, 0x3F, 0x55, 0x72, 0x00,
}

var romPitch5220 = [64]uint16{
	0x00, 0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16,
	0x17, 0x18, 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E,
	0x1F, 0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26,
	0x27, 0x28, 0x29, 0x2A, 0x2B, 0x2D, 0x2F, 0x31,
	0x33, 0x35, 0x36, 0x39, 0x3B, 0x3D, 0x3F, 0x42,
	0x45, 0x47, 0x49, 0x4D, 0x4F, 0x51, 0x55, 0x57,
	0x5C, 0x5F, 0x63, 0x66, 0x6A, 0x6E, 0x73, 0x77,
	0x7B, 0x80, 0x85, 0x8A, 0x8F, 0x95, 0x9A, 0xA0,
}

var romPitch5100 = [32]uint16{
	0x00, 0x29, 0x2B, 0x2D, 0x2F, 0x31, 0x33, 0x35,
	0x37, 0x3A, 0x3C, 0x3F, 0x42, 0x46, 0x49, 0x4C,
	0x4F, 0x53, 0x57, 0x5A, 0x5E, 0x63, 0x67, 0x6B,
	0x70, 0x76, 0x7B, 0x81, 0x86, 0x8C, 0x93, 0x99,
}

var romK1 = [2][32]uint16{
	{0x82C0, 0x8380, 0x83C0, 0x8440, 0x84C0, 0x8540, 0x8600, 0x8780,
		0x8880, 0x8980, 0x8AC0, 0x8C00, 0x8D40, 0x8F00, 0x90C0, 0x92C0,
		0x9900, 0xA140, 0xAB80, 0xB840, 0xC740, 0xD8C0, 0xEBC0, 0x0000,
		0x1440, 0x2740, 0x38C0, 0x47C0, 0x5480, 0x5EC0, 0x6700, 0x6D40},
	{0x82C0, 0x83C0, 0x84C0, 0x8600, 0x8800, 0x8A40, 0x8D00, 0x9080,
		0x9540, 0x9AC0, 0xA180, 0xAA00, 0xB3C0, 0xBF40, 0xCC80, 0xDB00,
		0xEA80, 0xFAC0, 0x0B40, 0x1B80, 0x2AC0, 0x38C0, 0x4540, 0x5000,
		0x5940, 0x6100, 0x6740, 0x6C80, 0x70C0, 0x7400, 0x7680, 0x7C80},
}

var romK2 = [2][32]uint16{
	{0xAE00, 0xB480, 0xBB80, 0xC340, 0xCB80, 0xD440, 0xDDC0, 0xE780,
		0xF180, 0xFBC0, 0x0600, 0x1040, 0x1A40, 0x2400, 0x2D40, 0x3600,
		0x3E40, 0x45C0, 0x4CC0, 0x5300, 0x5880, 0x5DC0, 0x6240, 0x6640,
		0x69C0, 0x6CC0, 0x6F80, 0x71C0, 0x73C0, 0x7580, 0x7700, 0x7E80},
	{0xA8C0, 0xAE00, 0xB3C0, 0xBA00, 0xC100, 0xC840, 0xD000, 0xD880,
		0xE100, 0xEA00, 0xF340, 0xFC80, 0x05C0, 0x0F00, 0x1840, 0x2140,
		0x29C0, 0x31C0, 0x3980, 0x40C0, 0x4780, 0x4D80, 0x5340, 0x5880,
		0x5D00, 0x6140, 0x6500, 0x6840, 0x6B40, 0x6DC0, 0x7040, 0x7E80},
}

var romK3 = [2][16]uint8{
	{0x92, 0x9F, 0xAD, 0xBA, 0xC8, 0xD5, 0xE3, 0xF0,
		0xFE, 0x0B, 0x19, 0x26, 0x34, 0x41, 0x4F, 0x5C},
	{0x9E, 0xA6, 0xAF, 0xBA, 0xC8, 0xD6, 0xE7, 0xF8,
		0x09, 0x1A, 0x2A, 0x39, 0x46, 0x52, 0x5B, 0x63},
}

var romK4 = [2][16]uint8{
	{0xAE, 0xBC, 0xCA, 0xD8, 0xE6, 0xF4, 0x01, 0x0F,
		0x1D, 0x2B, 0x39, 0x47, 0x55, 0x63, 0x71, 0x7E},
	{0xA5, 0xAD, 0xB8, 0xC4, 0xD1, 0xE0, 0xF0, 0x00,
		0x10, 0x20, 0x2F, 0x3D, 0x49, 0x53, 0x5C, 0x63},
}

var romK5 = [2][16]uint8{
	{0xAE, 0xBA, 0xC5, 0xD1, 0xDD, 0xE8, 0xF4, 0xFF,
		0x0B, 0x17, 0x22, 0x2E, 0x39, 0x45, 0x51, 0x5C},
	{0xB1, 0xB9, 0xC2, 0xCC, 0xD7, 0xE2, 0xEE, 0xFB,
		0x06, 0x12, 0x1E, 0x2A, 0x35, 0x3E, 0x47, 0x50},
}

var romK6 = [2][16]uint8{
	{0xC0, 0xCB, 0xD6, 0xE1, 0xEC, 0xF7, 0x03, 0x0E,
		0x19, 0x24, 0x2F, 0x3A, 0x45, 0x50, 0x5B, 0x66},
	{0xB8, 0xC2, 0xCD, 0xD8, 0xE4, 0xF1, 0xFF, 0x0B,
		0x18, 0x25, 0x31, 0x3C, 0x46, 0x4E, 0x56, 0x5D},
}

var romK7 = [2][16]uint8{
	{0xB3, 0xBF, 0xCB, 0xD7, 0xE3, 0xEF, 0xFB, 0x07,
		0x13, 0x1F, 0x2B, 0x37, 0x43, 0x4F, 0x5A, 0x66},
	{0xB8, 0xC1, 0xCB, 0xD5, 0xE1, 0xED, 0xF9, 0x05,
		0x11, 0x1D, 0x29, 0x34, 0x3E, 0x47, 0x4F, 0x56},
}

var romK8 = [2][8]uint8{
	{0xC0, 0xD8, 0xF0, 0x07, 0x1F, 0x37, 0x4F, 0x66},
	{0xCA, 0xE0, 0xF7, 0x0F, 0x26, 0x3B, 0x4C, 0x5A},
}

var romK9 = [2][8]uint8{
	{0xC0, 0xD4, 0xE8, 0xFC, 0x10, 0x25, 0x39, 0x4D},
	{0xC8, 0xDA, 0xEC, 0x00, 0x13, 0x26, 0x37, 0x46},
}

var romK10 = [2][8]uint8{
	{0xCD, 0xDF, 0xF1, 0x04, 0x16, 0x20, 0x3B, 0x4D},
	{0xD4, 0xE2, 0xF2, 0x00, 0x10, 0x1F, 0x2D, 0x3A},
}

// chirpROM is the voiced excitation pulse, identical across variants.
var chirpROM = [41]uint8{
	0x00, 0x2A, 0xD4, 0x32, 0xB2, 0x12, 0x25, 0x14,
	0x02, 0xE1, 0xC5, 0x02, 0x5F, 0x5A, 0x05, 0x0F,
	0x26, 0xFC, 0xA5, 0xA5, 0xD6, 0xDD, 0xDC, 0xFC,
	0x25, 0x2B, 0x22, 0x21, 0x0F, 0xFF, 0xF8, 0xEE,
	0xED, 0xEF, 0xF7, 0xF6, 0xFA, 0x00, 0x03, 0x02, 0x01,
}

var (
	tableTMS5220 CodingTable
	tableTMS5100 CodingTable
	tableTMS5200 CodingTable
)

func init() {
	tableTMS5220 = buildTable(TMS5220, romEnergy5220[:], romPitch5220[:], 0, 6)
	tableTMS5100 = buildTable(TMS5100, romEnergy5100[:], romPitch5100[:], 1, 5)
	tableTMS5200 = buildTable(TMS5200, romEnergy5200[:], romPitch5220[:], 0, 6)
}

// buildTable derives the continuous quantization tables from one set of
// chip ROMs. romSet selects the coefficient ROM bank (0 = 5220/5200,
// 1 = 5100).
func buildTable(v Variant, energy, pitch []uint16, romSet, pitchBits int) CodingTable {
	t := CodingTable{
		Variant:        v,
		PitchBits:      pitchBits,
		KBits:          [10]int{5, 5, 4, 4, 4, 4, 4, 3, 3, 3},
		outputClamp:    511,
		noisePoly:      0xB800,
		noiseAmplitude: 1.0,
		rcAlpha:        0.6,
	}

	t.Energy = make([]float64, len(energy))
	t.chipEnergy = make([]uint16, len(energy))
	for i, e := range energy {
		t.chipEnergy[i] = e
		t.Energy[i] = float64(e) * energyScale
	}

	t.Pitch = make([]float64, len(pitch))
	for i, p := range pitch {
		t.Pitch[i] = float64(p)
	}

	q15 := func(rom []uint16) []float64 {
		out := make([]float64, len(rom))
		for i, r := range rom {
			out[i] = float64(int16(r)) / 32768.0
		}
		return out
	}
	q7 := func(rom []uint8) []float64 {
		out := make([]float64, len(rom))
		for i, r := range rom {
			out[i] = float64(int8(r)) / 128.0
		}
		return out
	}

	t.K[0] = q15(romK1[romSet][:])
	t.K[1] = q15(romK2[romSet][:])
	t.K[2] = q7(romK3[romSet][:])
	t.K[3] = q7(romK4[romSet][:])
	t.K[4] = q7(romK5[romSet][:])
	t.K[5] = q7(romK6[romSet][:])
	t.K[6] = q7(romK7[romSet][:])
	t.K[7] = q7(romK8[romSet][:])
	t.K[8] = q7(romK9[romSet][:])
	t.K[9] = q7(romK10[romSet][:])

	t.Chirp = make([]int8, len(chirpROM))
	for i, c := range chirpROM {
		t.Chirp[i] = int8(c)
	}

	return t
}
