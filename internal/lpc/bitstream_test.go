package lpc

import (
	"reflect"
	"testing"
)

func TestReverseBits(t *testing.T) {
	cases := []struct{ in, want byte }{
		{0x00, 0x00},
		{0xFF, 0xFF},
		{0x01, 0x80},
		{0x80, 0x01},
		{0xB2, 0x4D},
		{0xF0, 0x0F},
	}
	for _, c := range cases {
		if got := reverseBits(c.in); got != c.want {
			t.Errorf("reverseBits(%#02x) = %#02x, want %#02x", c.in, got, c.want)
		}
	}
}

// TestEncodeSilenceStop pins the exact wire bytes of the smallest valid
// stream: one rest frame and the terminal frame pack into a single byte,
// bit-reversed for the chip's LSB-first shift register.
func TestEncodeSilenceStop(t *testing.T) {
	data := EncodeFrames([]FrameParameters{
		{EnergyCode: energySilence},
		{EnergyCode: energyStop},
	}, Table(TMS5220))
	if len(data) != 1 || data[0] != 0xF0 {
		t.Fatalf("got % 02X, want F0", data)
	}
}

func TestBitstreamRoundTrip(t *testing.T) {
	for _, v := range []Variant{TMS5220, TMS5100, TMS5200} {
		tab := Table(v)
		voiced := FrameParameters{
			EnergyCode: 9,
			PitchCode:  17 % (1 << tab.PitchBits),
			KCodes:     [modelOrder]int{12, 30, 7, 11, 3, 9, 2, 5, 1, 6},
		}
		if voiced.PitchCode == 0 {
			voiced.PitchCode = 1
		}
		unvoiced := FrameParameters{
			EnergyCode: 5,
			KCodes:     [modelOrder]int{4, 21, 15, 2},
		}
		repeat := voiced
		repeat.Repeat = true
		repeat.EnergyCode = 7

		in := []FrameParameters{
			{EnergyCode: energySilence},
			voiced,
			repeat,
			unvoiced,
			{EnergyCode: energyStop},
		}
		data := EncodeFrames(in, tab)
		out := DecodeFrames(data, tab)

		if !reflect.DeepEqual(in, out) {
			t.Errorf("%s: round trip mismatch\n in: %+v\nout: %+v", v, in, out)
		}
	}
}

// TestDecodeRepeatCopiesCoefficients checks that a decoded repeat frame is
// self-contained: it carries the previous frame's coefficient codes even
// though the wire drops them.
func TestDecodeRepeatCopiesCoefficients(t *testing.T) {
	tab := Table(TMS5220)
	base := FrameParameters{
		EnergyCode: 8,
		PitchCode:  20,
		KCodes:     [modelOrder]int{1, 2, 3, 4, 5, 6, 7, 2, 1, 3},
	}
	rep := FrameParameters{EnergyCode: 6, Repeat: true, PitchCode: 20}

	data := EncodeFrames([]FrameParameters{base, rep, {EnergyCode: energyStop}}, tab)
	out := DecodeFrames(data, tab)
	if len(out) != 3 {
		t.Fatalf("decoded %d frames, want 3", len(out))
	}
	if !out[1].Repeat {
		t.Fatal("repeat flag lost")
	}
	if out[1].KCodes != base.KCodes {
		t.Fatalf("repeat frame codes %v, want %v", out[1].KCodes, base.KCodes)
	}
}

// TestDecodeTruncated cuts a valid stream at every byte boundary and
// checks decoding stays well-behaved: no panic, never more frames than the
// full stream yields.
func TestDecodeTruncated(t *testing.T) {
	tab := Table(TMS5220)
	full := EncodeFrames([]FrameParameters{
		{EnergyCode: 9, PitchCode: 17, KCodes: [modelOrder]int{12, 30, 7, 11, 3, 9, 2, 5, 1, 6}},
		{EnergyCode: 5, KCodes: [modelOrder]int{4, 21, 15, 2}},
		{EnergyCode: energyStop},
	}, tab)
	want := len(DecodeFrames(full, tab))
	for cut := 0; cut < len(full); cut++ {
		got := DecodeFrames(full[:cut], tab)
		if len(got) > want {
			t.Fatalf("cut %d: %d frames from a truncated stream, full stream has %d", cut, len(got), want)
		}
	}
}

func TestDecodeStopsAtStopFrame(t *testing.T) {
	tab := Table(TMS5220)
	data := EncodeFrames([]FrameParameters{
		{EnergyCode: energyStop},
		{EnergyCode: 9, PitchCode: 17},
	}, tab)
	out := DecodeFrames(data, tab)
	if len(out) != 1 || !out[0].IsStop() {
		t.Fatalf("decode must stop at the terminal frame, got %+v", out)
	}
}

func TestDecodeEmpty(t *testing.T) {
	if out := DecodeFrames(nil, Table(TMS5220)); len(out) != 0 {
		t.Fatalf("empty input decoded to %d frames", len(out))
	}
}
