package wav

import (
	"math"
	"path/filepath"
	"testing"
)

func tone(freq float64, rate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return out
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := tone(440, 8000, 800)
	dec, err := Decode(Encode(in, 8000), 8000)
	if err != nil {
		t.Fatal(err)
	}
	if dec.SourceRate != 8000 || dec.SourceCh != 1 {
		t.Fatalf("source %d Hz / %d ch, want 8000 / 1", dec.SourceRate, dec.SourceCh)
	}
	if len(dec.Samples) != len(in) {
		t.Fatalf("%d samples back, want %d", len(dec.Samples), len(in))
	}
	for i := range in {
		if math.Abs(dec.Samples[i]-in[i]) > 1.0/32000 {
			t.Fatalf("sample %d: %v vs %v", i, dec.Samples[i], in[i])
		}
	}
}

func TestReadWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	in := tone(200, 8000, 400)
	if err := WriteFile(path, in, 8000); err != nil {
		t.Fatal(err)
	}
	dec, err := ReadFile(path, 8000)
	if err != nil {
		t.Fatal(err)
	}
	if len(dec.Samples) != len(in) {
		t.Fatalf("%d samples back, want %d", len(dec.Samples), len(in))
	}
}

func TestDecodeResamples(t *testing.T) {
	in := tone(440, 16000, 1600)
	dec, err := Decode(Encode(in, 16000), 8000)
	if err != nil {
		t.Fatal(err)
	}
	if dec.SourceRate != 16000 {
		t.Fatalf("source rate %d, want 16000", dec.SourceRate)
	}
	if got, want := len(dec.Samples), 800; got < want-2 || got > want+2 {
		t.Fatalf("resampled to %d samples, want about %d", got, want)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	valid := Encode(tone(440, 8000, 100), 8000)
	cases := map[string][]byte{
		"empty":           {},
		"bad magic":       []byte("MIDIdataMIDI"),
		"truncated chunk": valid[:20],
		"no data chunk":   valid[:36],
	}
	for name, raw := range cases {
		if _, err := Decode(raw, 8000); err == nil {
			t.Errorf("%s: decode should fail", name)
		}
	}
}

func TestDecodeClipsOnEncode(t *testing.T) {
	dec, err := Decode(Encode([]float64{2.0, -2.0}, 8000), 8000)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range dec.Samples {
		if s > 1 || s < -1 {
			t.Fatalf("sample %v outside [-1, 1]", s)
		}
	}
}
