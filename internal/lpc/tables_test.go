package lpc

import "testing"

func TestParseVariant(t *testing.T) {
	cases := map[string]Variant{
		"tms5220": TMS5220,
		"TMS5220": TMS5220,
		"5220":    TMS5220,
		" 5100 ":  TMS5100,
		"tms5200": TMS5200,
	}
	for in, want := range cases {
		got, err := ParseVariant(in)
		if err != nil {
			t.Errorf("ParseVariant(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseVariant(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseVariant("sp0256"); err == nil {
		t.Fatal("unknown chip must fail")
	}
}

// TestTableShapes checks every variant's table against the wire format's
// field widths, catching transcription slips in the ROM data.
func TestTableShapes(t *testing.T) {
	for _, v := range []Variant{TMS5220, TMS5100, TMS5200} {
		tab := Table(v)
		if tab.Variant != v {
			t.Errorf("%s: table carries variant %v", v, tab.Variant)
		}
		if len(tab.Energy) != 16 {
			t.Errorf("%s: %d energy entries, want 16", v, len(tab.Energy))
		}
		if tab.Energy[energySilence] != 0 {
			t.Errorf("%s: silence slot energy %v, want 0", v, tab.Energy[energySilence])
		}
		if got, want := len(tab.Pitch), 1<<tab.PitchBits; got != want {
			t.Errorf("%s: %d pitch entries for %d pitch bits", v, got, tab.PitchBits)
		}
		if tab.Pitch[0] != 0 {
			t.Errorf("%s: pitch code 0 must be the unvoiced marker, got %v", v, tab.Pitch[0])
		}
		for i := 0; i < modelOrder; i++ {
			if got, want := len(tab.K[i]), 1<<tab.KBits[i]; got != want {
				t.Errorf("%s: k%d has %d entries for %d bits", v, i+1, got, tab.KBits[i])
			}
			for j, k := range tab.K[i] {
				if k <= -1 || k >= 1 {
					t.Errorf("%s: k%d[%d] = %v outside (-1, 1)", v, i+1, j, k)
				}
			}
		}
		if len(tab.Chirp) == 0 {
			t.Errorf("%s: empty chirp table", v)
		}
	}
}

// TestTablesAscending: the quantizer assumes ascending tables. Energy
// ascends up to the stop slot; pitch ascends after the unvoiced marker;
// every coefficient table ascends throughout.
func TestTablesAscending(t *testing.T) {
	for _, v := range []Variant{TMS5220, TMS5100, TMS5200} {
		tab := Table(v)
		for i := 1; i < energyStop; i++ {
			if tab.Energy[i] < tab.Energy[i-1] {
				t.Errorf("%s: energy[%d]=%v below energy[%d]=%v", v, i, tab.Energy[i], i-1, tab.Energy[i-1])
			}
		}
		for i := 2; i < len(tab.Pitch); i++ {
			if tab.Pitch[i] <= tab.Pitch[i-1] {
				t.Errorf("%s: pitch[%d]=%v not above pitch[%d]=%v", v, i, tab.Pitch[i], i-1, tab.Pitch[i-1])
			}
		}
		for ki := 0; ki < modelOrder; ki++ {
			for i := 1; i < len(tab.K[ki]); i++ {
				if tab.K[ki][i] <= tab.K[ki][i-1] {
					t.Errorf("%s: k%d[%d]=%v not above k%d[%d]=%v",
						v, ki+1, i, tab.K[ki][i], ki+1, i-1, tab.K[ki][i-1])
				}
			}
		}
	}
}

func TestVariantsShareCoefficientROMs(t *testing.T) {
	a := Table(TMS5220)
	c := Table(TMS5200)
	for ki := 0; ki < modelOrder; ki++ {
		for i := range a.K[ki] {
			if a.K[ki][i] != c.K[ki][i] {
				t.Fatalf("tms5200 k%d[%d] diverges from tms5220", ki+1, i)
			}
		}
	}
	if a.Energy[8] == c.Energy[8] {
		t.Fatal("tms5200 should carry its own energy curve")
	}
}
