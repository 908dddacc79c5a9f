package lpc

// The chips consume their data ROMs through an LSB-first shift register,
// so every byte on the wire carries its bits in reversed order relative to
// the order fields are packed. The writer packs MSB-first and reverses
// each byte on flush; the reader reverses each byte before pulling bits.

// reverseBits mirrors the bit order within a byte.
func reverseBits(b byte) byte {
	b = (b >> 4) | (b << 4)
	b = ((b & 0xCC) >> 2) | ((b & 0x33) << 2)
	b = ((b & 0xAA) >> 1) | ((b & 0x55) << 1)
	return b
}

// bitWriter packs fixed-width fields into a byte sequence.
type bitWriter struct {
	out  []byte
	cur  byte
	nCur int // bits in cur
}

func (w *bitWriter) writeBits(value, width int) {
	for i := width - 1; i >= 0; i-- {
		w.cur <<= 1
		if value&(1<<i) != 0 {
			w.cur |= 1
		}
		w.nCur++
		if w.nCur == 8 {
			w.out = append(w.out, reverseBits(w.cur))
			w.cur = 0
			w.nCur = 0
		}
	}
}

// finish pads the stream to a whole nibble, then zero-fills the final
// byte, and returns the reversed byte sequence.
func (w *bitWriter) finish() []byte {
	if w.nCur > 0 {
		if pad := (4 - w.nCur%4) % 4; pad > 0 {
			w.writeBits(0, pad)
		}
	}
	if w.nCur > 0 {
		w.cur <<= uint(8 - w.nCur)
		w.out = append(w.out, reverseBits(w.cur))
		w.cur = 0
		w.nCur = 0
	}
	return w.out
}

// bitReader pulls fixed-width fields back out of a byte sequence. Reads
// past the end of the buffer yield zero bits, mirroring how the hardware
// tolerates a truncated ROM.
type bitReader struct {
	data []byte
	pos  int // bit cursor
}

func (r *bitReader) readBits(width int) int {
	var v int
	for i := 0; i < width; i++ {
		v <<= 1
		byteIdx := r.pos >> 3
		if byteIdx < len(r.data) {
			b := reverseBits(r.data[byteIdx])
			if b&(1<<(7-uint(r.pos&7))) != 0 {
				v |= 1
			}
		}
		r.pos++
	}
	return v
}

// remaining returns how many readable bits are left.
func (r *bitReader) remaining() int {
	n := len(r.data)*8 - r.pos
	if n < 0 {
		return 0
	}
	return n
}

// EncodeFrames packs frame parameters into the chip's wire format. Fields
// are emitted in hardware order: energy, then (for speech frames) repeat
// and pitch, then coefficient codes unless the frame repeats; K5..K10 only
// when voiced.
func EncodeFrames(params []FrameParameters, t *CodingTable) []byte {
	w := &bitWriter{}
	for _, p := range params {
		w.writeBits(p.EnergyCode, 4)
		if p.IsSilence() || p.IsStop() {
			continue
		}
		repeat := 0
		if p.Repeat {
			repeat = 1
		}
		w.writeBits(repeat, 1)
		w.writeBits(p.PitchCode, t.PitchBits)
		if p.Repeat {
			continue
		}
		limit := 4
		if p.Voiced() {
			limit = modelOrder
		}
		for i := 0; i < limit; i++ {
			w.writeBits(p.KCodes[i], t.KBits[i])
		}
	}
	return w.finish()
}

// DecodeFrames is the exact inverse of EncodeFrames. It stops at a stop
// frame (which is included in the result) or when the buffer runs out of
// whole frames. Repeat frames get the previous frame's coefficient codes
// copied in so the slice is self-contained.
func DecodeFrames(data []byte, t *CodingTable) []FrameParameters {
	r := &bitReader{data: data}
	var out []FrameParameters
	var prev FrameParameters
	for r.remaining() >= 4 {
		var p FrameParameters
		p.EnergyCode = r.readBits(4)
		if p.IsStop() {
			out = append(out, p)
			break
		}
		if p.IsSilence() {
			out = append(out, p)
			continue
		}
		if r.remaining() < 1+t.PitchBits {
			break
		}
		p.Repeat = r.readBits(1) == 1
		p.PitchCode = r.readBits(t.PitchBits)
		if p.Repeat {
			p.KCodes = prev.KCodes
		} else {
			limit := 4
			if p.Voiced() {
				limit = modelOrder
			}
			for i := 0; i < limit; i++ {
				p.KCodes[i] = r.readBits(t.KBits[i])
			}
		}
		prev = p
		out = append(out, p)
	}
	return out
}
