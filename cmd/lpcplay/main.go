package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/joho/godotenv"

	"github.com/retro-voice-lab/internal/logging"
	"github.com/retro-voice-lab/internal/lpc"
	"github.com/retro-voice-lab/internal/wav"
)

func main() {
	_ = godotenv.Load()
	sugar := logging.Init()
	defer func() { _ = logging.Sync() }()

	var (
		inPath    = flag.String("in", "", "input bitstream (binary, or hex text with 0x prefixes)")
		chip      = flag.String("chip", "tms5220", "chip variant: tms5220, tms5100 or tms5200")
		outPath   = flag.String("out", "", "write decoded PCM to this WAV file")
		play      = flag.Bool("play", false, "play decoded audio on the default output device")
		frameRate = flag.Float64("framerate", 40, "frames per second the stream was encoded at")
		noInterp  = flag.Bool("no-interp", false, "disable per-sample parameter interpolation")
		noRC      = flag.Bool("no-rc", false, "disable the output low-pass emulating the analog stage")
		offsets   = flag.Bool("offsets", false, "print the sample offset of every decoded frame")
	)
	flag.Parse()

	if *inPath == "" {
		sugar.Fatal("-in is required")
	}
	if *outPath == "" && !*play && !*offsets {
		sugar.Fatal("nothing to do: pass -out, -play or -offsets")
	}
	variant, err := lpc.ParseVariant(*chip)
	if err != nil {
		sugar.Fatalf("bad -chip: %v", err)
	}

	data, err := readBitstream(*inPath)
	if err != nil {
		sugar.Fatalf("read bitstream: %v", err)
	}

	opts := lpc.DefaultSynthOptions()
	opts.Interpolate = !*noInterp
	opts.RCFilter = !*noRC
	if *frameRate > 0 {
		opts.SamplesPerFrame = int(math.Round(float64(lpc.SampleRate) / *frameRate))
	}

	pcm, frameOffsets := lpc.Synthesize(data, variant, opts)
	logging.Infow("decoded", "in", *inPath, "bytes", len(data),
		"frames", len(frameOffsets), "samples", len(pcm),
		"seconds", float64(len(pcm))/float64(lpc.SampleRate))

	if *offsets {
		for i, off := range frameOffsets {
			fmt.Printf("frame %3d at sample %d\n", i, off)
		}
	}

	if *outPath != "" {
		if err := wav.WriteFile(*outPath, pcm, lpc.SampleRate); err != nil {
			sugar.Fatalf("write wav: %v", err)
		}
		logging.Infow("wav written", "path", *outPath)
	}

	if *play {
		if err := playPCM(pcm); err != nil {
			sugar.Fatalf("playback: %v", err)
		}
	}
}

// readBitstream loads either raw bytes or the hex text rendering the
// encoder produces for firmware embedding.
func readBitstream(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(raw))
	if !strings.Contains(text, "0x") && !strings.Contains(text, "0X") {
		return raw, nil
	}
	var out []byte
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\r' || r == '\t'
	}) {
		tok = strings.TrimSuffix(strings.TrimSpace(tok), ",")
		if !strings.HasPrefix(strings.ToLower(tok), "0x") {
			continue
		}
		v, err := strconv.ParseUint(tok[2:], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("bad hex token %q: %w", tok, err)
		}
		out = append(out, byte(v))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no hex bytes found in %s", path)
	}
	return out, nil
}

// playPCM renders the samples through the default audio device and blocks
// until playback completes.
func playPCM(pcm []float64) error {
	op := &oto.NewContextOptions{
		SampleRate:   lpc.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return err
	}
	<-ready

	var buf bytes.Buffer
	for _, s := range pcm {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		_ = binary.Write(&buf, binary.LittleEndian, int16(math.Round(s*32767.0)))
	}

	p := ctx.NewPlayer(bytes.NewReader(buf.Bytes()))
	p.Play()
	for p.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	return p.Close()
}
