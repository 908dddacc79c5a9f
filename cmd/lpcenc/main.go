package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/retro-voice-lab/internal/logging"
	"github.com/retro-voice-lab/internal/lpc"
	"github.com/retro-voice-lab/internal/sidecar"
	"github.com/retro-voice-lab/internal/wav"
)

type options struct {
	cfg        lpc.EncoderConfig
	hexOut     bool
	cArrayName string
	outDir     string
	writeSide  bool
}

func main() {
	// Load a local .env if present so LOG_LEVEL and friends can live
	// next to the project. Missing file is fine.
	_ = godotenv.Load()
	sugar := logging.Init()
	defer func() { _ = logging.Sync() }()

	var (
		inPath   = flag.String("in", "", "input WAV file")
		outPath  = flag.String("out", "", "output path (default: input with .lpc extension)")
		chip     = flag.String("chip", "tms5220", "chip variant: tms5220, tms5100 or tms5200")
		watchDir = flag.String("watch", "", "watch a directory and encode WAV files as they appear")
		outDir   = flag.String("out-dir", "", "output directory for watch mode (default: alongside inputs)")

		frameRate  = flag.Float64("framerate", 40, "analysis frames per second")
		windowMult = flag.Float64("window-mult", 2, "analysis window width as a multiple of the hop")

		median      = flag.Int("median", 0, "median filter width in samples (0 = off)")
		gate        = flag.Float64("gate", 0, "noise gate RMS threshold (0 = off)")
		noNormalize = flag.Bool("no-normalize", false, "disable peak normalization")
		highPass    = flag.Float64("highpass", 60, "high-pass cutoff in Hz (0 = off)")
		lowPass     = flag.Float64("lowpass", 0, "low-pass cutoff in Hz (0 = off)")
		noEmphasis  = flag.Bool("no-preemphasis", false, "disable pre-emphasis")
		emphAlpha   = flag.Float64("preemphasis-alpha", 0.9375, "pre-emphasis coefficient")

		detection   = flag.String("detection", "energy", "voicing detection method: energy or k1")
		k1Threshold = flag.Float64("k1-threshold", 0.18, "k1 voicing threshold for -detection=k1")

		minPitch      = flag.Float64("min-pitch", 50, "lowest fundamental considered, Hz")
		maxPitch      = flag.Float64("max-pitch", 500, "highest fundamental considered, Hz")
		pitchOffset   = flag.Float64("pitch-offset", 0, "samples added to every estimated period")
		pitchOverride = flag.Float64("pitch-override", 0, "fixed fundamental in Hz, bypassing estimation (0 = off)")
		subMultiple   = flag.Float64("submultiple", 0.9, "octave-correction correlation ratio (0 = off)")

		minEnergy    = flag.Float64("min-energy", 0.01, "voicing energy threshold")
		energyRatio  = flag.Float64("energy-ratio", 1.2, "plain/emphasized energy ratio threshold")
		requireRatio = flag.Bool("require-energy-ratio", false, "make the energy-ratio criterion gate voicing")
		pitchQuality = flag.Float64("pitch-quality", 0.25, "pitch quality threshold")

		silenceRMS   = flag.Float64("silence-rms", 0, "quantized RMS below which a frame becomes a rest frame")
		voicedTgt    = flag.Int("voiced-target", 13, "energy table slot the loudest voiced frame lands on")
		unvoicedTgt  = flag.Int("unvoiced-target", 11, "energy table slot the loudest unvoiced frame lands on")
		unvoicedMult = flag.Float64("unvoiced-mult", 1.0, "post-normalization unvoiced RMS multiplier")

		trimSilence = flag.Bool("trim-silence", false, "drop leading and trailing rest frames")
		noStop      = flag.Bool("no-stop-frame", false, "do not append the terminal stop frame")
		startSample = flag.Int("start", 0, "first sample to encode")
		endSample   = flag.Int("end", 0, "sample to stop at (0 = end of input)")

		hexOut = flag.Bool("hex", false, "write comma-separated hex bytes instead of binary")
		cArray = flag.String("c-array", "", "write a C array definition with this identifier")
		noSide = flag.Bool("no-sidecar", false, "skip the sidecar JSON next to the output")
	)
	flag.Parse()

	variant, err := lpc.ParseVariant(*chip)
	if err != nil {
		sugar.Fatalf("bad -chip: %v", err)
	}

	cfg := lpc.DefaultEncoderConfig(variant)
	cfg.FrameRate = *frameRate
	cfg.WindowMultiplier = *windowMult
	cfg.MedianWidth = *median
	cfg.GateThreshold = *gate
	cfg.PeakNormalize = !*noNormalize
	cfg.HighPassHz = *highPass
	cfg.LowPassHz = *lowPass
	cfg.PreEmphasis = !*noEmphasis
	cfg.PreEmphasisAlpha = *emphAlpha
	switch strings.ToLower(*detection) {
	case "energy":
		cfg.Detection = lpc.DetectEnergy
	case "k1":
		cfg.Detection = lpc.DetectK1
	default:
		sugar.Fatalf("bad -detection %q: want energy or k1", *detection)
	}
	cfg.UnvoicedK1Threshold = *k1Threshold
	cfg.Pitch.MinHz = *minPitch
	cfg.Pitch.MaxHz = *maxPitch
	cfg.Pitch.OffsetSamples = *pitchOffset
	cfg.Pitch.OverrideHz = *pitchOverride
	cfg.Pitch.SubMultipleThreshold = *subMultiple
	cfg.Pitch.QualityThreshold = *pitchQuality
	cfg.Classify.MinEnergy = *minEnergy
	cfg.Classify.EnergyRatioThreshold = *energyRatio
	cfg.Classify.RequireEnergyRatio = *requireRatio
	cfg.Classify.PitchQualityThreshold = *pitchQuality
	cfg.Normalizer.SilenceRMS = *silenceRMS
	cfg.Normalizer.VoicedTargetIndex = *voicedTgt
	cfg.Normalizer.UnvoicedTargetIndex = *unvoicedTgt
	cfg.Normalizer.UnvoicedMultiplier = *unvoicedMult
	cfg.TrimSilence = *trimSilence
	cfg.IncludeStopFrame = !*noStop
	cfg.StartSample = *startSample
	cfg.EndSample = *endSample

	opts := options{
		cfg:        cfg,
		hexOut:     *hexOut,
		cArrayName: *cArray,
		outDir:     *outDir,
		writeSide:  !*noSide,
	}

	if *watchDir != "" {
		runWatch(*watchDir, opts)
		return
	}

	if *inPath == "" {
		sugar.Fatal("either -in or -watch is required")
	}
	out := *outPath
	if out == "" {
		out = defaultOutPath(*inPath, opts)
	}
	if err := encodeFile(*inPath, out, opts); err != nil {
		sugar.Fatalf("encode failed: %v", err)
	}
}

func defaultOutPath(in string, opts options) string {
	ext := ".lpc"
	if opts.cArrayName != "" {
		ext = ".h"
	} else if opts.hexOut {
		ext = ".hex"
	}
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)) + ext
	if opts.outDir != "" {
		return filepath.Join(opts.outDir, base)
	}
	return filepath.Join(filepath.Dir(in), base)
}

// encodeFile runs one WAV through the pipeline and writes the bitstream,
// its rendering, and the sidecar metadata.
func encodeFile(inPath, outPath string, opts options) error {
	corrID := uuid.NewString()
	start := time.Now()

	dec, err := wav.ReadFile(inPath, lpc.SampleRate)
	if err != nil {
		return err
	}
	logging.Infow("input loaded", "path", inPath, "samples", len(dec.Samples),
		"source_rate", dec.SourceRate, "source_channels", dec.SourceCh, "correlation_id", corrID)

	frames, err := lpc.EncodeToFrames(dec.Samples, opts.cfg)
	if err != nil {
		return err
	}
	data := lpc.EncodeFrames(frames, lpc.Table(opts.cfg.Variant))

	var payload []byte
	switch {
	case opts.cArrayName != "":
		payload = []byte(lpc.FormatCArray(opts.cArrayName, data))
	case opts.hexOut:
		payload = []byte(lpc.FormatHex(data) + "\n")
	default:
		payload = data
	}
	if err := sidecar.SaveFileAtomic(outPath, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	if opts.writeSide {
		rec := sidecar.Record{
			CorrelationID:   corrID,
			InputPath:       inPath,
			OutputPath:      outPath,
			Variant:         opts.cfg.Variant.String(),
			FrameCount:      len(frames),
			ByteCount:       len(data),
			DurationSeconds: float64(len(dec.Samples)) / float64(lpc.SampleRate),
			Settings: map[string]any{
				"frame_rate":        opts.cfg.FrameRate,
				"window_multiplier": opts.cfg.WindowMultiplier,
				"pre_emphasis":      opts.cfg.PreEmphasis,
				"detection":         int(opts.cfg.Detection),
				"trim_silence":      opts.cfg.TrimSilence,
			},
		}
		sidePath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".json"
		if err := sidecar.Write(sidePath, rec); err != nil {
			logging.Warnw("sidecar write failed", "path", sidePath, "err", err)
		}
	}

	logging.Infow("encoded", "in", inPath, "out", outPath, "frames", len(frames),
		"bytes", len(data), "elapsed", time.Since(start).String(), "correlation_id", corrID)
	return nil
}

// runWatch encodes WAV files as they land in dir, until interrupted.
func runWatch(dir string, opts options) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Fatalw("fsnotify watcher failed", "err", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		logging.Fatalw("cannot watch directory", "dir", dir, "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	// Optional retention cleanup of sidecar/output pairs, driven by env
	// the same way the rest of the operational tuning is.
	if hours := envInt("SIDECAR_RETENTION_HOURS", 0); hours > 0 {
		outDir := opts.outDir
		if outDir == "" {
			outDir = dir
		}
		wg.Add(1)
		sidecar.StartCleaner(ctx, &wg, outDir,
			time.Duration(hours)*time.Hour, 10*time.Minute, envInt("SIDECAR_MAX_FILES", 0))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	logging.Infow("watching for WAV files", "dir", dir)
	for {
		select {
		case <-stop:
			logging.Infow("shutdown signal received")
			cancel()
			wg.Wait()
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				cancel()
				wg.Wait()
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".wav") {
				continue
			}
			// Give the producer a moment to finish writing.
			time.Sleep(200 * time.Millisecond)
			out := defaultOutPath(ev.Name, opts)
			if err := encodeFile(ev.Name, out, opts); err != nil {
				logging.Errorw("encode failed", "path", ev.Name, "err", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				cancel()
				wg.Wait()
				return
			}
			logging.Warnw("watcher error", "err", err)
		}
	}
}

// envInt parses an integer env var, warning and falling back on garbage.
func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logging.Warnw("invalid env value; using default", "name", name, "value", v, "default", def)
		return def
	}
	return n
}
