// Package sidecar writes and maintains the JSON metadata files the encoder
// drops next to its outputs, so downstream asset pipelines can trace which
// settings produced which bitstream.
package sidecar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/retro-voice-lab/internal/logging"
)

// Record is the metadata written alongside one encoded bitstream.
type Record struct {
	CorrelationID   string         `json:"correlation_id"`
	InputPath       string         `json:"input_path"`
	OutputPath      string         `json:"output_path"`
	Variant         string         `json:"variant"`
	FrameCount      int            `json:"frame_count"`
	ByteCount       int            `json:"byte_count"`
	DurationSeconds float64        `json:"duration_seconds"`
	Settings        map[string]any `json:"settings,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Write stores the record as JSON next to the output it describes, using
// an atomic tmp+rename so a watcher never sees a partial file.
func Write(path string, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sidecar: %w", err)
	}
	return SaveFileAtomic(path, b, 0o644)
}

// SaveFileAtomic writes data to path atomically by writing to a tmp file in
// the same directory, fsyncing, closing, and renaming into place.
// mode is the file permission bits (e.g., 0o644).
func SaveFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	// Ensure directory exists
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	// sync to disk
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// rename into place
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// StartCleaner starts a background goroutine that periodically scans dir
// for sidecar JSON files and their paired outputs, removing entries older
// than retention and enforcing maxFiles. Caller must call wg.Add(1) before
// calling this function; the goroutine will call wg.Done() on exit.
func StartCleaner(ctx context.Context, wg *sync.WaitGroup, dir string, retention, interval time.Duration, maxFiles int) {
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cleanOnce(dir, retention, maxFiles)
			}
		}
	}()
}

type pairInfo struct {
	jsonPath string
	outPath  string
	mod      time.Time
}

func cleanOnce(dir string, retention time.Duration, maxFiles int) {
	files, err := os.ReadDir(dir)
	if err != nil {
		logging.Debugw("sidecar: cleanup readDir failed", "err", err)
		return
	}
	var pairs []pairInfo
	for _, fi := range files {
		name := fi.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		jsonPath := filepath.Join(dir, name)
		b, err := os.ReadFile(jsonPath)
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil {
			continue
		}
		st, err := os.Stat(jsonPath)
		if err != nil {
			continue
		}
		pairs = append(pairs, pairInfo{jsonPath: jsonPath, outPath: rec.OutputPath, mod: st.ModTime()})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].mod.Before(pairs[j].mod) })

	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, p := range pairs {
		if p.mod.Before(cutoff) {
			removePair(p)
			removed++
		}
	}
	if maxFiles > 0 {
		left := len(pairs) - removed
		if left > maxFiles {
			toRemove := left - maxFiles
			count := 0
			for _, p := range pairs {
				if count >= toRemove {
					break
				}
				if _, err := os.Stat(p.jsonPath); err == nil {
					removePair(p)
					count++
				}
			}
		}
	}
}

func removePair(p pairInfo) {
	_ = os.Remove(p.jsonPath)
	if p.outPath != "" {
		_ = os.Remove(p.outPath)
	}
}
