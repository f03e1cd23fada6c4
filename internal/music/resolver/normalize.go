package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// EBU R128 targets.
const (
	targetIntegrated = -23.0
	targetTruePeak   = -2.0
	minLRA           = 1.0
	maxLRA           = 20.0
	outputSampleRate = 48000
)

type loudnormStats struct {
	InputI       string `json:"input_i"`
	InputTP      string `json:"input_tp"`
	InputLRA     string `json:"input_lra"`
	InputThresh  string `json:"input_thresh"`
	TargetOffset string `json:"target_offset"`
}

type measurement struct {
	I, TP, LRA, Thresh, Offset float64
}

// normalize runs a two-pass loudnorm over in and writes out. The measured
// loudness range of the input is kept as the target range.
func (r *Resolver) normalize(ctx context.Context, in, out string) error {
	m, err := r.measure(ctx, in)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, r.opts.FFmpegPath,
		"-hide_banner", "-nostats", "-loglevel", "error",
		"-y",
		"-i", in,
		"-vn",
		"-af", loudnormFilter(m),
		"-ar", strconv.Itoa(outputSampleRate),
		"-c:a", "pcm_s16le",
		"-f", "matroska",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg error: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (r *Resolver) measure(ctx context.Context, in string) (*measurement, error) {
	cmd := exec.CommandContext(ctx, r.opts.FFmpegPath,
		"-hide_banner", "-nostats",
		"-i", in,
		"-vn",
		"-af", fmt.Sprintf("loudnorm=I=%.1f:TP=%.1f:print_format=json", targetIntegrated, targetTruePeak),
		"-f", "null", "-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg measure error: %w", err)
	}

	stats, err := parseLoudnormStats(stderr.Bytes())
	if err != nil {
		return nil, err
	}
	return stats.measurement(), nil
}

// parseLoudnormStats extracts the JSON block loudnorm prints at the end of
// ffmpeg's stderr.
func parseLoudnormStats(out []byte) (loudnormStats, error) {
	start := bytes.LastIndexByte(out, '{')
	end := bytes.LastIndexByte(out, '}')
	if start < 0 || end < start {
		return loudnormStats{}, errors.New("loudnorm stats not found in ffmpeg output")
	}

	var stats loudnormStats
	if err := json.Unmarshal(out[start:end+1], &stats); err != nil {
		return loudnormStats{}, fmt.Errorf("failed to decode loudnorm stats: %w", err)
	}
	return stats, nil
}

// measurement returns nil when any value is missing or not finite, as
// happens for silent input; the caller then falls back to single-pass.
func (s loudnormStats) measurement() *measurement {
	vals := make([]float64, 0, 5)
	for _, raw := range []string{s.InputI, s.InputTP, s.InputLRA, s.InputThresh, s.TargetOffset} {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil
		}
		vals = append(vals, v)
	}
	return &measurement{I: vals[0], TP: vals[1], LRA: vals[2], Thresh: vals[3], Offset: vals[4]}
}

func loudnormFilter(m *measurement) string {
	if m == nil {
		return fmt.Sprintf("loudnorm=I=%.1f:TP=%.1f", targetIntegrated, targetTruePeak)
	}
	lra := math.Min(math.Max(m.LRA, minLRA), maxLRA)
	return fmt.Sprintf(
		"loudnorm=I=%.1f:TP=%.1f:LRA=%.1f:measured_I=%.2f:measured_TP=%.2f:measured_LRA=%.2f:measured_thresh=%.2f:offset=%.2f:linear=true",
		targetIntegrated, targetTruePeak, lra, m.I, m.TP, m.LRA, m.Thresh, m.Offset,
	)
}
