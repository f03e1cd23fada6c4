// Package stream decodes a local audio file with ffmpeg and sends it to a
// Discord voice connection as Opus frames.
package stream

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
)

const (
	channels   = 2
	sampleRate = 48000
	frameSize  = 960 // 20ms at 48kHz
)

// PCM is raw s16le stereo audio produced by an ffmpeg process.
type PCM struct {
	io.ReadCloser
	cmd *exec.Cmd
}

// OpenPCM starts ffmpeg decoding path to PCM on its stdout. The process is
// killed when ctx is cancelled.
func OpenPCM(ctx context.Context, ffmpegPath, path string) (*PCM, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-i", path,
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-loglevel", "warning",
		"pipe:1",
	)

	reader, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("command start error: %w", err)
	}

	return &PCM{ReadCloser: reader, cmd: cmd}, nil
}

// Close stops ffmpeg and reaps it.
func (p *PCM) Close() error {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.ReadCloser.Close()
	_ = p.cmd.Wait()
	return nil
}
