package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/frisbee/internal/music/player"
	"github.com/rs/zerolog"
	"layeh.com/gopus"
)

// StreamToDiscord encodes PCM from stream and feeds vc until the stream is
// exhausted or ctx is cancelled. A clean end of stream returns nil.
func StreamToDiscord(ctx context.Context, stream io.Reader, vc *discordgo.VoiceConnection) error {
	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return fmt.Errorf("encoder error: %w", err)
	}

	pcmBuf := make([]byte, frameSize*channels*2)
	intBuf := make([]int16, frameSize*channels)

	for {
		_, err := io.ReadFull(stream, pcmBuf)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read error: %w", err)
		}

		for i := range intBuf {
			intBuf[i] = int16(binary.LittleEndian.Uint16(pcmBuf[i*2 : i*2+2]))
		}

		opus, err := encoder.Encode(intBuf, frameSize, len(pcmBuf))
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}

		select {
		case vc.OpusSend <- opus:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Transport joins voice channels through a discordgo session.
type Transport struct {
	session    *discordgo.Session
	ffmpegPath string
	readyWait  time.Duration
	log        zerolog.Logger
}

func NewTransport(s *discordgo.Session, ffmpegPath string, log zerolog.Logger) *Transport {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Transport{
		session:    s,
		ffmpegPath: ffmpegPath,
		readyWait:  10 * time.Second,
		log:        log,
	}
}

// Connect joins channelID in guildID, muted=false and deafened=true.
func (t *Transport) Connect(ctx context.Context, guildID, channelID string) (player.Connection, error) {
	vc, err := t.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}

	if err := waitReady(ctx, vc, t.readyWait); err != nil {
		_ = vc.Disconnect()
		return nil, err
	}

	return &voiceConn{vc: vc, ffmpegPath: t.ffmpegPath, log: t.log}, nil
}

func waitReady(ctx context.Context, vc *discordgo.VoiceConnection, limit time.Duration) error {
	deadline := time.NewTimer(limit)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		vc.RLock()
		ready := vc.Ready
		vc.RUnlock()
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return errors.New("voice connection not ready")
		case <-tick.C:
		}
	}
}

type voiceConn struct {
	vc         *discordgo.VoiceConnection
	ffmpegPath string
	log        zerolog.Logger
}

func (c *voiceConn) Play(ctx context.Context, path string) error {
	pcm, err := OpenPCM(ctx, c.ffmpegPath, path)
	if err != nil {
		return err
	}
	defer pcm.Close()

	if err := c.vc.Speaking(true); err != nil {
		c.log.Debug().Err(err).Msg("failed to set speaking")
	}
	defer func() {
		if err := c.vc.Speaking(false); err != nil {
			c.log.Debug().Err(err).Msg("failed to clear speaking")
		}
	}()

	return StreamToDiscord(ctx, pcm, c.vc)
}

func (c *voiceConn) Disconnect() error {
	return c.vc.Disconnect()
}
