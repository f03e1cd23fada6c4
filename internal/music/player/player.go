// Package player runs the playback loop: the only consumer of the track
// queue. It plays one entry at a time and never retries a failed one.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/keshon/frisbee/internal/music/queue"
	"github.com/keshon/frisbee/pkg/jobmgr"
	"github.com/rs/zerolog"
)

type State string

const (
	StateIdle          State = "Idle"
	StateResolving     State = "Resolving destination"
	StateFetching      State = "Fetching audio"
	StatePlaying       State = "Playing"
	StateDisconnecting State = "Disconnecting"
)

var (
	ErrNoDestination    = errors.New("requester is not in a voice channel")
	ErrRetrievalFailure = errors.New("audio retrieval failed")
	ErrTransport        = errors.New("voice transport failed")
)

// Gateway reports which voice channel a user currently sits in. An empty
// channel ID means none.
type Gateway interface {
	UserVoiceChannel(guildID, userID string) (string, error)
}

// Retriever downloads and normalizes audio, returning the playable file.
type Retriever interface {
	Retrieve(ctx context.Context, url string) (string, error)
}

type Transport interface {
	Connect(ctx context.Context, guildID, channelID string) (Connection, error)
}

// Connection is a live voice session. Play blocks until the file is
// exhausted or ctx is cancelled.
type Connection interface {
	Play(ctx context.Context, path string) error
	Disconnect() error
}

// Notifier tells a requester their entry was dropped.
type Notifier interface {
	NotifyDropped(e queue.Entry, reason error) error
}

type Options struct {
	Queue     *queue.Queue
	Skip      *SkipSignal
	Gateway   Gateway
	Retriever Retriever
	Transport Transport
	Notifier  Notifier // optional
	Logger    zerolog.Logger
}

type Player struct {
	mu      sync.Mutex
	state   State
	current *queue.Entry

	queue     *queue.Queue
	skip      *SkipSignal
	gateway   Gateway
	retriever Retriever
	transport Transport
	notifier  Notifier
	jobs      *jobmgr.Manager
	log       zerolog.Logger
}

func New(opts Options) *Player {
	p := &Player{
		state:     StateIdle,
		queue:     opts.Queue,
		skip:      opts.Skip,
		gateway:   opts.Gateway,
		retriever: opts.Retriever,
		transport: opts.Transport,
		notifier:  opts.Notifier,
		log:       opts.Logger,
	}
	p.jobs = jobmgr.NewManager(func(msg string) {
		p.log.Debug().Str("job", msg).Msg("retrieval job")
	})
	return p
}

// State returns the loop's current state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns the entry being handled, if any.
func (p *Player) Current() (queue.Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return queue.Entry{}, false
	}
	return *p.current, true
}

// Run consumes the queue until ctx is cancelled. A failing entry is logged,
// reported to its requester and dropped; the loop always moves on.
func (p *Player) Run(ctx context.Context) error {
	p.log.Info().Msg("playback loop started")
	defer p.log.Info().Msg("playback loop stopped")

	for {
		p.setState(StateIdle, nil)

		entry, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := p.play(ctx, entry); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.drop(entry, err)
		}
	}
}

func (p *Player) play(ctx context.Context, e queue.Entry) error {
	log := p.log.With().Str("entry", e.ID).Str("title", e.Track.Title).Logger()

	p.setState(StateResolving, &e)
	channelID, err := p.gateway.UserVoiceChannel(e.GuildID, e.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoDestination, err)
	}
	if channelID == "" {
		return ErrNoDestination
	}

	p.setState(StateFetching, &e)
	path, err := p.fetch(ctx, e)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRetrievalFailure, err)
	}

	p.setState(StatePlaying, &e)
	conn, err := p.transport.Connect(ctx, e.GuildID, channelID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	log.Info().Str("channel", channelID).Dur("duration", e.Track.Duration).Msg("playing")

	playCtx, stop := context.WithCancel(ctx)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		if err := conn.Play(playCtx, path); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("stream ended with error")
		}
	}()

	outcome, skipper := p.skip.AwaitSkipOrTimeout(ctx, e.Track.Duration, finished)
	log.Info().Stringer("outcome", outcome).Str("skipped_by", skipper).Msg("playback window closed")

	p.setState(StateDisconnecting, &e)
	stop()
	<-finished
	if err := conn.Disconnect(); err != nil {
		log.Warn().Err(err).Msg("failed to disconnect voice")
	}
	return nil
}

// fetch runs retrieval as a background job and waits for its result.
func (p *Player) fetch(ctx context.Context, e queue.Entry) (string, error) {
	var path string
	job, err := p.jobs.StartAsync(ctx, "retrieve:"+e.ID, func(jctx context.Context) error {
		var rerr error
		path, rerr = p.retriever.Retrieve(jctx, e.Track.URL)
		return rerr
	})
	if err != nil {
		return "", err
	}
	if err := job.Wait(ctx); err != nil {
		return "", err
	}
	return path, nil
}

func (p *Player) drop(e queue.Entry, reason error) {
	p.log.Warn().Err(reason).
		Str("entry", e.ID).
		Str("user", e.UserID).
		Str("title", e.Track.Title).
		Msg("dropped queue entry")

	if p.notifier == nil {
		return
	}
	if err := p.notifier.NotifyDropped(e, reason); err != nil {
		p.log.Warn().Err(err).Str("entry", e.ID).Msg("failed to notify requester")
	}
}

func (p *Player) setState(s State, e *queue.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
	p.current = e
}
