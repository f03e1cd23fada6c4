// Package music implements the play and skip commands. Service holds the
// rules and knows nothing about Discord; the slash adapters only translate
// its results into replies.
package music

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keshon/frisbee/internal/music/queue"
	"github.com/rs/zerolog"
)

var (
	ErrUnauthorized = errors.New("user is not allowed to do that")
	ErrTooLong      = errors.New("track is too long")
	ErrResolution   = errors.New("query could not be resolved")
)

// Authorizer answers allow-list questions. Skippers are implicitly players.
type Authorizer interface {
	CanPlay(userID string) (bool, error)
	CanSkip(userID string) (bool, error)
}

type MetadataResolver interface {
	Lookup(ctx context.Context, query string) (queue.Track, error)
}

type Skipper interface {
	Request(userID string)
}

type Options struct {
	Authz     Authorizer
	Resolver  MetadataResolver
	Queue     *queue.Queue
	Skip      Skipper
	SoftLimit time.Duration // applies to players who cannot skip
	HardLimit time.Duration // applies to everyone
	Logger    zerolog.Logger
}

type Service struct {
	authz     Authorizer
	resolver  MetadataResolver
	queue     *queue.Queue
	skip      Skipper
	softLimit time.Duration
	hardLimit time.Duration
	log       zerolog.Logger
}

func NewService(opts Options) *Service {
	return &Service{
		authz:     opts.Authz,
		resolver:  opts.Resolver,
		queue:     opts.Queue,
		skip:      opts.Skip,
		softLimit: opts.SoftLimit,
		hardLimit: opts.HardLimit,
		log:       opts.Logger,
	}
}

type PlayRequest struct {
	GuildID   string
	ChannelID string
	UserID    string
	Query     string
}

// CheckPlay reports ErrUnauthorized unless userID may queue tracks. An
// unreadable allow-list denies.
func (s *Service) CheckPlay(userID string) error {
	ok, err := s.authz.CanPlay(userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user", userID).Msg("failed to read allow-lists")
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// Play resolves req.Query and enqueues the result. Nothing is enqueued on
// any error.
func (s *Service) Play(ctx context.Context, req PlayRequest) (queue.Entry, error) {
	if err := s.CheckPlay(req.UserID); err != nil {
		return queue.Entry{}, err
	}

	track, err := s.resolver.Lookup(ctx, req.Query)
	if err != nil {
		return queue.Entry{}, fmt.Errorf("%w: %w", ErrResolution, err)
	}

	skipper, err := s.authz.CanSkip(req.UserID)
	if err != nil {
		s.log.Warn().Err(err).Str("user", req.UserID).Msg("failed to read skip list")
		skipper = false
	}
	if err := s.checkDuration(track.Duration, skipper); err != nil {
		return queue.Entry{}, err
	}

	entry := queue.NewEntry(req.GuildID, req.ChannelID, req.UserID, track)
	s.queue.Enqueue(entry)

	s.log.Info().
		Str("entry", entry.ID).
		Str("user", req.UserID).
		Str("title", track.Title).
		Dur("duration", track.Duration).
		Int("queued", s.queue.Len()).
		Msg("track queued")
	return entry, nil
}

// checkDuration rejects tracks over the hard ceiling, and over the soft one
// for users without the skip privilege. An unknown duration cannot be
// bounded and is rejected as well.
func (s *Service) checkDuration(d time.Duration, skipper bool) error {
	switch {
	case d <= 0:
		return fmt.Errorf("%w: unknown duration", ErrTooLong)
	case s.hardLimit > 0 && d > s.hardLimit:
		return ErrTooLong
	case !skipper && s.softLimit > 0 && d > s.softLimit:
		return ErrTooLong
	}
	return nil
}

// Skip asks the playback loop to end the current track.
func (s *Service) Skip(userID string) error {
	ok, err := s.authz.CanSkip(userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user", userID).Msg("failed to read skip list")
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !ok {
		return ErrUnauthorized
	}

	s.skip.Request(userID)
	s.log.Info().Str("user", userID).Msg("skip requested")
	return nil
}
