// Package status keeps a single "queued" message in the music text channel
// in step with the queue. It is the only owner of that message's identity.
package status

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/frisbee/internal/music/queue"
	"github.com/keshon/frisbee/pkg/retrylimit"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const DefaultViewSize = 5

// Messenger is the subset of the chat API the reconciler needs. Messages
// are expected to be sent without pinging anyone.
type Messenger interface {
	SendEmbeds(ctx context.Context, channelID string, embeds []*discordgo.MessageEmbed) (string, error)
	EditEmbeds(ctx context.Context, channelID, messageID string, embeds []*discordgo.MessageEmbed) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	LatestMessageID(ctx context.Context, channelID string) (string, error)
}

type Options struct {
	Queue     *queue.Queue
	Messenger Messenger
	ChannelID string
	ViewSize  int
	Limiter   *retrylimit.AdaptiveLimiter // defaults to a limiter tuned for Discord message routes
	Retry     *retrylimit.RetryConfig     // defaults to retrylimit.DefaultRetryConfig
	Logger    zerolog.Logger
}

type Reconciler struct {
	queue     *queue.Queue
	messenger Messenger
	channelID string
	viewSize  int
	limiter   *retrylimit.AdaptiveLimiter
	retry     retrylimit.RetryConfig
	log       zerolog.Logger

	mu        sync.Mutex
	messageID string
}

func New(opts Options) *Reconciler {
	r := &Reconciler{
		queue:     opts.Queue,
		messenger: opts.Messenger,
		channelID: opts.ChannelID,
		viewSize:  opts.ViewSize,
		limiter:   opts.Limiter,
		log:       opts.Logger,
	}
	if r.viewSize <= 0 {
		r.viewSize = DefaultViewSize
	}
	if r.limiter == nil {
		r.limiter = retrylimit.NewAdaptiveLimiter(rate.Limit(2), rate.Limit(1), rate.Limit(5), rate.Limit(0.5), 0.5)
	}
	if opts.Retry != nil {
		r.retry = *opts.Retry
	} else {
		r.retry = retrylimit.DefaultRetryConfig()
	}
	r.retry.OnRetry = func(attempt int, err error) {
		r.log.Debug().Err(err).Int("attempt", attempt).Msg("retrying status call")
	}
	return r
}

// MessageID returns the tracked status message, or "" when none is shown.
func (r *Reconciler) MessageID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messageID
}

// Run reconciles once per queue change until ctx is cancelled. Bursts of
// changes coalesce into a single pass.
func (r *Reconciler) Run(ctx context.Context) error {
	r.log.Info().Str("channel", r.channelID).Msg("status reconciler started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.queue.Changed():
			if err := r.Reconcile(ctx); err != nil && ctx.Err() == nil {
				r.log.Warn().Err(err).Msg("status reconciliation failed")
			}
		}
	}
}

// Reconcile brings the channel in line with the current head of the queue.
// The message is edited in place while it is still the newest one in the
// channel; otherwise it is reposted at the bottom.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	view := r.queue.Peek(r.viewSize)

	if len(view) == 0 {
		if r.messageID == "" {
			return nil
		}
		if err := r.delete(ctx, r.messageID); err != nil {
			r.log.Debug().Err(err).Str("message", r.messageID).Msg("failed to delete status message")
		}
		r.messageID = ""
		return nil
	}

	embeds := BuildView(view)

	if r.messageID == "" {
		return r.send(ctx, embeds)
	}

	latest, err := r.latest(ctx)
	if err == nil && latest == r.messageID {
		err = r.call(ctx, func() error {
			return r.messenger.EditEmbeds(ctx, r.channelID, r.messageID, embeds)
		})
		if err == nil {
			return nil
		}
		r.log.Debug().Err(err).Msg("edit failed, reposting status message")
	}

	if err := r.delete(ctx, r.messageID); err != nil {
		r.log.Debug().Err(err).Str("message", r.messageID).Msg("failed to delete status message")
	}
	r.messageID = ""
	return r.send(ctx, embeds)
}

func (r *Reconciler) send(ctx context.Context, embeds []*discordgo.MessageEmbed) error {
	var id string
	err := r.call(ctx, func() error {
		var err error
		id, err = r.messenger.SendEmbeds(ctx, r.channelID, embeds)
		return err
	})
	if err != nil {
		return err
	}
	r.messageID = id
	return nil
}

func (r *Reconciler) delete(ctx context.Context, messageID string) error {
	return r.call(ctx, func() error {
		return r.messenger.DeleteMessage(ctx, r.channelID, messageID)
	})
}

func (r *Reconciler) latest(ctx context.Context) (string, error) {
	var id string
	err := r.call(ctx, func() error {
		var err error
		id, err = r.messenger.LatestMessageID(ctx, r.channelID)
		return err
	})
	return id, err
}

func (r *Reconciler) call(ctx context.Context, fn func() error) error {
	return retrylimit.Do(ctx, r.limiter, r.retry, fn)
}
