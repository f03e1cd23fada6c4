// Package discord connects the music core to a Discord gateway session:
// it dispatches slash commands, locates the status channel, answers voice
// state lookups and performs the message calls of the status reconciler.
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/frisbee/internal/command"
	"github.com/rs/zerolog"
)

var ErrChannelNotFound = errors.New("status channel not found")

type Options struct {
	Token             string
	QueueChannelName  string
	InitSlashCommands bool
	CommandCacheDir   string // where slash command hashes are remembered between runs
	Registry          *command.Registry
	Logger            zerolog.Logger
}

// Bot is a Discord bot
type Bot struct {
	dg       *discordgo.Session
	registry *command.Registry
	cache    *commandCache
	opts     Options
	log      zerolog.Logger

	mu            sync.RWMutex
	statusChannel string
	statusFound   chan struct{}
	foundOnce     sync.Once
}

func New(opts Options) (*Bot, error) {
	dg, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	b := &Bot{
		dg:          dg,
		registry:    opts.Registry,
		cache:       newCommandCache(opts.CommandCacheDir),
		opts:        opts,
		log:         opts.Logger,
		statusFound: make(chan struct{}),
	}

	b.configureIntents()
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onInteractionCreate)
	return b, nil
}

// Session exposes the underlying session for the voice transport.
func (b *Bot) Session() *discordgo.Session {
	return b.dg
}

func (b *Bot) Open() error {
	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return b.dg.Close()
}

// configureIntents configures the Discord intents
func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
}

// StatusChannel waits up to wait for a guild carrying the configured text
// channel to arrive and returns that channel's ID.
func (b *Bot) StatusChannel(ctx context.Context, wait time.Duration) (string, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-b.statusFound:
		b.mu.RLock()
		defer b.mu.RUnlock()
		return b.statusChannel, nil
	case <-timer.C:
		return "", fmt.Errorf("%w: no text channel named %q after %s", ErrChannelNotFound, b.opts.QueueChannelName, wait)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// onReady is called when the bot is ready
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info().
		Str("user", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("discord session ready")
}

// onGuildCreate is called when a guild becomes available
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	b.log.Info().Str("guild", g.ID).Str("name", g.Name).Msg("guild available")

	if ch := findTextChannel(g.Channels, b.opts.QueueChannelName); ch != nil {
		b.foundOnce.Do(func() {
			b.mu.Lock()
			b.statusChannel = ch.ID
			b.mu.Unlock()
			close(b.statusFound)
			b.log.Info().Str("guild", g.ID).Str("channel", ch.ID).Msg("status channel found")
		})
	}

	if !b.opts.InitSlashCommands {
		b.log.Debug().Str("guild", g.ID).Msg("registering slash commands skipped")
		return
	}
	if err := b.registerCommands(g.ID); err != nil {
		b.log.Error().Err(err).Str("guild", g.ID).Msg("failed to register slash commands")
	}
}

func findTextChannel(channels []*discordgo.Channel, name string) *discordgo.Channel {
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && strings.EqualFold(ch.Name, name) {
			return ch
		}
	}
	return nil
}

// onInteractionCreate is called when an interaction is created
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	if data.CommandType != discordgo.ChatApplicationCommand {
		return
	}

	cmd, ok := b.registry.Get(data.Name)
	if !ok {
		b.log.Warn().Str("command", data.Name).Msg("unknown command")
		return
	}

	ctx := &command.SlashInteractionContext{
		Session: s,
		Event:   i,
	}
	if err := cmd.Run(ctx); err != nil {
		b.log.Error().Err(err).Str("command", data.Name).Msg("error running slash command")
	}
}
