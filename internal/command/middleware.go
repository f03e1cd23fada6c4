package command

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

type Middleware func(Command) Command

type wrappedCommand struct {
	Command
	wrap func(ctx interface{}) error
}

func (w *wrappedCommand) Run(ctx interface{}) error {
	if w.wrap != nil {
		return w.wrap(ctx)
	}
	return w.Command.Run(ctx)
}

func (w *wrappedCommand) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := w.Command.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

func ApplyMiddlewares(cmd Command, mws ...Middleware) Command {
	for _, mw := range mws {
		cmd = mw(cmd)
	}
	return cmd
}

// WithGuildOnly silently ignores invocations from direct messages.
func WithGuildOnly() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx interface{}) error {
				if v, ok := ctx.(*SlashInteractionContext); ok && v.Event.GuildID == "" {
					return nil
				}
				return cmd.Run(ctx)
			},
		}
	}
}

// WithCommandLogger logs every invocation after it ran.
func WithCommandLogger(log zerolog.Logger) Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx interface{}) error {
				start := time.Now()
				err := cmd.Run(ctx)

				ev := log.Info()
				if err != nil {
					ev = log.Warn().Err(err)
				}
				ev = ev.Str("command", cmd.Name()).Dur("took", time.Since(start))
				if v, ok := ctx.(*SlashInteractionContext); ok {
					ev = ev.Str("guild", v.Event.GuildID).
						Str("channel", v.Event.ChannelID).
						Str("user", v.UserID())
				}
				ev.Msg("command executed")
				return err
			},
		}
	}
}
