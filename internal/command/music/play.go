package music

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/frisbee/internal/command"
)

const lookupTimeout = 2 * time.Minute

type PlayCommand struct {
	Service *Service
}

func (c *PlayCommand) Name() string        { return "play" }
func (c *PlayCommand) Description() string { return "Queue a track from a link or a search query" }

func (c *PlayCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "Link or search terms",
				Required:    true,
			},
		},
	}
}

func (c *PlayCommand) Run(ctx interface{}) error {
	slash, ok := ctx.(*command.SlashInteractionContext)
	if !ok {
		return fmt.Errorf("wrong context type")
	}

	session := slash.Session
	event := slash.Event
	userID := slash.UserID()

	if err := c.Service.CheckPlay(userID); err != nil {
		return respond(session, event, replyFor(err))
	}

	if err := respond(session, event, replyQuerying); err != nil {
		return fmt.Errorf("failed to acknowledge play: %w", err)
	}

	lookupCtx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	entry, err := c.Service.Play(lookupCtx, PlayRequest{
		GuildID:   event.GuildID,
		ChannelID: event.ChannelID,
		UserID:    userID,
		Query:     slash.StringOption("query"),
	})
	if err != nil {
		if editErr := editResponse(session, event, replyFor(err)); editErr != nil {
			return fmt.Errorf("failed to edit response: %w", editErr)
		}
		return nil
	}

	return editResponse(session, event, replyAdded(entry))
}
