package music

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/frisbee/internal/command"
)

type SkipCommand struct {
	Service *Service
}

func (c *SkipCommand) Name() string        { return "skip" }
func (c *SkipCommand) Description() string { return "Skip the track that is playing" }

func (c *SkipCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *SkipCommand) Run(ctx interface{}) error {
	slash, ok := ctx.(*command.SlashInteractionContext)
	if !ok {
		return fmt.Errorf("wrong context type")
	}

	if err := c.Service.Skip(slash.UserID()); err != nil {
		return respond(slash.Session, slash.Event, replyFor(err))
	}
	return respond(slash.Session, slash.Event, replySkipping)
}
