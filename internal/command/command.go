// Package command holds the slash command contract, a registry and the
// middlewares wrapped around every command.
package command

import (
	"github.com/bwmarrin/discordgo"
)

type Command interface {
	Name() string
	Description() string
	Run(ctx interface{}) error
}

// SlashProvider is implemented by commands registered as slash commands.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// SlashInteractionContext is what a slash command receives at runtime.
type SlashInteractionContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
}

// UserID returns the invoking user, inside or outside a guild.
func (c *SlashInteractionContext) UserID() string {
	return InteractionUserID(c.Event)
}

// StringOption returns the named string option, or "".
func (c *SlashInteractionContext) StringOption(name string) string {
	for _, opt := range c.Event.ApplicationCommandData().Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue()
		}
	}
	return ""
}

func InteractionUserID(i *discordgo.InteractionCreate) string {
	if i == nil {
		return ""
	}
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
