package discord

import (
	"errors"

	"github.com/bwmarrin/discordgo"
)

// UserVoiceChannel returns the voice channel userID sits in within guildID,
// or "" when they are not connected.
func (b *Bot) UserVoiceChannel(guildID, userID string) (string, error) {
	vs, err := b.dg.State.VoiceState(guildID, userID)
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return vs.ChannelID, nil
}
