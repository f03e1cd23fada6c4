package music

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/frisbee/internal/music/queue"
	"github.com/keshon/frisbee/pkg/util"
)

const (
	replyQuerying     = "Querying..."
	replyTooLong      = "Stop griefing me (too long)."
	replyUnauthorized = "I'm not listening, lil' bro."
	replySkipping     = "Attempting to skip this piece of audio."
	replyNotFound     = "Couldn't find anything for that query."
	replyFailed       = "Something went wrong, try again later."
)

func replyAdded(e queue.Entry) string {
	return fmt.Sprintf("Added \"%s\" with duration %s.", e.Track.Title, util.FormatDuration(e.Track.Duration))
}

// replyFor maps a Service error to the text shown to the user.
func replyFor(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return replyUnauthorized
	case errors.Is(err, ErrTooLong):
		return replyTooLong
	case errors.Is(err, ErrResolution):
		return replyNotFound
	default:
		return replyFailed
	}
}

const ephemeralSilent = discordgo.MessageFlagsEphemeral | discordgo.MessageFlagsSuppressNotifications

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   ephemeralSilent,
		},
	})
}

func editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	return err
}
