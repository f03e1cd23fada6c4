package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/frisbee/internal/music/player"
	"github.com/keshon/frisbee/internal/music/queue"
)

// restError exposes the HTTP status of a discordgo REST failure so the
// retry helpers can tell throttling apart from client errors.
type restError struct {
	err *discordgo.RESTError
}

func (e *restError) Error() string { return e.err.Error() }
func (e *restError) Unwrap() error { return e.err }

func (e *restError) StatusCode() int {
	if e.err.Response == nil {
		return 0
	}
	return e.err.Response.StatusCode
}

func wrapREST(err error) error {
	var re *discordgo.RESTError
	if errors.As(err, &re) {
		return &restError{err: re}
	}
	return err
}

// SendEmbeds posts embeds without notifying anyone and returns the new
// message ID.
func (b *Bot) SendEmbeds(ctx context.Context, channelID string, embeds []*discordgo.MessageEmbed) (string, error) {
	msg, err := b.dg.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: embeds,
		Flags:  discordgo.MessageFlagsSuppressNotifications,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapREST(err)
	}
	return msg.ID, nil
}

func (b *Bot) EditEmbeds(ctx context.Context, channelID, messageID string, embeds []*discordgo.MessageEmbed) error {
	edit := discordgo.NewMessageEdit(channelID, messageID).SetEmbeds(embeds)
	_, err := b.dg.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return wrapREST(err)
}

func (b *Bot) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return wrapREST(b.dg.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

// LatestMessageID returns the newest message in channelID, or "" for an
// empty channel.
func (b *Bot) LatestMessageID(ctx context.Context, channelID string) (string, error) {
	msgs, err := b.dg.ChannelMessages(channelID, 1, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapREST(err)
	}
	if len(msgs) == 0 {
		return "", nil
	}
	return msgs[0].ID, nil
}

// NotifyDropped tells the requester, in the channel they asked from, that
// their track will not be played.
func (b *Bot) NotifyDropped(e queue.Entry, reason error) error {
	if e.ChannelID == "" {
		return nil
	}
	_, err := b.dg.ChannelMessageSendComplex(e.ChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s> couldn't play \"%s\": %s.", e.UserID, e.Track.Title, dropReason(reason)),
		Flags:   discordgo.MessageFlagsSuppressNotifications,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: []string{e.UserID},
		},
	})
	return wrapREST(err)
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, player.ErrNoDestination):
		return "you were not in a voice channel"
	case errors.Is(err, player.ErrRetrievalFailure):
		return "the audio could not be downloaded"
	case errors.Is(err, player.ErrTransport):
		return "the voice connection failed"
	default:
		return "something went wrong"
	}
}
