package status

import (
	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"
	"github.com/keshon/frisbee/internal/music/queue"
	"github.com/keshon/frisbee/pkg/util"
)

const EmbedColor = 0xb01e66

// BuildView renders one embed per entry, in queue order.
func BuildView(entries []queue.Entry) []*discordgo.MessageEmbed {
	embeds := make([]*discordgo.MessageEmbed, 0, len(entries))
	for _, e := range entries {
		msg := embed.NewEmbed().
			SetColor(EmbedColor).
			SetTitle(e.Track.Title).
			AddField("URL", e.Track.URL).
			AddField("Duration", util.FormatDuration(e.Track.Duration))
		if e.Track.Thumbnail != "" {
			msg = msg.SetThumbnail(e.Track.Thumbnail)
		}
		embeds = append(embeds, msg.MessageEmbed)
	}
	return embeds
}
