package discord

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/bwmarrin/discordgo"
)

type hashedOption struct {
	Name        string                                 `json:"name"`
	Description string                                 `json:"description"`
	Type        discordgo.ApplicationCommandOptionType `json:"type"`
	Required    bool                                   `json:"required"`
	Choices     []hashedChoice                         `json:"choices,omitempty"`
	Options     []hashedOption                         `json:"options,omitempty"`
}

type hashedChoice struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// hashCommand creates a deterministic hash for an ApplicationCommand. IDs
// and versions assigned by Discord are left out, options are sorted.
func hashCommand(cmd *discordgo.ApplicationCommand) string {
	data, _ := json.Marshal(struct {
		Name        string                           `json:"name"`
		Description string                           `json:"description"`
		Type        discordgo.ApplicationCommandType `json:"type"`
		Options     []hashedOption                   `json:"options,omitempty"`
	}{cmd.Name, cmd.Description, cmd.Type, normalizeOptions(cmd.Options)})

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func normalizeOptions(opts []*discordgo.ApplicationCommandOption) []hashedOption {
	if len(opts) == 0 {
		return nil
	}
	out := make([]hashedOption, 0, len(opts))
	for _, o := range opts {
		h := hashedOption{
			Name:        o.Name,
			Description: o.Description,
			Type:        o.Type,
			Required:    o.Required,
			Options:     normalizeOptions(o.Options),
		}
		for _, c := range o.Choices {
			h.Choices = append(h.Choices, hashedChoice{Name: c.Name, Value: c.Value})
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
