package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Discord allows 50 requests per second per bot; stay below.
const commandCreateInterval = time.Second / 40

// registerCommands syncs the guild's slash commands with the registry:
// obsolete ones are deleted and only new or changed ones are created.
func (b *Bot) registerCommands(guildID string) error {
	appID, err := b.appID()
	if err != nil {
		return err
	}
	log := b.log.With().Str("guild", guildID).Logger()

	existing, err := b.dg.ApplicationCommands(appID, guildID)
	if err != nil {
		return fmt.Errorf("failed to list commands: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, c := range existing {
		present[c.Name] = true
	}

	localHashes := b.cache.load(guildID)

	wanted := b.registry.SlashDefinitions()
	wantedHashes := make(map[string]string, len(wanted))
	for _, def := range wanted {
		wantedHashes[def.Name] = hashCommand(def)
	}

	// Delete obsolete
	for _, old := range existing {
		if _, ok := wantedHashes[old.Name]; ok {
			continue
		}
		log.Info().Str("command", old.Name).Msg("deleting obsolete command")
		if err := b.dg.ApplicationCommandDelete(appID, guildID, old.ID); err != nil {
			log.Error().Err(err).Str("command", old.Name).Msg("failed to delete command")
		}
		delete(localHashes, old.Name)
	}

	// Create or update changed commands
	var changed []*discordgo.ApplicationCommand
	for _, def := range wanted {
		if !present[def.Name] || localHashes[def.Name] != wantedHashes[def.Name] {
			changed = append(changed, def)
		}
	}

	if len(changed) == 0 {
		log.Debug().Msg("slash commands up to date")
		return nil
	}

	log.Info().Int("changed", len(changed)).Msg("updating slash commands")
	ticker := time.NewTicker(commandCreateInterval)
	defer ticker.Stop()
	for _, def := range changed {
		<-ticker.C
		if _, err := b.dg.ApplicationCommandCreate(appID, guildID, def); err != nil {
			log.Error().Err(err).Str("command", def.Name).Msg("can't create command")
			continue
		}
		localHashes[def.Name] = wantedHashes[def.Name]
		log.Info().Str("command", def.Name).Msg("command created")
	}

	return b.cache.save(guildID, localHashes)
}

func (b *Bot) appID() (string, error) {
	if b.dg.State != nil && b.dg.State.User != nil && b.dg.State.User.ID != "" {
		return b.dg.State.User.ID, nil
	}
	user, err := b.dg.User("@me")
	if err != nil {
		return "", fmt.Errorf("failed to fetch self: %w", err)
	}
	return user.ID, nil
}
