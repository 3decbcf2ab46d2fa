package bot

import (
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Commands returns the slash command definitions in a stable order
func (b *Bot) Commands() []*discordgo.ApplicationCommand {
	commands := make([]*discordgo.ApplicationCommand, 0, len(b.features))
	for _, f := range b.features {
		commands = append(commands, f.Command())
	}
	sort.Slice(commands, func(i, j int) bool { return commands[i].Name < commands[j].Name })
	return commands
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	for _, cmd := range b.Commands() {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
		log.WithFields(log.Fields{
			"command": cmd.Name,
			"guild":   b.config.GuildID,
		}).Debug("Registered slash command")
	}
	return nil
}
