package profile

import (
	"oraclequest/bot/common"

	"github.com/bwmarrin/discordgo"
)

// Feature serves the /profile command
type Feature struct {
	ledger *common.Ledger
}

func New(ledger *common.Ledger) *Feature {
	return &Feature{
		ledger: ledger,
	}
}

// Command is the slash command definition
func (f *Feature) Command() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "profile",
		Description: "Create or view a player profile",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "create",
				Description: "Create your player profile",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "show",
				Description: "Show a player's balance and record",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionUser,
						Name:        "user",
						Description: "Player to show (defaults to you)",
						Required:    false,
					},
				},
			},
		},
	}
}

func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub, opts := common.Options(i)
	switch sub {
	case "create":
		f.handleCreate(s, i)
	case "show":
		f.handleShow(s, i, opts)
	}
}
