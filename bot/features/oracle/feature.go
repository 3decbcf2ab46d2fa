package oracle

import (
	"oraclequest/bot/common"

	"github.com/bwmarrin/discordgo"
)

// Feature serves the /event command
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
	eventID := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "id",
		Description: "Event ID",
		Required:    true,
	}

	return &discordgo.ApplicationCommand{
		Name:        "event",
		Description: "Create, resolve and view oracle events",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "create",
				Description: "Create a yes/no event (authorities only)",
				Options: []*discordgo.ApplicationCommandOption{
					eventID,
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "description",
						Description: "What is being predicted",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "resolve",
				Description: "Resolve an event you created",
				Options: []*discordgo.ApplicationCommandOption{
					eventID,
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "outcome",
						Description: "Did it happen?",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "show",
				Description: "Show an event and its pools",
				Options:     []*discordgo.ApplicationCommandOption{eventID},
			},
		},
	}
}

func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub, opts := common.Options(i)
	var err error
	switch sub {
	case "create":
		err = f.handleCreate(s, i, opts)
	case "resolve":
		err = f.handleResolve(s, i, opts)
	case "show":
		err = f.handleShow(s, i, opts)
	}
	if err != nil {
		common.HandleError(s, i, err, false)
	}
}
