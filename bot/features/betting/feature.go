package betting

import (
	"oraclequest/bot/common"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Feature serves the /bet command
type Feature struct {
	ledger *common.Ledger
}

// New creates a new betting feature instance
func New(ledger *common.Ledger) *Feature {
	return &Feature{
		ledger: ledger,
	}
}

// Command is the slash command definition
func (f *Feature) Command() *discordgo.ApplicationCommand {
	eventID := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "event_id",
		Description: "Event to bet on",
		Required:    true,
	}

	return &discordgo.ApplicationCommand{
		Name:        "bet",
		Description: "Place, claim and close bets",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "place",
				Description: "Bet on the outcome of an open event",
				Options: []*discordgo.ApplicationCommandOption{
					eventID,
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "outcome",
						Description: "Your prediction",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "amount",
						Description: "Amount to stake",
						Required:    true,
						MinValue:    &minAmount,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "claim",
				Description: "Claim the winnings of a bet",
				Options:     []*discordgo.ApplicationCommandOption{eventID},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "close",
				Description: "Close a settled bet and reclaim its storage",
				Options:     []*discordgo.ApplicationCommandOption{eventID},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "show",
				Description: "Show your bet on an event",
				Options:     []*discordgo.ApplicationCommandOption{eventID},
			},
		},
	}
}

var minAmount = float64(common.MinBetAmount)

// HandleCommand handles the /bet command
func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub, opts := common.Options(i)
	if sub == "show" {
		if err := f.handleShow(s, i, opts); err != nil {
			common.HandleError(s, i, err, false)
		}
		return
	}

	var handle func(*discordgo.Session, *discordgo.InteractionCreate, options) error
	switch sub {
	case "place":
		handle = f.handlePlace
	case "claim":
		handle = f.handleClaim
	case "close":
		handle = f.handleClose
	default:
		return
	}

	// Transitions hold row locks until commit, so answer once it is done
	if err := common.DeferResponse(s, i, false); err != nil {
		log.Errorf("Error deferring bet %s: %v", sub, err)
		return
	}
	if err := handle(s, i, opts); err != nil {
		common.HandleError(s, i, err, true)
	}
}
