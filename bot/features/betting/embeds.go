package betting

import (
	"fmt"

	"oraclequest/bot/common"
	"oraclequest/domain/entities"

	"github.com/bwmarrin/discordgo"
)

func betPlacedEmbed(b *entities.Bet) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "🎲 Bet Placed",
		Description: fmt.Sprintf("**%s** on **%s** for event #%d", common.FormatAmount(b.Amount), common.FormatOutcome(b.ChosenOutcome), b.EventID),
		Color:       common.ColorBet,
	}
	if payout, err := b.Winnings(); err == nil {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Pays %s if right", common.FormatAmount(payout))}
	}
	return embed
}

func betEmbed(b *entities.Bet, e *entities.OracleEvent) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Your bet on event #%d", b.EventID),
		Color: common.ColorBet,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Prediction", Value: common.FormatOutcome(b.ChosenOutcome), Inline: true},
			{Name: "Stake", Value: common.FormatAmount(b.Amount), Inline: true},
			{Name: "Status", Value: common.FormatBetState(b, e), Inline: true},
		},
	}
	if e != nil {
		embed.Description = e.Description
	}
	return embed
}

func claimEmbed(winnings uint64, p *entities.PlayerProfile) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎉 Winnings Claimed",
		Description: fmt.Sprintf("You collected **%s**", common.FormatAmount(winnings)),
		Color:       common.ColorPayout,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Balance", Value: common.FormatAmount(p.Balance), Inline: true},
			{Name: "Bets won", Value: common.FormatAmount(p.BetsWon), Inline: true},
		},
	}
}
