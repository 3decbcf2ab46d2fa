package oracle

import (
	"fmt"

	"oraclequest/bot/common"
	"oraclequest/domain/entities"

	"github.com/bwmarrin/discordgo"
)

func eventEmbed(e *entities.OracleEvent) *discordgo.MessageEmbed {
	color := common.ColorOpenEvent
	if e.Resolved {
		color = common.ColorResolvedEvent
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Event #%d", e.EventID),
		Description: e.Description,
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Status", Value: common.FormatEventState(e), Inline: false},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Authority " + common.FormatAddress(e.Authority)},
	}

	if t := e.Tallies; t != nil {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Bets", Value: common.FormatAmount(t.TotalBets), Inline: true},
			&discordgo.MessageEmbedField{Name: "Yes / No", Value: fmt.Sprintf("%d / %d", t.YesVotes, t.NoVotes), Inline: true},
			&discordgo.MessageEmbedField{Name: "Pool", Value: common.FormatAmount(t.TotalAmount), Inline: true},
		)
	}
	return embed
}
