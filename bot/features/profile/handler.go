package profile

import (
	"context"
	"errors"
	"fmt"

	"oraclequest/bot/common"
	"oraclequest/domain/entities"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func (f *Feature) handleCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	signer := common.Signer(i)

	profile, err := f.ledger.Engine.InitializePlayer(ctx, f.ledger.Stores.Create(), signer)
	if err != nil {
		common.HandleError(s, i, common.FromLedgerError(err, "initialize player rejected"), false)
		return
	}

	log.WithFields(log.Fields{
		"user_id": common.InteractionUserID(i),
		"owner":   signer,
	}).Info("Player profile created")

	if err := common.RespondWithEmbed(s, i, profileEmbed(i.Member, profile), true); err != nil {
		log.Errorf("Error responding to profile create: %v", err)
	}
}

func (f *Feature) handleShow(s *discordgo.Session, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()

	userID := common.InteractionUserID(i)
	if o, ok := opts["user"]; ok {
		userID = o.UserValue(nil).ID
	}

	profile, err := f.ledger.Profile(ctx, common.AccountFor(userID))
	if errors.Is(err, entities.ErrNotFound) {
		common.RespondWithError(s, i, fmt.Sprintf("<@%s> has no profile yet.", userID))
		return
	}
	if err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "failed to read profile"), false)
		return
	}

	var member *discordgo.Member
	if userID == common.InteractionUserID(i) {
		member = i.Member
	}
	if err := common.RespondWithEmbed(s, i, profileEmbed(member, profile), false); err != nil {
		log.Errorf("Error responding to profile show: %v", err)
	}
}

func profileEmbed(member *discordgo.Member, p *entities.PlayerProfile) *discordgo.MessageEmbed {
	title := "Player Profile"
	if member != nil && member.User != nil {
		title = fmt.Sprintf("%s's Profile", member.User.Username)
	}

	winRate := "n/a"
	if p.TotalBets > 0 {
		winRate = fmt.Sprintf("%.1f%%", p.WinRate()*100)
	}

	return &discordgo.MessageEmbed{
		Title: title,
		Color: common.ColorProfile,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Balance", Value: common.FormatAmount(p.Balance), Inline: true},
			{Name: "Bets", Value: common.FormatAmount(p.TotalBets), Inline: true},
			{Name: "Won", Value: fmt.Sprintf("%s (%s)", common.FormatAmount(p.BetsWon), winRate), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: common.FormatAddress(p.Owner)},
	}
}
