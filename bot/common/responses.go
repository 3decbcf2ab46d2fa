package common

import (
	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func visibility(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

// DeferResponse acknowledges the interaction while a transition commits.
// The answer must then be sent with one of the FollowUp helpers.
func DeferResponse(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: visibility(ephemeral)},
	})
}

// RespondWithEmbed answers the interaction with a single embed
func RespondWithEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  visibility(ephemeral),
		},
	})
}

// FollowUpWithEmbed completes a deferred interaction with an embed
func FollowUpWithEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	followUp(s, i, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  visibility(ephemeral),
	})
}

// FollowUpWithSuccess completes a deferred interaction with a confirmation line
func FollowUpWithSuccess(s *discordgo.Session, i *discordgo.InteractionCreate, message string, ephemeral bool) {
	followUp(s, i, &discordgo.WebhookParams{
		Content: "✅ " + message,
		Flags:   visibility(ephemeral),
	})
}

func followUp(s *discordgo.Session, i *discordgo.InteractionCreate, params *discordgo.WebhookParams) {
	if _, err := s.FollowupMessageCreate(i.Interaction, false, params); err != nil {
		log.WithFields(log.Fields{
			"user_id": InteractionUserID(i),
			"command": i.ApplicationCommandData().Name,
		}).WithError(err).Error("Failed to send follow-up message")
	}
}
