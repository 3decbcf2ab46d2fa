package oracle

import (
	"context"
	"errors"

	"oraclequest/bot/common"
	"oraclequest/domain/entities"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

type options = map[string]*discordgo.ApplicationCommandInteractionDataOption

func (f *Feature) handleCreate(s *discordgo.Session, i *discordgo.InteractionCreate, opts options) error {
	if !f.ledger.CanManageEvents(i) {
		return common.NewUserError("Only event authorities can create events.", "event create by non-authority")
	}

	eventID, err := common.UintOption(opts, "id")
	if err != nil {
		return err
	}
	description := opts["description"].StringValue()

	event, err := f.ledger.Engine.CreateOracleEvent(context.Background(), f.ledger.Stores.Create(), common.Signer(i), eventID, description)
	if err != nil {
		return common.FromLedgerError(err, "create event rejected")
	}

	log.WithFields(log.Fields{
		"user_id":  common.InteractionUserID(i),
		"event_id": eventID,
	}).Info("Oracle event created")

	if err := common.RespondWithEmbed(s, i, eventEmbed(event), false); err != nil {
		log.Errorf("Error responding to event create: %v", err)
	}
	return nil
}

func (f *Feature) handleResolve(s *discordgo.Session, i *discordgo.InteractionCreate, opts options) error {
	eventID, err := common.UintOption(opts, "id")
	if err != nil {
		return err
	}
	outcome := opts["outcome"].BoolValue()

	event, err := f.ledger.Engine.ResolveEvent(context.Background(), f.ledger.Stores.Create(), common.Signer(i), eventID, outcome)
	if err != nil {
		return common.FromLedgerError(err, "resolve event rejected")
	}

	log.WithFields(log.Fields{
		"user_id":  common.InteractionUserID(i),
		"event_id": eventID,
		"outcome":  outcome,
	}).Info("Oracle event resolved")

	if err := common.RespondWithEmbed(s, i, eventEmbed(event), false); err != nil {
		log.Errorf("Error responding to event resolve: %v", err)
	}
	return nil
}

func (f *Feature) handleShow(s *discordgo.Session, i *discordgo.InteractionCreate, opts options) error {
	eventID, err := common.UintOption(opts, "id")
	if err != nil {
		return err
	}

	event, err := f.ledger.Event(context.Background(), eventID)
	if errors.Is(err, entities.ErrNotFound) {
		return common.NewUserError("No event with that ID.", "event show for unknown event")
	}
	if err != nil {
		return common.NewSystemError(err, "failed to read event")
	}

	if err := common.RespondWithEmbed(s, i, eventEmbed(event), false); err != nil {
		log.Errorf("Error responding to event show: %v", err)
	}
	return nil
}
