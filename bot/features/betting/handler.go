package betting

import (
	"context"
	"errors"
	"fmt"

	"oraclequest/bot/common"
	"oraclequest/domain/entities"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

type options = map[string]*discordgo.ApplicationCommandInteractionDataOption

func (f *Feature) handlePlace(s *discordgo.Session, i *discordgo.InteractionCreate, opts options) error {
	eventID, err := common.UintOption(opts, "event_id")
	if err != nil {
		return err
	}
	amount, err := common.UintOption(opts, "amount")
	if err != nil {
		return err
	}
	outcome, err := common.BoolOption(opts, "outcome")
	if err != nil {
		return err
	}

	bet, err := f.ledger.Engine.PlaceBet(context.Background(), f.ledger.Stores.Create(), common.Signer(i), eventID, outcome, amount)
	if err != nil {
		return common.FromLedgerError(err, "place bet rejected")
	}

	log.WithFields(log.Fields{
		"user_id":  common.InteractionUserID(i),
		"event_id": eventID,
		"outcome":  outcome,
		"amount":   amount,
	}).Info("Bet placed")

	common.FollowUpWithEmbed(s, i, betPlacedEmbed(bet), false)
	return nil
}

func (f *Feature) handleClaim(s *discordgo.Session, i *discordgo.InteractionCreate, opts options) error {
	eventID, err := common.UintOption(opts, "event_id")
	if err != nil {
		return err
	}
	signer := common.Signer(i)

	result, err := f.ledger.Engine.ClaimWinnings(context.Background(), f.ledger.Stores.Create(), signer, f.ledger.BetAddress(signer, eventID), eventID)
	if err != nil {
		return common.FromLedgerError(err, "claim winnings rejected")
	}

	log.WithFields(log.Fields{
		"user_id":  common.InteractionUserID(i),
		"event_id": eventID,
		"winnings": result.Winnings,
	}).Info("Winnings claimed")

	common.FollowUpWithEmbed(s, i, claimEmbed(result.Winnings, result.Profile), false)
	return nil
}

func (f *Feature) handleClose(s *discordgo.Session, i *discordgo.InteractionCreate, opts options) error {
	eventID, err := common.UintOption(opts, "event_id")
	if err != nil {
		return err
	}
	signer := common.Signer(i)

	refund, err := f.ledger.Engine.CloseBet(context.Background(), f.ledger.Stores.Create(), signer, f.ledger.BetAddress(signer, eventID), eventID)
	if err != nil {
		return common.FromLedgerError(err, "close bet rejected")
	}

	log.WithFields(log.Fields{
		"user_id":  common.InteractionUserID(i),
		"event_id": eventID,
		"refund":   refund,
	}).Info("Bet closed")

	common.FollowUpWithSuccess(s, i, fmt.Sprintf("Bet on event #%d closed. Storage refund: **%s**", eventID, common.FormatAmount(refund)), false)
	return nil
}

func (f *Feature) handleShow(s *discordgo.Session, i *discordgo.InteractionCreate, opts options) error {
	ctx := context.Background()
	eventID, err := common.UintOption(opts, "event_id")
	if err != nil {
		return err
	}

	bet, err := f.ledger.Bet(ctx, common.Signer(i), eventID)
	if errors.Is(err, entities.ErrNotFound) {
		return common.NewUserError("You have no open bet on that event.", "bet show for unknown bet")
	}
	if err != nil {
		return common.NewSystemError(err, "failed to read bet")
	}

	event, err := f.ledger.Event(ctx, eventID)
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		return common.NewSystemError(err, "failed to read event")
	}

	if err := common.RespondWithEmbed(s, i, betEmbed(bet, event), true); err != nil {
		log.Errorf("Error responding to bet show: %v", err)
	}
	return nil
}
