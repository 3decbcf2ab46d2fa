package services

import (
	"oraclequest/domain/entities"
)

// RequireSigner rejects an unset signer identity
func RequireSigner(signer entities.AccountID) error {
	if signer.IsZero() {
		return entities.ErrUnauthorized
	}
	return nil
}

// RequireAuthority allows only the event's recorded authority through
func RequireAuthority(signer entities.AccountID, event *entities.OracleEvent) error {
	if event.Authority != signer {
		return entities.ErrUnauthorized
	}
	return nil
}

// RequireBetOwner allows only the staker of bet through
func RequireBetOwner(signer entities.AccountID, bet *entities.Bet) error {
	if bet.Player != signer {
		return entities.ErrNotBetOwner
	}
	return nil
}

// RequireProfileOwner allows only the owner of profile through
func RequireProfileOwner(signer entities.AccountID, profile *entities.PlayerProfile) error {
	if profile.Owner != signer {
		return entities.ErrUnauthorized
	}
	return nil
}

// RequireSameEvent rejects a bet loaded alongside a different event
func RequireSameEvent(bet *entities.Bet, event *entities.OracleEvent) error {
	if bet.EventID != event.EventID {
		return entities.ErrEventMismatch
	}
	return nil
}

// CheckClaim validates that signer may claim bet against event and returns
// the payout. Checks run in a fixed order so the reported error is stable.
func CheckClaim(signer entities.AccountID, bet *entities.Bet, event *entities.OracleEvent) (uint64, error) {
	if !event.Resolved {
		return 0, entities.ErrEventNotResolved
	}
	if bet.Claimed {
		return 0, entities.ErrAlreadyClaimed
	}
	if err := RequireBetOwner(signer, bet); err != nil {
		return 0, err
	}
	if !event.IsWinningOutcome(bet.ChosenOutcome) {
		return 0, entities.ErrBetLost
	}
	return bet.Winnings()
}

// CheckClose validates that signer may retire bet. A claimed bet can always
// be closed; an unclaimed one only once its event resolved against it.
func CheckClose(signer entities.AccountID, bet *entities.Bet, event *entities.OracleEvent) error {
	if err := RequireBetOwner(signer, bet); err != nil {
		return err
	}
	if bet.Claimed {
		return nil
	}
	if !event.Resolved {
		return entities.ErrEventNotResolved
	}
	if event.IsWinningOutcome(bet.ChosenOutcome) {
		return entities.ErrNotClaimed
	}
	return nil
}
