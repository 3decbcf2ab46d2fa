package entities

import (
	"math"
	"math/bits"
)

// PayoutMultiplier is the fixed payout applied to a winning stake
const PayoutMultiplier = 2

// BetState is the lifecycle state of a bet
type BetState string

const (
	BetStatePending BetState = "pending"
	BetStateClaimed BetState = "claimed"
)

// Bet is a single stake on an oracle event outcome
type Bet struct {
	Player        AccountID `db:"player"`
	EventID       uint64    `db:"event_id"`
	ChosenOutcome bool      `db:"chosen_outcome"`
	Amount        uint64    `db:"amount"`
	Claimed       bool      `db:"claimed"`
}

// NewBet returns an unclaimed bet
func NewBet(player AccountID, eventID uint64, chosenOutcome bool, amount uint64) *Bet {
	return &Bet{
		Player:        player,
		EventID:       eventID,
		ChosenOutcome: chosenOutcome,
		Amount:        amount,
	}
}

func (b *Bet) Kind() Kind { return KindBet }

func (b *Bet) State() BetState {
	if b.Claimed {
		return BetStateClaimed
	}
	return BetStatePending
}

// Winnings returns the payout for a winning stake
func (b *Bet) Winnings() (uint64, error) {
	hi, lo := bits.Mul64(b.Amount, PayoutMultiplier)
	if hi != 0 {
		return 0, ErrBetOverflow
	}
	return lo, nil
}

func addUint64(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}
