package entities

import "math"

// PlayerProfile aggregates a player's betting history
type PlayerProfile struct {
	Owner     AccountID `db:"owner"`
	Balance   uint64    `db:"balance"`
	TotalBets uint64    `db:"total_bets"`
	BetsWon   uint64    `db:"bets_won"`
}

// NewPlayerProfile returns a zeroed profile for owner
func NewPlayerProfile(owner AccountID) *PlayerProfile {
	return &PlayerProfile{Owner: owner}
}

func (p *PlayerProfile) Kind() Kind { return KindPlayerProfile }

// RecordBet counts a newly placed bet
func (p *PlayerProfile) RecordBet() error {
	if p.TotalBets == math.MaxUint64 {
		return ErrTotalBetsOverflow
	}
	p.TotalBets++
	return nil
}

// RecordWin credits winnings and counts the win. The profile is left
// untouched when either counter would overflow.
func (p *PlayerProfile) RecordWin(winnings uint64) error {
	if p.BetsWon == math.MaxUint64 {
		return ErrBetsWonOverflow
	}
	if p.Balance > math.MaxUint64-winnings {
		return ErrBalanceOverflow
	}
	p.BetsWon++
	p.Balance += winnings
	return nil
}

// WinRate returns bets won over total bets, zero when no bets were placed
func (p *PlayerProfile) WinRate() float64 {
	if p.TotalBets == 0 {
		return 0
	}
	return float64(p.BetsWon) / float64(p.TotalBets)
}
