package common

import (
	"fmt"
	"strings"

	"oraclequest/domain/entities"
)

// FormatAmount formats an amount with thousand separators
func FormatAmount(amount uint64) string {
	str := fmt.Sprintf("%d", amount)

	n := len(str)
	if n <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}

	return result.String()
}

// FormatOutcome renders a binary outcome the way users pick it
func FormatOutcome(outcome bool) string {
	if outcome {
		return "Yes"
	}
	return "No"
}

// FormatAddress shortens an account address for display
func FormatAddress(addr entities.AccountID) string {
	s := addr.String()
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "…" + s[len(s)-6:]
}

// FormatEventState describes where an event is in its lifecycle
func FormatEventState(e *entities.OracleEvent) string {
	if e.Resolved && e.Outcome != nil {
		return fmt.Sprintf("Resolved: **%s**", FormatOutcome(*e.Outcome))
	}
	return "Open for bets"
}

// FormatBetState describes a bet relative to its event
func FormatBetState(b *entities.Bet, e *entities.OracleEvent) string {
	switch {
	case b.Claimed:
		return "Claimed"
	case e == nil || !e.Resolved:
		return "Pending"
	case e.IsWinningOutcome(b.ChosenOutcome):
		return "Won, ready to claim"
	default:
		return "Lost"
	}
}
