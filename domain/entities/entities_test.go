package entities

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccount(b byte) AccountID {
	var id AccountID
	for i := range id {
		id[i] = b
	}
	return id
}

func resolvedEvent(outcome bool) *OracleEvent {
	e := NewOracleEvent(7, "Will X happen?", testAccount(0xAA), false)
	e.Resolved = true
	e.Outcome = &outcome
	return e
}

func TestParseAccountID(t *testing.T) {
	t.Parallel()

	id := testAccount(0x11)
	parsed, err := ParseAccountID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseAccountID("zz")
	assert.Error(t, err)

	_, err = ParseAccountID("0011")
	assert.Error(t, err)
}

func TestPlayerProfile_RecordWin(t *testing.T) {
	t.Parallel()

	t.Run("credits balance and counter", func(t *testing.T) {
		p := NewPlayerProfile(testAccount(1))
		p.TotalBets = 1
		require.NoError(t, p.RecordWin(200))
		assert.Equal(t, uint64(200), p.Balance)
		assert.Equal(t, uint64(1), p.BetsWon)
	})

	t.Run("balance overflow leaves profile unchanged", func(t *testing.T) {
		p := &PlayerProfile{Balance: math.MaxUint64 - 1, TotalBets: 3, BetsWon: 2}
		err := p.RecordWin(2)
		assert.ErrorIs(t, err, ErrBalanceOverflow)
		assert.Equal(t, uint64(math.MaxUint64-1), p.Balance)
		assert.Equal(t, uint64(2), p.BetsWon)
	})

	t.Run("bets won overflow", func(t *testing.T) {
		p := &PlayerProfile{BetsWon: math.MaxUint64, TotalBets: math.MaxUint64}
		assert.ErrorIs(t, p.RecordWin(1), ErrBetsWonOverflow)
		assert.Equal(t, uint64(0), p.Balance)
	})
}

func TestPlayerProfile_RecordBet(t *testing.T) {
	t.Parallel()

	p := &PlayerProfile{TotalBets: math.MaxUint64}
	assert.ErrorIs(t, p.RecordBet(), ErrTotalBetsOverflow)

	p = NewPlayerProfile(testAccount(1))
	require.NoError(t, p.RecordBet())
	assert.Equal(t, uint64(1), p.TotalBets)
}

func TestPlayerProfile_WinRate(t *testing.T) {
	t.Parallel()

	assert.Zero(t, NewPlayerProfile(testAccount(1)).WinRate())
	assert.InDelta(t, 0.25, (&PlayerProfile{TotalBets: 4, BetsWon: 1}).WinRate(), 1e-9)
}

func TestOracleEvent_Resolve(t *testing.T) {
	t.Parallel()

	e := NewOracleEvent(7, "Will X happen?", testAccount(0xAA), true)
	assert.Equal(t, EventStateOpen, e.State())
	assert.Nil(t, e.Outcome)

	require.NoError(t, e.Resolve(true))
	assert.Equal(t, EventStateResolved, e.State())
	require.NotNil(t, e.Outcome)
	assert.True(t, *e.Outcome)

	assert.ErrorIs(t, e.Resolve(false), ErrAlreadyResolved)
	assert.True(t, *e.Outcome)
}

func TestOracleEvent_AddTally(t *testing.T) {
	t.Parallel()

	e := NewOracleEvent(1, "q", testAccount(0xAA), true)
	require.NoError(t, e.AddTally(true, 100))
	require.NoError(t, e.AddTally(false, 50))
	assert.Equal(t, Tallies{TotalBets: 2, YesVotes: 1, NoVotes: 1, TotalAmount: 150}, *e.Tallies)

	e.Tallies.TotalAmount = math.MaxUint64
	assert.ErrorIs(t, e.AddTally(true, 1), ErrTallyOverflow)
	assert.Equal(t, uint64(2), e.Tallies.TotalBets)

	plain := NewOracleEvent(2, "q", testAccount(0xAA), false)
	require.NoError(t, plain.AddTally(true, 1))
	assert.Nil(t, plain.Tallies)
}

func TestOracleEvent_Clone(t *testing.T) {
	t.Parallel()

	e := resolvedEvent(true)
	e.Tallies = &Tallies{TotalBets: 1}
	c := e.Clone()
	*c.Outcome = false
	c.Tallies.TotalBets = 9
	assert.True(t, *e.Outcome)
	assert.Equal(t, uint64(1), e.Tallies.TotalBets)
}

func TestBet_Winnings(t *testing.T) {
	t.Parallel()

	w, err := NewBet(testAccount(1), 7, true, 100).Winnings()
	require.NoError(t, err)
	assert.Equal(t, uint64(200), w)

	w, err = NewBet(testAccount(1), 7, true, math.MaxUint64/2).Winnings()
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64-1), w)

	_, err = NewBet(testAccount(1), 7, true, math.MaxUint64/2+1).Winnings()
	assert.ErrorIs(t, err, ErrBetOverflow)

	b := NewBet(testAccount(1), 7, true, 1)
	assert.Equal(t, BetStatePending, b.State())
	b.Claimed = true
	assert.Equal(t, BetStateClaimed, b.State())
}

func TestCategoryOf(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("claim failed: %w", ErrBetOverflow)
	cat, ok := CategoryOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, CategoryArithmetic, cat)

	_, ok = CategoryOf(fmt.Errorf("plain"))
	assert.False(t, ok)

	assert.True(t, IsRetryable(fmt.Errorf("commit: %w", ErrProofRejected)))
	assert.False(t, IsRetryable(ErrDuplicateBet))
	assert.False(t, IsRetryable(ErrAddressInUse))
}

func TestErrorByCode(t *testing.T) {
	t.Parallel()

	e, ok := ErrorByCode(ErrDuplicateBet.Code)
	require.True(t, ok)
	assert.Same(t, ErrDuplicateBet, e)

	_, ok = ErrorByCode(1)
	assert.False(t, ok)
}
