package address

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"oraclequest/domain/entities"
)

func id(b byte) entities.AccountID {
	var a entities.AccountID
	a[0] = b
	a[31] = b
	return a
}

func TestDerive_Deterministic(t *testing.T) {
	t.Parallel()

	spaces := []Space{
		NewDirectSpace(id(9)),
		NewTreeSpace(id(9), id(10)),
	}
	for _, s := range spaces {
		t.Run(string(s.Regime()), func(t *testing.T) {
			assert.Equal(t, Player(s, id(1)), Player(s, id(1)))
			assert.Equal(t, Event(s, 7), Event(s, 7))
			assert.Equal(t, Bet(s, id(1), 7), Bet(s, id(1), 7))

			assert.NotEqual(t, Player(s, id(1)).Address, Player(s, id(2)).Address)
			assert.NotEqual(t, Event(s, 7).Address, Event(s, 8).Address)
			assert.NotEqual(t, Bet(s, id(1), 7).Address, Bet(s, id(2), 7).Address)
			assert.NotEqual(t, Bet(s, id(1), 7).Address, Bet(s, id(1), 8).Address)
		})
	}
}

func TestDirectSpace_KindsDoNotCollide(t *testing.T) {
	t.Parallel()

	s := NewDirectSpace(id(9))
	seed := id(1).Bytes()
	player := s.Derive(entities.KindPlayerProfile, seed)
	bet := s.Derive(entities.KindBet, seed)
	event := s.Derive(entities.KindOracleEvent, seed)
	assert.NotEqual(t, player.Address, bet.Address)
	assert.NotEqual(t, player.Address, event.Address)
	assert.NotEqual(t, bet.Address, event.Address)
}

func TestDerive_ProgramScoped(t *testing.T) {
	t.Parallel()

	a := Player(NewDirectSpace(id(1)), id(5))
	b := Player(NewDirectSpace(id(2)), id(5))
	assert.NotEqual(t, a.Address, b.Address)
}

func TestTreeSpace_AddressDependsOnTree(t *testing.T) {
	t.Parallel()

	a := Player(NewTreeSpace(id(9), id(10)), id(1))
	b := Player(NewTreeSpace(id(9), id(11)), id(1))
	assert.Equal(t, a.Seed, b.Seed)
	assert.NotEqual(t, a.Address, b.Address)
	assert.Equal(t, a.Address, FromSeed(a.Seed, id(10)))
}

func TestSeedBoundariesAreUnambiguous(t *testing.T) {
	t.Parallel()

	s := NewDirectSpace(id(9))
	a := s.Derive(entities.KindBet, []byte{1, 2}, []byte{3})
	b := s.Derive(entities.KindBet, []byte{1}, []byte{2, 3})
	assert.NotEqual(t, a.Address, b.Address)
}

func TestU64LE(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{7, 0, 0, 0, 0, 0, 0, 0}, U64LE(7))
	assert.Equal(t, []byte{0, 1, 0, 0, 0, 0, 0, 0}, U64LE(256))
}
