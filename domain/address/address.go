// Package address derives deterministic entity addresses from seed material.
package address

import (
	"crypto/sha256"
	"encoding/binary"
	"io"

	"oraclequest/domain/entities"
)

const (
	directDomain = "oraclequest/v1/direct-address"
	seedDomain   = "oraclequest/v1/address-seed"
	treeDomain   = "oraclequest/v1/tree-address"
)

// Derived is a derived address together with the seed digest it was built from
type Derived struct {
	Address entities.AccountID
	Seed    [32]byte
}

// Space derives addresses for entity kinds within one addressing regime
type Space interface {
	Derive(kind entities.Kind, seeds ...[]byte) Derived
	Regime() entities.Regime
}

// DirectSpace derives per-record addresses under a program id. The kind byte
// in the preimage keeps the address spaces of different entity kinds apart.
type DirectSpace struct {
	ProgramID entities.AccountID
}

func NewDirectSpace(programID entities.AccountID) DirectSpace {
	return DirectSpace{ProgramID: programID}
}

func (s DirectSpace) Derive(kind entities.Kind, seeds ...[]byte) Derived {
	seed := seedDigest(s.ProgramID, kind, seeds)
	h := sha256.New()
	h.Write([]byte(directDomain))
	h.Write([]byte{byte(kind)})
	h.Write(s.ProgramID[:])
	h.Write(seed[:])
	var d Derived
	copy(d.Address[:], h.Sum(nil))
	d.Seed = seed
	return d
}

func (s DirectSpace) Regime() entities.Regime { return entities.RegimeDirect }

// TreeSpace derives leaf addresses that are unique within one address tree.
// The seed digest is what the tree service checks for non-membership.
type TreeSpace struct {
	ProgramID   entities.AccountID
	AddressTree entities.AccountID
}

func NewTreeSpace(programID, addressTree entities.AccountID) TreeSpace {
	return TreeSpace{ProgramID: programID, AddressTree: addressTree}
}

func (s TreeSpace) Derive(kind entities.Kind, seeds ...[]byte) Derived {
	seed := seedDigest(s.ProgramID, kind, seeds)
	return Derived{Address: FromSeed(seed, s.AddressTree), Seed: seed}
}

func (s TreeSpace) Regime() entities.Regime { return entities.RegimeCompressed }

// FromSeed maps a seed digest into an address tree
func FromSeed(seed [32]byte, addressTree entities.AccountID) entities.AccountID {
	h := sha256.New()
	h.Write([]byte(treeDomain))
	h.Write(seed[:])
	h.Write(addressTree[:])
	var out entities.AccountID
	copy(out[:], h.Sum(nil))
	return out
}

func seedDigest(programID entities.AccountID, kind entities.Kind, seeds [][]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(seedDomain))
	h.Write(programID[:])
	writeLenPrefixed(h, []byte(kind.SeedTag()))
	for _, s := range seeds {
		writeLenPrefixed(h, s)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func writeLenPrefixed(w io.Writer, b []byte) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(b)))
	w.Write(n[:])
	w.Write(b)
}

// U64LE encodes v as fixed-width little-endian seed bytes
func U64LE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// Player derives the profile address of owner
func Player(s Space, owner entities.AccountID) Derived {
	return s.Derive(entities.KindPlayerProfile, owner.Bytes())
}

// Event derives the address of an oracle event
func Event(s Space, eventID uint64) Derived {
	return s.Derive(entities.KindOracleEvent, U64LE(eventID))
}

// Bet derives the address of player's bet on an event
func Bet(s Space, player entities.AccountID, eventID uint64) Derived {
	return s.Derive(entities.KindBet, player.Bytes(), U64LE(eventID))
}
