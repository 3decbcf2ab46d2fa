// Package codec encodes ledger entities into their stored byte layouts.
//
// Every encoding starts with an 8-byte discriminator derived from the entity
// type name, followed by the fields in declaration order using little-endian
// integers, single-byte booleans and u32 length-prefixed text. Optional values
// carry a one-byte tag.
package codec

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"oraclequest/domain/entities"
)

const DiscriminatorLen = 8

// Layout is the byte layout used by one storage regime
type Layout struct {
	regime         entities.Regime
	maxDescription int
	tallies        bool
}

var (
	// Direct records bound descriptions at 200 bytes and carry optional event tallies
	Direct = Layout{regime: entities.RegimeDirect, maxDescription: entities.MaxDescriptionLenDirect, tallies: true}
	// Compressed leaves bound descriptions at 100 bytes and carry no tallies
	Compressed = Layout{regime: entities.RegimeCompressed, maxDescription: entities.MaxDescriptionLenCompressed}
)

// For returns the layout of regime
func For(regime entities.Regime) Layout {
	if regime == entities.RegimeCompressed {
		return Compressed
	}
	return Direct
}

func (l Layout) Regime() entities.Regime { return l.regime }

// MaxDescription is the description limit in bytes
func (l Layout) MaxDescription() int { return l.maxDescription }

// Discriminator returns the type discriminator of kind
func Discriminator(kind entities.Kind) [DiscriminatorLen]byte {
	sum := sha256.Sum256([]byte("account:" + kind.TypeName()))
	var d [DiscriminatorLen]byte
	copy(d[:], sum[:DiscriminatorLen])
	return d
}

// KindOf identifies the entity kind of encoded data from its discriminator
func KindOf(data []byte) (entities.Kind, error) {
	if len(data) < DiscriminatorLen {
		return 0, entities.ErrInvalidAccountData
	}
	for _, k := range []entities.Kind{entities.KindPlayerProfile, entities.KindOracleEvent, entities.KindBet} {
		d := Discriminator(k)
		if bytes.Equal(data[:DiscriminatorLen], d[:]) {
			return k, nil
		}
	}
	return 0, entities.ErrDiscriminatorMismatch
}

// MaxLen is the largest encoding of kind under this layout
func (l Layout) MaxLen(kind entities.Kind) int {
	switch kind {
	case entities.KindPlayerProfile:
		return DiscriminatorLen + 32 + 8 + 8 + 8
	case entities.KindOracleEvent:
		n := DiscriminatorLen + 8 + 4 + l.maxDescription + 1 + 2 + 32
		if l.tallies {
			n += 1 + 4*8
		}
		return n
	case entities.KindBet:
		return DiscriminatorLen + 32 + 8 + 1 + 8 + 1
	default:
		return 0
	}
}

// Encode serializes e under this layout
func (l Layout) Encode(e entities.Entity) ([]byte, error) {
	w := &writer{}
	d := Discriminator(e.Kind())
	w.buf.Write(d[:])

	switch v := e.(type) {
	case *entities.PlayerProfile:
		w.account(v.Owner)
		w.u64(v.Balance)
		w.u64(v.TotalBets)
		w.u64(v.BetsWon)
	case *entities.OracleEvent:
		if len(v.Description) > l.maxDescription {
			return nil, entities.ErrDescriptionTooLong
		}
		if v.Tallies != nil && !l.tallies {
			return nil, entities.ErrTalliesUnsupported
		}
		w.u64(v.EventID)
		w.text(v.Description)
		w.boolean(v.Resolved)
		if v.Outcome != nil {
			w.boolean(true)
			w.boolean(*v.Outcome)
		} else {
			w.boolean(false)
			w.boolean(false)
		}
		w.account(v.Authority)
		if l.tallies {
			w.boolean(v.Tallies != nil)
			if v.Tallies != nil {
				w.u64(v.Tallies.TotalBets)
				w.u64(v.Tallies.YesVotes)
				w.u64(v.Tallies.NoVotes)
				w.u64(v.Tallies.TotalAmount)
			}
		}
	case *entities.Bet:
		w.account(v.Player)
		w.u64(v.EventID)
		w.boolean(v.ChosenOutcome)
		w.u64(v.Amount)
		w.boolean(v.Claimed)
	default:
		return nil, fmt.Errorf("unsupported entity %T", e)
	}
	return w.buf.Bytes(), nil
}

// Decode parses data under this layout into the entity its discriminator names
func (l Layout) Decode(data []byte) (entities.Entity, error) {
	kind, err := KindOf(data)
	if err != nil {
		return nil, err
	}
	r := &reader{data: data[DiscriminatorLen:]}

	var out entities.Entity
	switch kind {
	case entities.KindPlayerProfile:
		p := &entities.PlayerProfile{}
		p.Owner = r.account()
		p.Balance = r.u64()
		p.TotalBets = r.u64()
		p.BetsWon = r.u64()
		out = p
	case entities.KindOracleEvent:
		ev := &entities.OracleEvent{}
		ev.EventID = r.u64()
		ev.Description = r.text(l.maxDescription)
		ev.Resolved = r.boolean()
		hasOutcome := r.boolean()
		outcome := r.boolean()
		if hasOutcome {
			ev.Outcome = &outcome
		} else if outcome {
			r.fail()
		}
		// an outcome is recorded exactly when the event is resolved
		if hasOutcome != ev.Resolved {
			r.fail()
		}
		ev.Authority = r.account()
		if l.tallies && r.boolean() {
			ev.Tallies = &entities.Tallies{
				TotalBets:   r.u64(),
				YesVotes:    r.u64(),
				NoVotes:     r.u64(),
				TotalAmount: r.u64(),
			}
		}
		out = ev
	case entities.KindBet:
		b := &entities.Bet{}
		b.Player = r.account()
		b.EventID = r.u64()
		b.ChosenOutcome = r.boolean()
		b.Amount = r.u64()
		b.Claimed = r.boolean()
		out = b
	}

	if r.err != nil {
		return nil, r.err
	}
	if len(r.data) != 0 {
		return nil, entities.ErrInvalidAccountData
	}
	return out, nil
}

// DecodeAs decodes data and requires it to hold a T
func DecodeAs[T entities.Entity](l Layout, data []byte) (T, error) {
	var zero T
	e, err := l.Decode(data)
	if err != nil {
		return zero, err
	}
	v, ok := e.(T)
	if !ok {
		return zero, entities.ErrDiscriminatorMismatch
	}
	return v, nil
}

// DataHash is the content commitment of e: a digest over its compressed
// encoding, which lists every field in canonical order.
func DataHash(e entities.Entity) ([32]byte, error) {
	data, err := Compressed.Encode(e)
	if err != nil {
		return [32]byte{}, err
	}
	return HashData(data), nil
}

// HashData is the content commitment of already encoded compressed data
func HashData(data []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte("oraclequest/v1/leaf-data"))
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// LeafHash binds a data commitment to the owning program, the leaf address
// and the discriminator. This is the value stored in the state tree.
func LeafHash(programID, addr entities.AccountID, discriminator [DiscriminatorLen]byte, dataHash [32]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte("oraclequest/v1/leaf"))
	h.Write(programID[:])
	h.Write(addr[:])
	h.Write(discriminator[:])
	h.Write(dataHash[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

type writer struct {
	buf bytes.Buffer
}

func (w *writer) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) boolean(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *writer) account(a entities.AccountID) {
	w.buf.Write(a[:])
}

func (w *writer) text(s string) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
	w.buf.Write(n[:])
	w.buf.WriteString(s)
}

// reader records the first failure and returns zero values afterwards
type reader struct {
	data []byte
	err  error
}

func (r *reader) fail() {
	if r.err == nil {
		r.err = entities.ErrInvalidAccountData
	}
}

func (r *reader) take(n int) []byte {
	if r.err != nil || len(r.data) < n {
		r.fail()
		return nil
	}
	b := r.data[:n]
	r.data = r.data[n:]
	return b
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) boolean() bool {
	b := r.take(1)
	if b == nil {
		return false
	}
	switch b[0] {
	case 0:
		return false
	case 1:
		return true
	default:
		r.fail()
		return false
	}
}

func (r *reader) account() entities.AccountID {
	var a entities.AccountID
	if b := r.take(entities.AccountIDLen); b != nil {
		copy(a[:], b)
	}
	return a
}

func (r *reader) text(limit int) string {
	b := r.take(4)
	if b == nil {
		return ""
	}
	n := binary.LittleEndian.Uint32(b)
	if int64(n) > int64(limit) {
		if r.err == nil {
			r.err = entities.ErrDescriptionTooLong
		}
		return ""
	}
	s := r.take(int(n))
	return string(s)
}
