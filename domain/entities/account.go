package entities

import (
	"encoding/hex"
	"fmt"
)

// AccountIDLen is the width of every account identifier and derived address
const AccountIDLen = 32

// AccountID identifies a signer, an authority or a program
type AccountID [AccountIDLen]byte

// ParseAccountID decodes a hex-encoded 32-byte identifier
func ParseAccountID(s string) (AccountID, error) {
	var id AccountID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid account id %q: %w", s, err)
	}
	if len(raw) != AccountIDLen {
		return id, fmt.Errorf("invalid account id %q: want %d bytes, got %d", s, AccountIDLen, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

func (a AccountID) String() string {
	return hex.EncodeToString(a[:])
}

// Bytes returns the identifier as a seed-ready slice
func (a AccountID) Bytes() []byte {
	return a[:]
}

// IsZero reports whether the identifier is unset
func (a AccountID) IsZero() bool {
	return a == AccountID{}
}

func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AccountID) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
