package repository

import (
	"oraclequest/domain/codec"
	"oraclequest/domain/entities"
)

// Rent defaults, matching a two-year exemption at 3480 lamports per byte-year
const (
	DefaultLamportsPerByte = 6960
	DefaultOverheadBytes   = 128
)

// RentSchedule prices the storage allotment of a direct record
type RentSchedule struct {
	LamportsPerByte uint64
	OverheadBytes   uint64
}

func DefaultRentSchedule() RentSchedule {
	return RentSchedule{LamportsPerByte: DefaultLamportsPerByte, OverheadBytes: DefaultOverheadBytes}
}

// Allotment is the amount held by a record of kind for as long as it lives.
// Records are sized for their largest encoding so the allotment never changes.
func (r RentSchedule) Allotment(kind entities.Kind) uint64 {
	return (r.OverheadBytes + uint64(codec.Direct.MaxLen(kind))) * r.LamportsPerByte
}
