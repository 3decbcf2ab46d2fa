package testutil

import (
	"crypto/sha256"

	"oraclequest/domain/entities"
)

// Account returns a stable test identity derived from name
func Account(name string) entities.AccountID {
	return entities.AccountID(sha256.Sum256([]byte("test:" + name)))
}

// ProgramID is the program identity used across tests
var ProgramID = Account("program")
