package treeservice

import (
	"encoding/json"
	"errors"
	"fmt"

	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"
)

// NATS request/reply subjects served by the tree service
const (
	SubjectPrefix  = "oraclequest.tree"
	SubjectAccount = SubjectPrefix + ".account"
	SubjectProof   = SubjectPrefix + ".proof"
	SubjectTrees   = SubjectPrefix + ".trees"
	SubjectApply   = SubjectPrefix + ".apply"

	// QueueGroup load-balances requests across service replicas
	QueueGroup = "treeservice"
)

// AccountRequest asks for the live leaf at an address
type AccountRequest struct {
	Address entities.AccountID `json:"address"`
}

// ProofRequest asks for a validity proof
type ProofRequest struct {
	Hashes       []interfaces.Hash       `json:"hashes,omitempty"`
	NewAddresses []interfaces.NewAddress `json:"new_addresses,omitempty"`
}

// WireError carries a rejection across the wire. Code is the ledger error
// code when the failure is a named ledger condition, zero otherwise.
type WireError struct {
	Code    uint32 `json:"code,omitempty"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

// Response is the reply envelope for every subject
type Response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *WireError      `json:"error,omitempty"`
}

// EncodeResponse builds a reply from a handler outcome
func EncodeResponse(result any, err error) []byte {
	var resp Response
	if err != nil {
		resp.Error = toWireError(err)
	} else {
		raw, merr := json.Marshal(result)
		if merr != nil {
			resp.Error = &WireError{Message: fmt.Sprintf("failed to marshal result: %v", merr)}
		} else {
			resp.Result = raw
		}
	}

	data, err := json.Marshal(resp)
	if err != nil {
		// Response holds only marshalable fields
		panic(err)
	}
	return data
}

// DecodeResponse unpacks a reply into result. A remote ledger error is
// returned wrapping its local sentinel so errors.Is keeps working.
func DecodeResponse(data []byte, result any) error {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("failed to decode tree service reply: %w", err)
	}
	if resp.Error != nil {
		return resp.Error.Err()
	}
	if result == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("failed to decode tree service result: %w", err)
	}
	return nil
}

// Err converts the wire form back into an error
func (e *WireError) Err() error {
	if sentinel, ok := entities.ErrorByCode(e.Code); ok {
		if e.Message == sentinel.Error() {
			return sentinel
		}
		return fmt.Errorf("tree service: %s: %w", e.Message, sentinel)
	}
	return fmt.Errorf("tree service: %s", e.Message)
}

func toWireError(err error) *WireError {
	var le *entities.LedgerError
	if errors.As(err, &le) {
		return &WireError{Code: le.Code, Name: le.Name, Message: err.Error()}
	}
	return &WireError{Message: err.Error()}
}
