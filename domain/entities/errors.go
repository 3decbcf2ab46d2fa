package entities

import (
	"errors"
	"fmt"
)

// ErrorCategory groups ledger errors by how a caller should react to them
type ErrorCategory string

const (
	CategoryValidation        ErrorCategory = "validation"
	CategoryAuthorization     ErrorCategory = "authorization"
	CategoryStateConflict     ErrorCategory = "state_conflict"
	CategoryBusinessRule      ErrorCategory = "business_rule"
	CategoryArithmetic        ErrorCategory = "arithmetic"
	CategoryProofVerification ErrorCategory = "proof_verification"
)

// LedgerError is a named condition reported as the outcome of a rejected transition
type LedgerError struct {
	Code     uint32
	Name     string
	Message  string
	Category ErrorCategory
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Message)
}

func newLedgerError(code uint32, name, message string, category ErrorCategory) *LedgerError {
	return &LedgerError{Code: code, Name: name, Message: message, Category: category}
}

var (
	ErrAlreadyResolved    = newLedgerError(6000, "AlreadyResolved", "Event already resolved", CategoryStateConflict)
	ErrEventNotResolved   = newLedgerError(6001, "EventNotResolved", "Event not resolved yet", CategoryBusinessRule)
	ErrAlreadyClaimed     = newLedgerError(6002, "AlreadyClaimed", "Winnings already claimed", CategoryStateConflict)
	ErrBetLost            = newLedgerError(6003, "BetLost", "Bet lost", CategoryBusinessRule)
	ErrDescriptionTooLong = newLedgerError(6004, "DescriptionTooLong", "Description too long", CategoryValidation)
	ErrUnauthorized       = newLedgerError(6005, "Unauthorized", "Signer is not the event authority", CategoryAuthorization)
	ErrNotBetOwner        = newLedgerError(6006, "NotBetOwner", "Signer does not own this bet", CategoryAuthorization)
	ErrDuplicateBet       = newLedgerError(6007, "DuplicateBet", "A bet on this event already exists for this player", CategoryStateConflict)
	ErrAlreadyInitialized = newLedgerError(6008, "AlreadyInitialized", "Player profile already initialized", CategoryStateConflict)
	ErrEventMismatch      = newLedgerError(6009, "EventMismatch", "Event does not match the bet", CategoryBusinessRule)
	ErrBetOverflow        = newLedgerError(6010, "BetOverflow", "Payout overflows", CategoryArithmetic)
	ErrBalanceOverflow    = newLedgerError(6011, "BalanceOverflow", "Balance overflows", CategoryArithmetic)
	ErrBetsWonOverflow    = newLedgerError(6012, "BetsWonOverflow", "Won bet counter overflows", CategoryArithmetic)
	ErrTotalBetsOverflow  = newLedgerError(6013, "TotalBetsOverflow", "Bet counter overflows", CategoryArithmetic)
	ErrTallyOverflow      = newLedgerError(6014, "TallyOverflow", "Event tally overflows", CategoryArithmetic)
	ErrNotClaimed         = newLedgerError(6015, "NotClaimed", "Bet is not settled and cannot be closed", CategoryBusinessRule)
	ErrEventAlreadyExists = newLedgerError(6016, "EventAlreadyExists", "An event with this id already exists", CategoryStateConflict)
	ErrNotInitialized     = newLedgerError(6017, "NotInitialized", "Account is not initialized", CategoryStateConflict)

	ErrDiscriminatorMismatch = newLedgerError(6100, "AccountDiscriminatorMismatch", "Account discriminator did not match", CategoryValidation)
	ErrInvalidAccountData    = newLedgerError(6101, "InvalidAccountData", "Account data could not be decoded", CategoryValidation)
	ErrTalliesUnsupported    = newLedgerError(6102, "TalliesUnsupported", "Compressed events carry no tallies", CategoryValidation)

	ErrProofRejected        = newLedgerError(6200, "ProofRejected", "Validity proof rejected", CategoryProofVerification)
	ErrMissingExistingState = newLedgerError(6201, "MissingExistingState", "Existing state was not supplied for a mutated account", CategoryProofVerification)
	ErrInvalidAddressTree   = newLedgerError(6202, "InvalidAddressTree", "Failed to get address tree", CategoryProofVerification)

	ErrAddressInUse = newLedgerError(6300, "AccountAlreadyInUse", "Address already holds an account", CategoryStateConflict)
	ErrNotFound     = newLedgerError(6301, "AccountNotFound", "No account at address", CategoryStateConflict)
)

var errorsByCode = func() map[uint32]*LedgerError {
	m := make(map[uint32]*LedgerError)
	for _, e := range []*LedgerError{
		ErrAlreadyResolved, ErrEventNotResolved, ErrAlreadyClaimed, ErrBetLost,
		ErrDescriptionTooLong, ErrUnauthorized, ErrNotBetOwner, ErrDuplicateBet,
		ErrAlreadyInitialized, ErrEventMismatch, ErrBetOverflow, ErrBalanceOverflow,
		ErrBetsWonOverflow, ErrTotalBetsOverflow, ErrTallyOverflow, ErrNotClaimed,
		ErrEventAlreadyExists, ErrNotInitialized,
		ErrDiscriminatorMismatch, ErrInvalidAccountData, ErrTalliesUnsupported,
		ErrProofRejected, ErrMissingExistingState, ErrInvalidAddressTree,
		ErrAddressInUse, ErrNotFound,
	} {
		m[e.Code] = e
	}
	return m
}()

// ErrorByCode returns the sentinel registered under code
func ErrorByCode(code uint32) (*LedgerError, bool) {
	e, ok := errorsByCode[code]
	return e, ok
}

// CategoryOf returns the category of the first LedgerError in err's chain
func CategoryOf(err error) (ErrorCategory, bool) {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Category, true
	}
	return "", false
}

// IsRetryable reports whether refetching state and resubmitting can succeed.
// Only proof failures qualify; every other rejection is definitive.
func IsRetryable(err error) bool {
	category, ok := CategoryOf(err)
	return ok && category == CategoryProofVerification
}
