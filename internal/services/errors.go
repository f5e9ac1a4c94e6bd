package services

import "errors"

// Sentinel errors for every failure kind the API can return. Services wrap
// these with context via fmt.Errorf("%w: ...") so handlers can branch with
// errors.Is while callers still get a specific message.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNonceMismatch    = errors.New("nonce mismatch")
	ErrAmountMismatch   = errors.New("amount mismatch")
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrNoPayout         = errors.New("no payout")
	// ErrExternalTransfer is surfaced after the claim is already durably
	// recorded; it never reverts claimed status. Reconciliation is an
	// operational concern.
	ErrExternalTransfer = errors.New("external transfer failed")
)
