package core

import "errors"

var (
	// Input validation.
	ErrInvalidAddress    = errors.New("invalid address")
	ErrMalformedEnvelope = errors.New("malformed relay envelope")

	// Authentication.
	ErrNoPendingChallenge = errors.New("no pending challenge for address")
	ErrSignatureMismatch  = errors.New("signature does not match address")
	ErrCredentialExpired  = errors.New("session credential has expired")
	ErrCredentialInvalid  = errors.New("session credential is invalid")

	// Relay sequencing and execution.
	ErrStaleSequence      = errors.New("stale sequence number")
	ErrGatewayUnavailable = errors.New("execution gateway unavailable")
	ErrExecutionReverted  = errors.New("execution reverted")
	ErrReceiptTimeout     = errors.New("timed out waiting for receipt")

	// Stores.
	ErrNotFound = errors.New("not found")
)
