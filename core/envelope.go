package core

import (
	"fmt"
	"math/big"
)

// RelayRequestEnvelope is the signed description of an action to be relayed.
// It is constructed and signed by the client and consumed exactly once: the
// SequenceNumber must equal the gateway's current next-sequence value for
// From at submission time, which is the sole replay and ordering defense.
type RelayRequestEnvelope struct {
	From           string
	To             string
	Value          *big.Int
	GasLimit       uint64
	SequenceNumber uint64
	Payload        Payload
}

// Validate rejects envelopes with missing required fields. Renewal payloads
// are not accepted here: renewals originate from the scheduler, not from a
// client-signed envelope.
func (e *RelayRequestEnvelope) Validate() error {
	if e == nil {
		return fmt.Errorf("envelope is nil: %w", ErrMalformedEnvelope)
	}
	if e.From == "" {
		return fmt.Errorf("missing from address: %w", ErrMalformedEnvelope)
	}
	if e.To == "" {
		return fmt.Errorf("missing to address: %w", ErrMalformedEnvelope)
	}
	if e.Value == nil || e.Value.Sign() < 0 {
		return fmt.Errorf("missing or negative value: %w", ErrMalformedEnvelope)
	}
	if e.GasLimit == 0 {
		return fmt.Errorf("missing gas limit: %w", ErrMalformedEnvelope)
	}
	if e.Payload.Kind == PayloadRenewal {
		return fmt.Errorf("renewal payloads cannot be relayed directly: %w", ErrMalformedEnvelope)
	}
	return e.Payload.Validate()
}
