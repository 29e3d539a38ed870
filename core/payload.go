package core

import (
	"fmt"
	"math/big"
)

// PayloadKind tags the variant carried by a Payload.
type PayloadKind string

const (
	PayloadContractCall PayloadKind = "contract_call"
	PayloadSubscribe    PayloadKind = "subscribe"
	PayloadWithdrawal   PayloadKind = "withdrawal"
	PayloadRenewal      PayloadKind = "renewal"
)

// Payload is a tagged variant: exactly one body field matching Kind is set.
// It travels inside a RelayRequestEnvelope and is snapshotted verbatim into
// the TransactionRecord so consumers can pattern-match on Kind instead of
// probing an untyped map.
type Payload struct {
	Kind     PayloadKind       `json:"kind"`
	Call     *CallPayload      `json:"call,omitempty"`
	Renewal  *RenewalPayload   `json:"renewal,omitempty"`
	Envelope *EnvelopeSnapshot `json:"envelope,omitempty"`
}

// CallPayload carries raw calldata for the forwarder execute path. It backs
// the contract_call, subscribe and withdrawal kinds; the latter two also
// annotate what the calldata encodes.
type CallPayload struct {
	Data   []byte `json:"data"`
	PlanID uint64 `json:"planId,omitempty"`
	Months uint64 `json:"months,omitempty"`
}

// RenewalPayload describes a scheduler-originated renewal charge. Renewals
// bypass the forwarder: the backend bills directly, so there is no calldata.
type RenewalPayload struct {
	Subscriber string `json:"subscriber"`
	PlanID     uint64 `json:"planId"`
	Months     uint64 `json:"months"`
}

// EnvelopeSnapshot preserves the envelope fields that are not already
// first-class columns on the TransactionRecord. Filled in by the relay at
// recording time.
type EnvelopeSnapshot struct {
	Value          *big.Int `json:"value"`
	GasLimit       uint64   `json:"gasLimit"`
	SequenceNumber uint64   `json:"sequenceNumber"`
}

// Validate checks the tag and that the matching body is present.
func (p Payload) Validate() error {
	switch p.Kind {
	case PayloadContractCall, PayloadSubscribe, PayloadWithdrawal:
		if p.Call == nil || len(p.Call.Data) == 0 {
			return fmt.Errorf("payload kind %q requires calldata: %w", p.Kind, ErrMalformedEnvelope)
		}
	case PayloadRenewal:
		if p.Renewal == nil || p.Renewal.Subscriber == "" {
			return fmt.Errorf("renewal payload requires a subscriber: %w", ErrMalformedEnvelope)
		}
	default:
		return fmt.Errorf("unknown payload kind %q: %w", p.Kind, ErrMalformedEnvelope)
	}
	return nil
}

// RecordKind maps the payload tag onto the transaction kind recorded in the
// audit trail.
func (p Payload) RecordKind() TransactionKind {
	switch p.Kind {
	case PayloadSubscribe:
		return KindSubscribe
	case PayloadWithdrawal:
		return KindWithdrawal
	case PayloadRenewal:
		return KindRenewal
	default:
		return KindRelayedAction
	}
}
