package ports

import (
	"context"
	"time"

	"github.com/monpay/relayer/core"
)

// Receipt is the outcome returned by the execution backend after an action
// has been mined. ID is unique per action and keys the audit trail.
type Receipt struct {
	ID      string
	Success bool
}

// SubscriptionState is the authoritative on-chain view of a subscription.
type SubscriptionState struct {
	ExpiresAt time.Time
	AutoRenew bool
}

// ExecutionGateway is the opaque interface to the execution backend. The
// relay and authenticator never talk to the chain directly; everything goes
// through an explicitly constructed gateway instance.
type ExecutionGateway interface {
	// GetSequence returns the current next-valid sequence number for an account.
	GetSequence(ctx context.Context, address string) (uint64, error)

	// Submit forwards a signed envelope for execution and blocks until a
	// receipt is available or the bounded wait elapses (core.ErrReceiptTimeout).
	Submit(ctx context.Context, env *core.RelayRequestEnvelope, signature []byte) (*Receipt, error)

	// RecoverSigner recovers the address that signed the given message.
	RecoverSigner(message, signature []byte) (string, error)

	// ChargeRenewal bills one renewal period for a subscription and blocks
	// until a receipt is available.
	ChargeRenewal(ctx context.Context, subscriber string, planID, months uint64) (*Receipt, error)

	// SubscriptionState reads the authoritative expiry for a subscription.
	SubscriptionState(ctx context.Context, subscriber string, planID uint64) (*SubscriptionState, error)
}
