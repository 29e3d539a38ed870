package ports

import (
	"context"
	"time"

	"github.com/monpay/relayer/core"
)

// AccountDirectory is the durable address → nonce/session mapping consumed by
// the authenticator. Implementations must make ConsumeNonce an atomic
// compare-and-swap so two concurrent verifications cannot both consume the
// same nonce.
type AccountDirectory interface {
	// Get returns the account for a canonical address, or core.ErrNotFound.
	Get(ctx context.Context, address string) (*core.Account, error)

	// PutNonce upserts the account and replaces its pending nonce,
	// invalidating any prior unconsumed one.
	PutNonce(ctx context.Context, address, nonce string, issuedAt time.Time) error

	// ConsumeNonce rotates the nonce from expected to next only if expected
	// is still the pending nonce, and stamps the session issuance time.
	// Returns core.ErrNoPendingChallenge if the nonce has already been
	// consumed or replaced.
	ConsumeNonce(ctx context.Context, address, expected, next string, at time.Time) error
}

// TransactionStore is the append-only audit trail of relayed actions.
type TransactionStore interface {
	// Insert stores the record, keyed by its receipt ID. Insertion is
	// idempotent: a duplicate ID leaves the stored record untouched and
	// returns it.
	Insert(ctx context.Context, rec *core.TransactionRecord) (*core.TransactionRecord, error)

	// FindByID returns a record, or core.ErrNotFound.
	FindByID(ctx context.Context, id string) (*core.TransactionRecord, error)

	// ListByAddress returns recent records where the address is sender or
	// recipient, newest first.
	ListByAddress(ctx context.Context, address string, limit int) ([]core.TransactionRecord, error)
}

// SubscriptionStore holds subscription records keyed by (subscriber, planID).
type SubscriptionStore interface {
	Get(ctx context.Context, subscriber string, planID uint64) (*core.Subscription, error)
	Upsert(ctx context.Context, sub *core.Subscription) error
	SetAutoRenew(ctx context.Context, subscriber string, planID uint64, autoRenew bool) error

	// UpdateExpiry advances the expiry after a confirmed renewal. Committed
	// independently per record so a crash mid-batch loses at most the
	// in-flight subscription.
	UpdateExpiry(ctx context.Context, subscriber string, planID uint64, expiresAt time.Time) error

	ListBySubscriber(ctx context.Context, subscriber string) ([]core.Subscription, error)

	// FindDue returns up to limit subscriptions with autoRenew set and an
	// expiry at or before now, soonest-expired first.
	FindDue(ctx context.Context, now time.Time, limit int) ([]core.Subscription, error)
}
