package core

import "time"

// Subscription is a time-bound subscription of a wallet to a creator plan,
// uniquely keyed by (Subscriber, PlanID). ExpiresAt is advanced by the
// renewal scheduler from the authoritative on-chain value, never computed
// locally.
type Subscription struct {
	Subscriber          string
	PlanID              uint64
	CreatorAddress      string
	ExpiresAt           time.Time
	AutoRenew           bool
	BillingPeriodMonths uint64
	UpdatedAt           time.Time
}

// Due reports whether the subscription should be renewed at the given time.
func (s *Subscription) Due(now time.Time) bool {
	return s.AutoRenew && !s.ExpiresAt.After(now)
}
