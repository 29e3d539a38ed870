package service

import (
	"context"
	"fmt"

	"github.com/monpay/relayer/core"
	"github.com/monpay/relayer/internal/eth"
	"github.com/monpay/relayer/ports"
)

// SubscriptionService manages subscription records on behalf of their owning
// subscriber. The renewal scheduler mutates the same store independently.
type SubscriptionService struct {
	subs ports.SubscriptionStore
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(subs ports.SubscriptionStore) *SubscriptionService {
	return &SubscriptionService{subs: subs}
}

// Upsert creates or replaces the subscription keyed by (subscriber, planID).
func (s *SubscriptionService) Upsert(ctx context.Context, sub *core.Subscription) error {
	subscriber, err := eth.NormalizeAddress(sub.Subscriber)
	if err != nil {
		return err
	}
	creator, err := eth.NormalizeAddress(sub.CreatorAddress)
	if err != nil {
		return err
	}

	cp := *sub
	cp.Subscriber = subscriber
	cp.CreatorAddress = creator
	if cp.BillingPeriodMonths == 0 {
		cp.BillingPeriodMonths = 1
	}

	if err := s.subs.Upsert(ctx, &cp); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// ListBySubscriber returns all subscriptions owned by the address.
func (s *SubscriptionService) ListBySubscriber(ctx context.Context, subscriber string) ([]core.Subscription, error) {
	addr, err := eth.NormalizeAddress(subscriber)
	if err != nil {
		return nil, err
	}
	return s.subs.ListBySubscriber(ctx, addr)
}

// CancelAutoRenew switches off automatic renewal; the subscription then
// lapses at its current expiry.
func (s *SubscriptionService) CancelAutoRenew(ctx context.Context, subscriber string, planID uint64) error {
	addr, err := eth.NormalizeAddress(subscriber)
	if err != nil {
		return err
	}
	return s.subs.SetAutoRenew(ctx, addr, planID, false)
}
