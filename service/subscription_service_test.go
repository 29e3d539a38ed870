package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monpay/relayer/adapters/store"
	"github.com/monpay/relayer/core"
)

func TestSubscriptionService_Upsert(t *testing.T) {
	ctx := context.Background()
	subs := store.NewMemorySubscriptionStore()
	svc := NewSubscriptionService(subs)

	err := svc.Upsert(ctx, &core.Subscription{
		Subscriber:     "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		PlanID:         7,
		CreatorAddress: "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB",
		ExpiresAt:      time.Now().Add(30 * 24 * time.Hour),
		AutoRenew:      true,
	})
	require.NoError(t, err)

	// addresses are canonicalized and months default to one
	sub, err := subs.Get(ctx, userAddr, 7)
	require.NoError(t, err)
	assert.Equal(t, creatorAddr, sub.CreatorAddress)
	assert.Equal(t, uint64(1), sub.BillingPeriodMonths)

	t.Run("invalid subscriber", func(t *testing.T) {
		err := svc.Upsert(ctx, &core.Subscription{Subscriber: "bogus", CreatorAddress: creatorAddr})
		assert.ErrorIs(t, err, core.ErrInvalidAddress)
	})
}

func TestSubscriptionService_CancelAutoRenew(t *testing.T) {
	ctx := context.Background()
	subs := store.NewMemorySubscriptionStore()
	svc := NewSubscriptionService(subs)

	require.NoError(t, svc.Upsert(ctx, &core.Subscription{
		Subscriber:     userAddr,
		PlanID:         7,
		CreatorAddress: creatorAddr,
		AutoRenew:      true,
	}))

	require.NoError(t, svc.CancelAutoRenew(ctx, userAddr, 7))

	sub, err := subs.Get(ctx, userAddr, 7)
	require.NoError(t, err)
	assert.False(t, sub.AutoRenew)

	t.Run("unknown subscription", func(t *testing.T) {
		err := svc.CancelAutoRenew(ctx, userAddr, 99)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestSubscriptionService_ListBySubscriber(t *testing.T) {
	ctx := context.Background()
	subs := store.NewMemorySubscriptionStore()
	svc := NewSubscriptionService(subs)

	for _, planID := range []uint64{3, 1, 2} {
		require.NoError(t, svc.Upsert(ctx, &core.Subscription{
			Subscriber:     userAddr,
			PlanID:         planID,
			CreatorAddress: creatorAddr,
		}))
	}

	list, err := svc.ListBySubscriber(ctx, userAddr)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	other, err := svc.ListBySubscriber(ctx, creatorAddr)
	require.NoError(t, err)
	assert.Empty(t, other)
}
