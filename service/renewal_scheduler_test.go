package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monpay/relayer/adapters/store"
	"github.com/monpay/relayer/core"
	"github.com/monpay/relayer/ports"
)

type schedulerFixture struct {
	gateway   *stubGateway
	records   *store.MemoryTransactionStore
	subs      *store.MemorySubscriptionStore
	scheduler *RenewalScheduler
	now       time.Time
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	f := &schedulerFixture{
		gateway: &stubGateway{},
		records: store.NewMemoryTransactionStore(),
		subs:    store.NewMemorySubscriptionStore(),
		now:     time.Now().UTC(),
	}
	relay := NewRelayService(f.gateway, f.records, &stubPublisher{})
	f.scheduler = NewRenewalScheduler(f.subs, relay, f.gateway, time.Hour)
	f.scheduler.now = func() time.Time { return f.now }
	return f
}

func (f *schedulerFixture) addSubscription(t *testing.T, subscriber string, planID uint64, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, f.subs.Upsert(context.Background(), &core.Subscription{
		Subscriber:          subscriber,
		PlanID:              planID,
		CreatorAddress:      creatorAddr,
		ExpiresAt:           expiresAt,
		AutoRenew:           true,
		BillingPeriodMonths: 1,
	}))
}

func TestRenewalScheduler_ConfirmedRenewal(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture(t)

	yesterday := f.now.Add(-24 * time.Hour)
	renewedUntil := f.now.Add(30 * 24 * time.Hour)
	f.addSubscription(t, userAddr, 7, yesterday)

	f.gateway.stateFn = func(subscriber string, planID uint64) (*ports.SubscriptionState, error) {
		return &ports.SubscriptionState{ExpiresAt: renewedUntil, AutoRenew: true}, nil
	}

	require.NoError(t, f.scheduler.RunOnce(ctx))

	// exactly one confirmed renewal record
	require.Equal(t, 1, f.records.Len())
	recs, err := f.records.ListByAddress(ctx, userAddr, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, core.KindRenewal, recs[0].Kind)
	assert.Equal(t, core.StatusConfirmed, recs[0].Status)

	// expiry advanced to the authoritative on-chain value
	sub, err := f.subs.Get(ctx, userAddr, 7)
	require.NoError(t, err)
	assert.True(t, sub.ExpiresAt.Equal(renewedUntil))
}

func TestRenewalScheduler_FailedRenewal(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture(t)

	yesterday := f.now.Add(-24 * time.Hour)
	f.addSubscription(t, userAddr, 7, yesterday)

	f.gateway.chargeFn = func(subscriber string, planID, months uint64) (*ports.Receipt, error) {
		return &ports.Receipt{ID: "0xfailed", Success: false}, nil
	}

	require.NoError(t, f.scheduler.RunOnce(ctx))

	// the failed attempt is in the audit trail
	rec, err := f.records.FindByID(ctx, "0xfailed")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, rec.Status)

	// the subscription is untouched and stays due for the next run
	sub, err := f.subs.Get(ctx, userAddr, 7)
	require.NoError(t, err)
	assert.True(t, sub.ExpiresAt.Equal(yesterday))
	assert.True(t, sub.AutoRenew)
}

func TestRenewalScheduler_BatchIsolation(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture(t)

	subscribers := []string{
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
		"0x3333333333333333333333333333333333333333",
	}
	for i, subscriber := range subscribers {
		f.addSubscription(t, subscriber, uint64(i+1), f.now.Add(-time.Duration(3-i)*time.Hour))
	}

	f.gateway.chargeFn = func(subscriber string, planID, months uint64) (*ports.Receipt, error) {
		if subscriber == subscribers[1] {
			return nil, core.ErrGatewayUnavailable
		}
		return &ports.Receipt{ID: "0xrenewal-" + subscriber, Success: true}, nil
	}

	require.NoError(t, f.scheduler.RunOnce(ctx))

	// all three were attempted; the middle failure aborted nothing
	assert.Equal(t, 3, f.gateway.chargeCalls)
	assert.Equal(t, 2, f.records.Len())

	_, err := f.records.FindByID(ctx, "0xrenewal-"+subscribers[2])
	assert.NoError(t, err)
}

func TestRenewalScheduler_NothingDue(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture(t)

	f.addSubscription(t, userAddr, 7, f.now.Add(24*time.Hour))

	require.NoError(t, f.scheduler.RunOnce(ctx))
	assert.Equal(t, 0, f.gateway.chargeCalls)
	assert.Equal(t, 0, f.records.Len())
}

func TestRenewalScheduler_StartStop(t *testing.T) {
	f := newSchedulerFixture(t)
	f.scheduler.interval = 50 * time.Millisecond

	f.scheduler.Start()
	time.Sleep(20 * time.Millisecond)
	f.scheduler.Stop()
}
