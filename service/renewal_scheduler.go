package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/monpay/relayer/core"
	"github.com/monpay/relayer/ports"
)

const defaultRenewalBatchSize = 50

// RenewalScheduler periodically scans for due auto-renewing subscriptions
// and bills each one through the relay. Records are processed independently:
// one subscriber's failure never aborts the batch. There is no intra-run
// retry; a failed renewal stays due and is picked up again on the next pass.
type RenewalScheduler struct {
	subs    ports.SubscriptionStore
	relay   *RelayService
	gateway ports.ExecutionGateway

	interval  time.Duration
	batchSize int
	now       func() time.Time

	stop chan struct{}
	done chan struct{}
}

// NewRenewalScheduler creates a new renewal scheduler
func NewRenewalScheduler(
	subs ports.SubscriptionStore,
	relay *RelayService,
	gateway ports.ExecutionGateway,
	interval time.Duration,
) *RenewalScheduler {
	return &RenewalScheduler{
		subs:      subs,
		relay:     relay,
		gateway:   gateway,
		interval:  interval,
		batchSize: defaultRenewalBatchSize,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the periodic loop. The first pass runs immediately.
func (s *RenewalScheduler) Start() {
	go s.run()
	log.Info().Dur("interval", s.interval).Msg("renewal scheduler started")
}

// Stop halts the loop between runs and waits for an in-flight pass to
// finish. A renewal already dispatched to the gateway is allowed to resolve
// so no pending external action is orphaned.
func (s *RenewalScheduler) Stop() {
	close(s.stop)
	<-s.done
	log.Info().Msg("renewal scheduler stopped")
}

func (s *RenewalScheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runPass()

	for {
		select {
		case <-ticker.C:
			s.runPass()
		case <-s.stop:
			return
		}
	}
}

func (s *RenewalScheduler) runPass() {
	if err := s.RunOnce(context.Background()); err != nil {
		log.Error().Err(err).Msg("renewal pass failed")
	}
}

// RunOnce executes a single renewal pass: scan due subscriptions up to the
// batch size, renew each one, isolate per-record failure. Exposed so tests
// and operators can drive passes deterministically.
func (s *RenewalScheduler) RunOnce(ctx context.Context) error {
	due, err := s.subs.FindDue(ctx, s.now(), s.batchSize)
	if err != nil {
		return fmt.Errorf("scan due subscriptions: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	log.Info().Int("due", len(due)).Msg("running renewal pass")

	for i := range due {
		sub := &due[i]
		if err := s.renew(ctx, sub); err != nil {
			log.Error().Err(err).
				Str("subscriber", sub.Subscriber).
				Uint64("planId", sub.PlanID).
				Msg("renewal failed")
			continue
		}
		log.Info().
			Str("subscriber", sub.Subscriber).
			Uint64("planId", sub.PlanID).
			Msg("subscription renewed")
	}

	return nil
}

func (s *RenewalScheduler) renew(ctx context.Context, sub *core.Subscription) error {
	rec, err := s.relay.SubmitRenewal(ctx, sub.Subscriber, sub.PlanID, sub.BillingPeriodMonths)
	if err != nil {
		return err
	}
	if rec.Status != core.StatusConfirmed {
		return fmt.Errorf("renewal tx %s: %w", rec.ID, core.ErrExecutionReverted)
	}

	// Re-read the authoritative expiry instead of computing it locally, so
	// the record cannot drift from the on-chain billing logic.
	state, err := s.gateway.SubscriptionState(ctx, sub.Subscriber, sub.PlanID)
	if err != nil {
		return fmt.Errorf("read renewed expiry: %w", err)
	}

	if err := s.subs.UpdateExpiry(ctx, sub.Subscriber, sub.PlanID, state.ExpiresAt); err != nil {
		return fmt.Errorf("update expiry: %w", err)
	}

	return nil
}
