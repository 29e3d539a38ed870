package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/monpay/relayer/core"
	"github.com/monpay/relayer/internal/eth"
	"github.com/monpay/relayer/ports"
)

const defaultHistoryLimit = 200

// RelayService accepts user-signed request envelopes, enforces monotonic
// per-account sequencing, drives the execution gateway and durably records
// every known outcome.
type RelayService struct {
	gateway ports.ExecutionGateway
	records ports.TransactionStore
	events  ports.EventPublisher

	now func() time.Time
}

// NewRelayService creates a new relay service
func NewRelayService(
	gateway ports.ExecutionGateway,
	records ports.TransactionStore,
	events ports.EventPublisher,
) *RelayService {
	return &RelayService{
		gateway: gateway,
		records: records,
		events:  events,
		now:     time.Now,
	}
}

// NextSequence returns the current next-valid sequence number for an account.
// Side-effect free.
func (s *RelayService) NextSequence(ctx context.Context, address string) (uint64, error) {
	addr, err := eth.NormalizeAddress(address)
	if err != nil {
		return 0, err
	}
	return s.gateway.GetSequence(ctx, addr)
}

// Submit validates and forwards a signed envelope, blocks until a receipt is
// available and records the outcome. A signed envelope is valid for exactly
// one sequence position: a mismatch against the gateway's current value fails
// with ErrStaleSequence before the execute path is ever reached. On
// ErrReceiptTimeout the outcome is unknown and no record is written.
func (s *RelayService) Submit(ctx context.Context, env *core.RelayRequestEnvelope, signature []byte) (*core.TransactionRecord, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if len(signature) == 0 {
		return nil, fmt.Errorf("missing signature: %w", core.ErrMalformedEnvelope)
	}

	seq, err := s.gateway.GetSequence(ctx, env.From)
	if err != nil {
		return nil, err
	}
	if seq != env.SequenceNumber {
		return nil, fmt.Errorf("account %s is at sequence %d, envelope carries %d: %w",
			env.From, seq, env.SequenceNumber, core.ErrStaleSequence)
	}

	receipt, err := s.gateway.Submit(ctx, env, signature)
	if err != nil {
		return nil, err
	}

	payload := env.Payload
	payload.Envelope = &core.EnvelopeSnapshot{
		Value:          env.Value,
		GasLimit:       env.GasLimit,
		SequenceNumber: env.SequenceNumber,
	}

	return s.record(ctx, &core.TransactionRecord{
		ID:        receipt.ID,
		From:      env.From,
		To:        env.To,
		Status:    statusFor(receipt),
		Kind:      payload.RecordKind(),
		Payload:   payload,
		CreatedAt: s.now(),
	})
}

// SubmitRenewal bills one renewal period for a subscription through the
// gateway and records the outcome, kind renewal. Used by the scheduler; the
// charge is authorized by the standing autoRenew flag, not a fresh envelope.
func (s *RelayService) SubmitRenewal(ctx context.Context, subscriber string, planID, months uint64) (*core.TransactionRecord, error) {
	addr, err := eth.NormalizeAddress(subscriber)
	if err != nil {
		return nil, err
	}
	if months == 0 {
		months = 1
	}

	receipt, err := s.gateway.ChargeRenewal(ctx, addr, planID, months)
	if err != nil {
		return nil, err
	}

	return s.record(ctx, &core.TransactionRecord{
		ID:     receipt.ID,
		From:   addr,
		Status: statusFor(receipt),
		Kind:   core.KindRenewal,
		Payload: core.Payload{
			Kind:    core.PayloadRenewal,
			Renewal: &core.RenewalPayload{Subscriber: addr, PlanID: planID, Months: months},
		},
		CreatedAt: s.now(),
	})
}

// History returns recent payment entries where the address is sender or
// recipient, newest first.
func (s *RelayService) History(ctx context.Context, address string) ([]core.PaymentEntry, error) {
	addr, err := eth.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	recs, err := s.records.ListByAddress(ctx, addr, defaultHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	entries := make([]core.PaymentEntry, 0, len(recs))
	for i := range recs {
		entries = append(entries, core.PaymentEntryFor(&recs[i], addr))
	}
	return entries, nil
}

func (s *RelayService) record(ctx context.Context, rec *core.TransactionRecord) (*core.TransactionRecord, error) {
	stored, err := s.records.Insert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("record transaction %s: %w", rec.ID, err)
	}

	if err := s.events.PublishTransaction(ctx, stored); err != nil {
		// The record is durable, which is the critical part; the event is
		// best-effort.
		log.Warn().Err(err).Str("txId", stored.ID).Msg("failed to publish transaction event")
	}

	log.Info().
		Str("txId", stored.ID).
		Str("from", stored.From).
		Str("kind", string(stored.Kind)).
		Str("status", string(stored.Status)).
		Msg("transaction recorded")

	return stored, nil
}

func statusFor(receipt *ports.Receipt) core.TransactionStatus {
	if receipt.Success {
		return core.StatusConfirmed
	}
	return core.StatusFailed
}
