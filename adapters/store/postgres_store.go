package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/monpay/relayer/core"
	"github.com/monpay/relayer/ports"
)

// Postgres schema expected by these stores:
//
//	CREATE TABLE transactions (
//	    id         TEXT PRIMARY KEY,
//	    from_addr  TEXT NOT NULL,
//	    to_addr    TEXT NOT NULL DEFAULT '',
//	    status     TEXT NOT NULL,
//	    kind       TEXT NOT NULL,
//	    payload    JSONB NOT NULL DEFAULT '{}',
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE INDEX transactions_from_idx ON transactions (from_addr, created_at DESC);
//	CREATE INDEX transactions_to_idx ON transactions (to_addr, created_at DESC);
//
//	CREATE TABLE subscriptions (
//	    subscriber     TEXT NOT NULL,
//	    plan_id        BIGINT NOT NULL,
//	    creator_addr   TEXT NOT NULL DEFAULT '',
//	    expires_at     TIMESTAMPTZ NOT NULL,
//	    auto_renew     BOOLEAN NOT NULL DEFAULT FALSE,
//	    billing_months BIGINT NOT NULL DEFAULT 1,
//	    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (subscriber, plan_id)
//	);
//	CREATE INDEX subscriptions_due_idx ON subscriptions (expires_at) WHERE auto_renew;

type transactionRow struct {
	ID        string          `db:"id"`
	FromAddr  string          `db:"from_addr"`
	ToAddr    string          `db:"to_addr"`
	Status    string          `db:"status"`
	Kind      string          `db:"kind"`
	Payload   json.RawMessage `db:"payload"`
	CreatedAt time.Time       `db:"created_at"`
}

func (r *transactionRow) toRecord() (*core.TransactionRecord, error) {
	var payload core.Payload
	if len(r.Payload) > 0 {
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode payload for %s: %w", r.ID, err)
		}
	}
	return &core.TransactionRecord{
		ID:        r.ID,
		From:      r.FromAddr,
		To:        r.ToAddr,
		Status:    core.TransactionStatus(r.Status),
		Kind:      core.TransactionKind(r.Kind),
		Payload:   payload,
		CreatedAt: r.CreatedAt,
	}, nil
}

// PostgresTransactionStore persists the audit trail in Postgres.
type PostgresTransactionStore struct {
	db *sqlx.DB
}

// NewPostgresTransactionStore creates a new Postgres transaction store
func NewPostgresTransactionStore(db *sqlx.DB) ports.TransactionStore {
	return &PostgresTransactionStore{db: db}
}

func (s *PostgresTransactionStore) Insert(ctx context.Context, rec *core.TransactionRecord) (*core.TransactionRecord, error) {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	// ON CONFLICT DO NOTHING keeps insertion idempotent under duplicate
	// receipt delivery; the follow-up read returns whichever record won.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, from_addr, to_addr, status, kind, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.From, rec.To, string(rec.Status), string(rec.Kind), payload, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	return s.FindByID(ctx, rec.ID)
}

func (s *PostgresTransactionStore) FindByID(ctx context.Context, id string) (*core.TransactionRecord, error) {
	var row transactionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT * FROM transactions WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toRecord()
}

func (s *PostgresTransactionStore) ListByAddress(ctx context.Context, address string, limit int) ([]core.TransactionRecord, error) {
	var rows []transactionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM transactions
		WHERE from_addr = $1 OR to_addr = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, address, limit)
	if err != nil {
		return nil, err
	}

	out := make([]core.TransactionRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

type subscriptionRow struct {
	Subscriber    string    `db:"subscriber"`
	PlanID        uint64    `db:"plan_id"`
	CreatorAddr   string    `db:"creator_addr"`
	ExpiresAt     time.Time `db:"expires_at"`
	AutoRenew     bool      `db:"auto_renew"`
	BillingMonths uint64    `db:"billing_months"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r *subscriptionRow) toSubscription() core.Subscription {
	return core.Subscription{
		Subscriber:          r.Subscriber,
		PlanID:              r.PlanID,
		CreatorAddress:      r.CreatorAddr,
		ExpiresAt:           r.ExpiresAt,
		AutoRenew:           r.AutoRenew,
		BillingPeriodMonths: r.BillingMonths,
		UpdatedAt:           r.UpdatedAt,
	}
}

// PostgresSubscriptionStore persists subscriptions in Postgres.
type PostgresSubscriptionStore struct {
	db *sqlx.DB
}

// NewPostgresSubscriptionStore creates a new Postgres subscription store
func NewPostgresSubscriptionStore(db *sqlx.DB) ports.SubscriptionStore {
	return &PostgresSubscriptionStore{db: db}
}

func (s *PostgresSubscriptionStore) Get(ctx context.Context, subscriber string, planID uint64) (*core.Subscription, error) {
	var row subscriptionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT * FROM subscriptions WHERE subscriber = $1 AND plan_id = $2
	`, subscriber, planID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sub := row.toSubscription()
	return &sub, nil
}

func (s *PostgresSubscriptionStore) Upsert(ctx context.Context, sub *core.Subscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (subscriber, plan_id, creator_addr, expires_at, auto_renew, billing_months, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (subscriber, plan_id) DO UPDATE SET
			creator_addr = EXCLUDED.creator_addr,
			expires_at = EXCLUDED.expires_at,
			auto_renew = EXCLUDED.auto_renew,
			billing_months = EXCLUDED.billing_months,
			updated_at = EXCLUDED.updated_at
	`, sub.Subscriber, sub.PlanID, sub.CreatorAddress, sub.ExpiresAt, sub.AutoRenew, sub.BillingPeriodMonths, time.Now())
	return err
}

func (s *PostgresSubscriptionStore) SetAutoRenew(ctx context.Context, subscriber string, planID uint64, autoRenew bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET auto_renew = $3, updated_at = $4
		WHERE subscriber = $1 AND plan_id = $2
	`, subscriber, planID, autoRenew, time.Now())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PostgresSubscriptionStore) UpdateExpiry(ctx context.Context, subscriber string, planID uint64, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET expires_at = $3, updated_at = $4
		WHERE subscriber = $1 AND plan_id = $2
	`, subscriber, planID, expiresAt, time.Now())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PostgresSubscriptionStore) ListBySubscriber(ctx context.Context, subscriber string) ([]core.Subscription, error) {
	var rows []subscriptionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM subscriptions
		WHERE subscriber = $1
		ORDER BY updated_at DESC
	`, subscriber)
	if err != nil {
		return nil, err
	}
	return toSubscriptions(rows), nil
}

func (s *PostgresSubscriptionStore) FindDue(ctx context.Context, now time.Time, limit int) ([]core.Subscription, error) {
	var rows []subscriptionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM subscriptions
		WHERE auto_renew AND expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	return toSubscriptions(rows), nil
}

func toSubscriptions(rows []subscriptionRow) []core.Subscription {
	out := make([]core.Subscription, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toSubscription())
	}
	return out
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
