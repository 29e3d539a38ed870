package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the terminal outcome recorded for a submitted action.
// A record is only written once the receipt is known, so Pending appears in
// the audit trail only when an operator backfills an outcome-unknown entry.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusConfirmed TransactionStatus = "confirmed"
	StatusFailed    TransactionStatus = "failed"
)

// TransactionKind classifies what the recorded action was.
type TransactionKind string

const (
	KindRelayedAction TransactionKind = "relayed_action"
	KindRenewal       TransactionKind = "renewal"
	KindWithdrawal    TransactionKind = "withdrawal"
	KindSubscribe     TransactionKind = "subscribe"
)

// TransactionRecord is one entry of the append-only audit trail. ID is the
// execution receipt identifier, which makes insertion idempotent under
// duplicate receipt delivery. Records are never updated or deleted.
type TransactionRecord struct {
	ID        string
	From      string
	To        string
	Status    TransactionStatus
	Kind      TransactionKind
	Payload   Payload
	CreatedAt time.Time
}

// weiDecimals is the exponent between the wei-denominated envelope value and
// the token amount shown in history views.
const weiDecimals = 18

// PaymentEntry is a read-model row derived from a TransactionRecord for an
// address's payment history.
type PaymentEntry struct {
	TxHash       string
	Counterparty string
	Amount       decimal.Decimal // token-denominated, converted from wei
	Status       TransactionStatus
	Kind         TransactionKind
	CreatedAt    time.Time
}

// PaymentEntryFor projects the record onto a history entry from the point of
// view of the given address.
func PaymentEntryFor(rec *TransactionRecord, address string) PaymentEntry {
	amount := decimal.Zero
	if rec.Payload.Envelope != nil && rec.Payload.Envelope.Value != nil {
		amount = decimal.NewFromBigInt(rec.Payload.Envelope.Value, -weiDecimals)
	}
	counterparty := rec.To
	if rec.From != address {
		counterparty = rec.From
	}
	return PaymentEntry{
		TxHash:       rec.ID,
		Counterparty: counterparty,
		Amount:       amount,
		Status:       rec.Status,
		Kind:         rec.Kind,
		CreatedAt:    rec.CreatedAt,
	}
}
