package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/monpay/relayer/core"
	"github.com/monpay/relayer/ports"
)

// TransactionEvent is the wire form of a recorded transaction outcome.
type TransactionEvent struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Status    string    `json:"status"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     "monpay.transactions",
	}
}

// PublishTransaction publishes a transaction outcome event
func (p *WatermillPublisher) PublishTransaction(ctx context.Context, rec *core.TransactionRecord) error {
	event := TransactionEvent{
		ID:        rec.ID,
		From:      rec.From,
		To:        rec.To,
		Status:    string(rec.Status),
		Kind:      string(rec.Kind),
		CreatedAt: rec.CreatedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(rec.ID, payload)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
