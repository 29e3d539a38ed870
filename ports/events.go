package ports

import (
	"context"

	"github.com/monpay/relayer/core"
)

// EventPublisher notifies other systems about recorded transaction outcomes.
type EventPublisher interface {
	PublishTransaction(ctx context.Context, rec *core.TransactionRecord) error
}
