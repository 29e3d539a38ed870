package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monpay/relayer/core"
)

func TestWatermillPublisher_PublishTransaction(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(context.Background(), "monpay.transactions")
	require.NoError(t, err)

	publisher := NewWatermillPublisher(pubSub)

	rec := &core.TransactionRecord{
		ID:        "0xhash",
		From:      "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		To:        "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Status:    core.StatusConfirmed,
		Kind:      core.KindRenewal,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, publisher.PublishTransaction(context.Background(), rec))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, rec.ID, msg.UUID)

		var event TransactionEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, rec.ID, event.ID)
		assert.Equal(t, string(core.StatusConfirmed), event.Status)
		assert.Equal(t, string(core.KindRenewal), event.Kind)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}
