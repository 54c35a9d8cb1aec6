package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/providers"
)

func TestLocalEventBus_PublishSubscribe(t *testing.T) {
	bus := NewLocalEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.Subscribe(ctx, providers.EventChannelCaseUpdates)
	require.NoError(t, err)

	event := entities.NewCaseEvent("c1", entities.CaseEventUpdated, nil)
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelCaseUpdates, event))

	select {
	case got := <-events:
		assert.Equal(t, "c1", got.CaseID)
		assert.Equal(t, entities.CaseEventUpdated, got.EventType)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestLocalEventBus_CancelClosesChannel(t *testing.T) {
	bus := NewLocalEventBus()
	ctx, cancel := context.WithCancel(context.Background())

	events, err := bus.Subscribe(ctx, providers.EventChannelCaseUpdates)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestLocalEventBus_OtherChannelNotDelivered(t *testing.T) {
	bus := NewLocalEventBus()
	defer bus.Close()

	events, err := bus.Subscribe(context.Background(), providers.GetCaseChannel("a"))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), providers.GetCaseChannel("b"), entities.NewCaseEvent("b", entities.CaseEventDeleted, nil)))

	select {
	case <-events:
		t.Fatal("unexpected event")
	case <-time.After(50 * time.Millisecond):
	}
}
