package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/providers"
)

// LocalEventBus fans case events out to subscribers in the same process
type LocalEventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.CaseEvent]struct{}
	closed      bool
}

// NewLocalEventBus creates an in-process event bus
func NewLocalEventBus() *LocalEventBus {
	return &LocalEventBus{
		subscribers: make(map[string]map[chan *entities.CaseEvent]struct{}),
	}
}

var _ providers.EventBus = (*LocalEventBus)(nil)

// Publish delivers the event to every current subscriber of channel. Full
// subscriber buffers drop the event.
func (b *LocalEventBus) Publish(_ context.Context, channel string, event *entities.CaseEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for subscriber := range b.subscribers[channel] {
		select {
		case subscriber <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Subscriber channel full, skipping event")
		}
	}
	return nil
}

// Subscribe registers a buffered subscriber released when ctx is done
func (b *LocalEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.CaseEvent, error) {
	eventChan := make(chan *entities.CaseEvent, 100)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(eventChan)
		return eventChan, nil
	}
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.CaseEvent]struct{})
	}
	b.subscribers[channel][eventChan] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(channel, eventChan)
	}()

	return eventChan, nil
}

// Unsubscribe closes every subscriber of channel
func (b *LocalEventBus) Unsubscribe(_ context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for subscriber := range b.subscribers[channel] {
		close(subscriber)
	}
	delete(b.subscribers, channel)
	return nil
}

// Close closes every subscription
func (b *LocalEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for channel, subscribers := range b.subscribers {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}
	b.closed = true
	return nil
}

func (b *LocalEventBus) remove(channel string, eventChan chan *entities.CaseEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, ok := b.subscribers[channel]
	if !ok {
		return
	}
	if _, ok := subscribers[eventChan]; !ok {
		return
	}
	delete(subscribers, eventChan)
	close(eventChan)
	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
	}
}
