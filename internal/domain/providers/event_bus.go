package providers

import (
	"context"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to case events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.CaseEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.CaseEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelCaseUpdates carries every case change for list views
	EventChannelCaseUpdates = "cases:updates"

	// EventChannelCasePrefix is the prefix for case-specific channels
	EventChannelCasePrefix = "case:"
)

// GetCaseChannel returns the channel name for a specific case
func GetCaseChannel(caseID string) string {
	return EventChannelCasePrefix + caseID
}
