package interfaces

import "context"

// EventType identifies a pub/sub event category.
type EventType string

const (
	// EventProductProgress carries a models.ProgressEvent payload.
	EventProductProgress EventType = "product_progress"
	// EventTaskStats carries a models.TaskStats snapshot payload.
	EventTaskStats EventType = "task_stats"
	// EventTaskCleanup carries the evicted task ID payload.
	EventTaskCleanup EventType = "task_cleanup"
)

// Event is a tagged message published through the event service.
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler processes a published event.
type EventHandler func(ctx context.Context, event Event) error

// EventService is the pub/sub channel between the engine, the progress
// monitor, and the push transport. Decoupled from any one transport so
// websocket/SSE/polling can be swapped without touching aggregation.
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	PublishSync(ctx context.Context, event Event) error
	Close() error
}
