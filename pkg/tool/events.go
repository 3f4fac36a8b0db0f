package tool

import "time"

// EventType labels invocation lifecycle events.
type EventType string

const (
	EventInvocationStarted   EventType = "invocation.started"
	EventInvocationCompleted EventType = "invocation.completed"
	EventInvocationFailed    EventType = "invocation.failed"
)

// Event records an invocation lifecycle transition. Argument values are
// deliberately excluded; subscribers that need them must capture them
// at the call site.
type Event struct {
	Type         EventType              `json:"type"`
	InvocationID string                 `json:"invocation_id"`
	Tool         string                 `json:"tool"`
	Actor        string                 `json:"actor,omitempty"`
	Class        Audience               `json:"class,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
	Data         map[string]interface{} `json:"data,omitempty"`
}

// EventHandler receives engine events. Handlers run synchronously on
// the invoking goroutine and must return quickly.
type EventHandler func(Event)
