package pipeline

// EventType identifies the kind of engine event.
type EventType string

const (
	EventNodeStarted   EventType = "node_started"
	EventNodeSucceeded EventType = "node_succeeded"
	EventNodeFailed    EventType = "node_failed"
	EventNodeSkipped   EventType = "node_skipped"
	EventPassComplete  EventType = "pass_complete"
)

// Event is emitted by the engine after each node transition, for
// consumption by whatever presentation layer is attached. The core never
// depends on a GUI toolkit's event loop.
type Event struct {
	Type   EventType `json:"type"`
	NodeID string    `json:"node_id,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

// Observer receives engine events. Events may be delivered from worker
// goroutines, but never concurrently; the engine serializes delivery.
type Observer func(Event)
