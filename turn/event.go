package turn

import "context"

// Origin tags a model stream event as user-visible text or tool-invocation
// framing. The model call interleaves both on one wire stream; the
// demultiplexer separates them.
type Origin string

const (
	OriginText       Origin = "text"
	OriginToolCall   Origin = "tool_call"
	OriginToolResult Origin = "tool_result"
)

// StreamEvent is one unit emitted by the model's streaming call.
type StreamEvent struct {
	Origin   Origin
	Text     string
	ToolName string
}

// EventStream is a lazy, ordered, finite-per-turn sequence of stream events.
// Next returns io.EOF once the source stream terminates. A new turn creates a
// new stream; mid-stream restart is not supported.
type EventStream interface {
	Next(ctx context.Context) (StreamEvent, error)
	Close() error
}

// EventType is emitted by the orchestrator for observability.
type EventType string

const (
	EventTypeTurnStarted        EventType = "turn_started"
	EventTypeCapabilityDegraded EventType = "capability_degraded"
	EventTypePolicyIntervention EventType = "policy_intervention"
	EventTypeTurnBlocked        EventType = "turn_blocked"
	EventTypeTurnCompleted      EventType = "turn_completed"
	EventTypeTurnFailed         EventType = "turn_failed"
)

// Event is intentionally compact so sinks can map it to logs or streams. It
// names the capability and error kind but never payload content.
type Event struct {
	TurnID      string    `json:"turn_id"`
	Type        EventType `json:"type"`
	Capability  Kind      `json:"capability,omitempty"`
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
	Description string    `json:"description,omitempty"`
}

type noopEventSink struct{}

func (noopEventSink) Publish(context.Context, Event) error {
	return nil
}
