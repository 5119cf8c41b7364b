package events

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// EventTypeTurnStart opens a new assistant turn. The backend emits it at
	// the beginning of each agentic-loop iteration.
	EventTypeTurnStart EventType = "turn_start"
	// EventTypeContentDelta carries one chunk of assistant text.
	EventTypeContentDelta EventType = "content"

	// Tool lifecycle, keyed by tool call id for the duration of a turn.
	EventTypeToolCallStart     EventType = "tool_call_start"
	EventTypeToolCallArgsDelta EventType = "tool_call_delta"
	EventTypeToolCallExecute   EventType = "tool_call_execute"
	EventTypeToolResult        EventType = "tool_result"

	// Stream sentinels. No further events follow either of these.
	EventTypeStreamEnd   EventType = "complete"
	EventTypeStreamError EventType = "error"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

// EventMetadata carries correlation identifiers along with every event.
type EventMetadata struct {
	ID        uuid.UUID `json:"message_id"`
	SessionID string    `json:"session_id,omitempty"`
	TurnID    string    `json:"turn_id,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.SessionID != "" {
		e.Str("session_id", em.SessionID)
	}
	if em.TurnID != "" {
		e.Str("turn_id", em.TurnID)
	}
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// raw frame payload when the event was decoded off the wire
	payload []byte
}

func (e *EventImpl) Type() EventType         { return e.Type_ }
func (e *EventImpl) Metadata() EventMetadata { return e.Metadata_ }
func (e *EventImpl) Payload() []byte         { return e.payload }

// SetPayload stores the raw wire payload on the event. Used by DecodeFrame.
func (e *EventImpl) SetPayload(b []byte) { e.payload = b }

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

var _ Event = &EventImpl{}

type EventTurnStart struct {
	EventImpl
}

func NewTurnStartEvent(metadata EventMetadata) *EventTurnStart {
	return &EventTurnStart{
		EventImpl: EventImpl{Type_: EventTypeTurnStart, Metadata_: metadata},
	}
}

var _ Event = &EventTurnStart{}

// EventContentDelta is the event type for partial assistant text. Deltas only
// ever append to the open turn.
type EventContentDelta struct {
	EventImpl
	Text string `json:"text"`
}

func NewContentDeltaEvent(metadata EventMetadata, text string) *EventContentDelta {
	return &EventContentDelta{
		EventImpl: EventImpl{Type_: EventTypeContentDelta, Metadata_: metadata},
		Text:      text,
	}
}

var _ Event = &EventContentDelta{}

type EventToolCallStart struct {
	EventImpl
	ID   string `json:"id"`
	Name string `json:"name"`
}

func NewToolCallStartEvent(metadata EventMetadata, id string, name string) *EventToolCallStart {
	return &EventToolCallStart{
		EventImpl: EventImpl{Type_: EventTypeToolCallStart, Metadata_: metadata},
		ID:        id,
		Name:      name,
	}
}

var _ Event = &EventToolCallStart{}

// EventToolCallArgsDelta carries one fragment of a tool call's argument
// payload. Only the concatenation of all fragments for an id needs to be
// valid JSON.
type EventToolCallArgsDelta struct {
	EventImpl
	ID           string `json:"id"`
	ArgsFragment string `json:"arguments"`
}

func NewToolCallArgsDeltaEvent(metadata EventMetadata, id string, fragment string) *EventToolCallArgsDelta {
	return &EventToolCallArgsDelta{
		EventImpl:    EventImpl{Type_: EventTypeToolCallArgsDelta, Metadata_: metadata},
		ID:           id,
		ArgsFragment: fragment,
	}
}

var _ Event = &EventToolCallArgsDelta{}

// EventToolCallExecute signals that the backend started executing a tool
// whose arguments are fully streamed.
type EventToolCallExecute struct {
	EventImpl
	ID   string `json:"id"`
	Name string `json:"name"`
}

func NewToolCallExecuteEvent(metadata EventMetadata, id string, name string) *EventToolCallExecute {
	return &EventToolCallExecute{
		EventImpl: EventImpl{Type_: EventTypeToolCallExecute, Metadata_: metadata},
		ID:        id,
		Name:      name,
	}
}

var _ Event = &EventToolCallExecute{}

type EventToolResult struct {
	EventImpl
	ID      string `json:"tool_call_id"`
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Err     string `json:"error,omitempty"`
}

func NewToolResultEvent(metadata EventMetadata, id string, success bool, output string, errStr string) *EventToolResult {
	return &EventToolResult{
		EventImpl: EventImpl{Type_: EventTypeToolResult, Metadata_: metadata},
		ID:        id,
		Success:   success,
		Output:    output,
		Err:       errStr,
	}
}

var _ Event = &EventToolResult{}

type EventStreamEnd struct {
	EventImpl
}

func NewStreamEndEvent(metadata EventMetadata) *EventStreamEnd {
	return &EventStreamEnd{
		EventImpl: EventImpl{Type_: EventTypeStreamEnd, Metadata_: metadata},
	}
}

var _ Event = &EventStreamEnd{}

type EventStreamError struct {
	EventImpl
	Message string `json:"message"`
}

func NewStreamErrorEvent(metadata EventMetadata, message string) *EventStreamError {
	return &EventStreamError{
		EventImpl: EventImpl{Type_: EventTypeStreamError, Metadata_: metadata},
		Message:   message,
	}
}

var _ Event = &EventStreamError{}
