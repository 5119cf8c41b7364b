package events

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

// DataPrefix is the envelope prefix of one wire frame; everything after it is
// the frame payload.
const DataPrefix = "data:"

// TerminationMarker is the literal out-of-band payload that closes a stream.
// It is not JSON and must be checked before payload parsing.
const TerminationMarker = "[DONE]"

// frameEnvelope is the JSON shape of every non-terminal payload. Data stays
// raw until the type is known.
type frameEnvelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
	Meta EventMetadata   `json:"meta,omitempty"`
}

type toolCallStartData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type toolCallDeltaData struct {
	ID           string `json:"id"`
	ArgsFragment string `json:"arguments"`
}

// toolCallExecuteData also accepts the backend's nested function shape
// ({"id": ..., "function": {"name": ...}}) next to the flat one.
type toolCallExecuteData struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

type toolResultData struct {
	ID      string `json:"tool_call_id"`
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Err     string `json:"error"`
}

// DecodeFrame parses one complete frame into a typed event. It returns nil
// for anything outside the recognized envelope or payload shapes: a corrupted
// frame must never take the stream down, it is logged and skipped.
func DecodeFrame(frame string) Event {
	if !strings.HasPrefix(frame, DataPrefix) {
		log.Debug().Str("frame", frame).Msg("frame without data prefix, skipping")
		return nil
	}
	payload := strings.TrimSpace(strings.TrimPrefix(frame, DataPrefix))
	if payload == "" {
		return nil
	}

	if payload == TerminationMarker {
		return NewStreamEndEvent(EventMetadata{})
	}

	var env frameEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		log.Warn().Err(err).Str("payload", payload).Msg("malformed frame payload, skipping")
		return nil
	}

	ev := decodeEnvelope(env)
	if ev == nil {
		return nil
	}
	if setter, ok := ev.(interface{ SetPayload([]byte) }); ok {
		setter.SetPayload([]byte(payload))
	}
	return ev
}

func decodeEnvelope(env frameEnvelope) Event {
	switch env.Type {
	case EventTypeTurnStart, "turn_complete":
		// turn_complete closes one agentic-loop iteration; the next
		// iteration is a fresh assistant turn, so both map to a turn start.
		return NewTurnStartEvent(env.Meta)

	case EventTypeContentDelta:
		var text string
		if err := json.Unmarshal(env.Data, &text); err != nil {
			logMalformed(env, err)
			return nil
		}
		return NewContentDeltaEvent(env.Meta, text)

	case EventTypeToolCallStart:
		var d toolCallStartData
		if err := json.Unmarshal(env.Data, &d); err != nil || d.ID == "" {
			logMalformed(env, err)
			return nil
		}
		return NewToolCallStartEvent(env.Meta, d.ID, d.Name)

	case EventTypeToolCallArgsDelta:
		var d toolCallDeltaData
		if err := json.Unmarshal(env.Data, &d); err != nil || d.ID == "" {
			logMalformed(env, err)
			return nil
		}
		return NewToolCallArgsDeltaEvent(env.Meta, d.ID, d.ArgsFragment)

	case EventTypeToolCallExecute, "tool_call":
		var d toolCallExecuteData
		if err := json.Unmarshal(env.Data, &d); err != nil || d.ID == "" {
			logMalformed(env, err)
			return nil
		}
		name := d.Name
		if name == "" {
			name = d.Function.Name
		}
		return NewToolCallExecuteEvent(env.Meta, d.ID, name)

	case EventTypeToolResult:
		var d toolResultData
		if err := json.Unmarshal(env.Data, &d); err != nil || d.ID == "" {
			logMalformed(env, err)
			return nil
		}
		return NewToolResultEvent(env.Meta, d.ID, d.Success, d.Output, d.Err)

	case EventTypeStreamEnd:
		return NewStreamEndEvent(env.Meta)

	case EventTypeStreamError:
		var msg string
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			logMalformed(env, err)
			return nil
		}
		return NewStreamErrorEvent(env.Meta, msg)
	}

	log.Debug().Str("type", string(env.Type)).Msg("unknown event type, skipping")
	return nil
}

func logMalformed(env frameEnvelope, err error) {
	log.Warn().Err(err).
		Str("type", string(env.Type)).
		Str("data", string(env.Data)).
		Msg("malformed event data, skipping")
}
