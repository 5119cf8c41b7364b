package chat

import (
	"encoding/json"
)

// Status tracks a tool call from its first wire event to its terminal
// outcome. Terminal records are never mutated again, whatever arrives later.
type Status string

const (
	StatusPending       Status = "pending"
	StatusArgsStreaming Status = "args-streaming"
	StatusExecuting     Status = "executing"
	StatusSucceeded     Status = "succeeded"
	StatusFailed        Status = "failed"
	StatusInterrupted   Status = "interrupted"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusInterrupted:
		return true
	default:
		return false
	}
}

// ToolCallRecord is the per-invocation state owned by the Registry. ID is the
// ownership key, unique for the lifetime of a turn.
type ToolCallRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ArgsBuffer string `json:"args_buffer"`
	Status     Status `json:"status"`
	Output     string `json:"output,omitempty"`
	Err        string `json:"error,omitempty"`
}

// OutputDisplayBudget bounds how much of a tool result is projected for
// display. The stored record always keeps the full output.
const OutputDisplayBudget = 1000

// TruncationMarker is appended whenever DisplayOutput cuts the output.
const TruncationMarker = "\n… [output truncated]"

// ArgsStreamingPlaceholder is what DisplayArgs reports while the accumulated
// argument fragments do not yet form valid JSON.
const ArgsStreamingPlaceholder = "arguments still streaming"

// DisplayOutput projects the stored output under the display budget. This is
// a display contract only; truncation never touches the record.
func (r ToolCallRecord) DisplayOutput() string {
	runes := []rune(r.Output)
	if len(runes) <= OutputDisplayBudget {
		return r.Output
	}
	return string(runes[:OutputDisplayBudget]) + TruncationMarker
}

// DisplayArgs returns the argument buffer once it parses as JSON. Until all
// fragments have arrived the buffer is usually not parseable; that is not an
// error, just not displayable yet.
func (r ToolCallRecord) DisplayArgs() (string, bool) {
	if r.ArgsBuffer == "" || !json.Valid([]byte(r.ArgsBuffer)) {
		return ArgsStreamingPlaceholder, false
	}
	return r.ArgsBuffer, true
}
