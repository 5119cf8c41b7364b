package chat

import (
	"github.com/rs/zerolog/log"
)

// Registry collects tool call records for the open turn, keyed by tool call
// id and kept in insertion order. It applies events strictly in wire order;
// protocol violations (duplicate starts, results for unknown ids) are logged
// and ignored rather than surfaced as errors.
type Registry struct {
	index   map[string]int
	records []ToolCallRecord
}

func NewRegistry() *Registry {
	return &Registry{
		index:   make(map[string]int),
		records: make([]ToolCallRecord, 0, 4),
	}
}

// Reset clears the registry scope for a new turn.
func (r *Registry) Reset() {
	r.index = make(map[string]int)
	r.records = r.records[:0]
}

// Records returns a snapshot of current records in insertion order. The copy
// keeps renderers from mutating registry state.
func (r *Registry) Records() []ToolCallRecord {
	out := make([]ToolCallRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Get returns a copy of the record for id.
func (r *Registry) Get(id string) (ToolCallRecord, bool) {
	idx, ok := r.index[id]
	if !ok {
		return ToolCallRecord{}, false
	}
	return r.records[idx], true
}

// Start registers a new pending tool call. A second start for an id already
// seen this turn is a protocol violation and is dropped with a diagnostic.
func (r *Registry) Start(id string, name string) {
	if id == "" {
		return
	}
	if _, ok := r.index[id]; ok {
		log.Warn().Str("tool_call_id", id).Str("name", name).Msg("duplicate tool call start, ignoring")
		return
	}
	idx := len(r.records)
	r.index[id] = idx
	r.records = append(r.records, ToolCallRecord{
		ID:     id,
		Name:   name,
		Status: StatusPending,
	})
}

// AppendArgs concatenates one argument fragment onto the record's buffer. The
// buffer is not required to be valid JSON until display time.
func (r *Registry) AppendArgs(id string, fragment string) {
	idx, ok := r.index[id]
	if !ok {
		log.Debug().Str("tool_call_id", id).Msg("args delta for unknown tool call, ignoring")
		return
	}
	rec := &r.records[idx]
	if rec.Status.Terminal() {
		log.Debug().Str("tool_call_id", id).Str("status", string(rec.Status)).Msg("args delta after terminal state, ignoring")
		return
	}
	if rec.Status == StatusPending {
		rec.Status = StatusArgsStreaming
	}
	rec.ArgsBuffer += fragment
}

// MarkExecuting flags that the backend started running the tool.
func (r *Registry) MarkExecuting(id string, name string) {
	idx, ok := r.index[id]
	if !ok {
		log.Debug().Str("tool_call_id", id).Msg("execute for unknown tool call, ignoring")
		return
	}
	rec := &r.records[idx]
	if rec.Status.Terminal() {
		return
	}
	if name != "" && rec.Name == "" {
		rec.Name = name
	}
	rec.Status = StatusExecuting
}

// Finish resolves the record to its terminal outcome. Exactly the first
// result wins; replays for an id already terminal are ignored, and a result
// for an id never started creates no record.
func (r *Registry) Finish(id string, success bool, output string, errStr string) {
	idx, ok := r.index[id]
	if !ok {
		log.Debug().Str("tool_call_id", id).Msg("result for unknown tool call, ignoring")
		return
	}
	rec := &r.records[idx]
	if rec.Status.Terminal() {
		log.Warn().Str("tool_call_id", id).Str("status", string(rec.Status)).Msg("result after terminal state, ignoring")
		return
	}
	if success {
		rec.Status = StatusSucceeded
	} else {
		rec.Status = StatusFailed
	}
	rec.Output = output
	rec.Err = errStr
}

// InterruptOpen forces every non-terminal record to Interrupted. This is the
// only externally driven transition; it runs when the stream ends while tool
// calls are still in flight, and must sweep all of them, not just the latest.
func (r *Registry) InterruptOpen() int {
	n := 0
	for i := range r.records {
		if !r.records[i].Status.Terminal() {
			r.records[i].Status = StatusInterrupted
			n++
		}
	}
	return n
}
