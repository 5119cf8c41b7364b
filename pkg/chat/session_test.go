package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/inkwell/pkg/events"
)

type recordingPublisher struct {
	snapshots []Snapshot
}

func (r *recordingPublisher) PublishSnapshot(payload interface{}) {
	if s, ok := payload.(Snapshot); ok {
		r.snapshots = append(r.snapshots, s)
	}
}

type recordingNotifier struct {
	messages []string
	kinds    []NotificationKind
}

func (r *recordingNotifier) Notify(message string, kind NotificationKind) {
	r.messages = append(r.messages, message)
	r.kinds = append(r.kinds, kind)
}

func applyFrames(t *testing.T, s *Session, frames ...string) {
	t.Helper()
	for _, f := range frames {
		ev := events.DecodeFrame(f)
		require.NotNil(t, ev, "frame did not decode: %s", f)
		s.Apply(ev)
	}
}

func TestSession_ContentOnlyTurn(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Begin("hi"))

	applyFrames(t, s,
		`data: {"type":"turn_start"}`,
		`data: {"type":"content","data":"Hello"}`,
		`data: {"type":"content","data":" world"}`,
		`data: [DONE]`,
	)

	snap := s.Snapshot()
	assert.False(t, snap.Busy)
	require.Len(t, snap.Turns, 2)

	assert.Equal(t, RoleUser, snap.Turns[0].Role)
	assert.Equal(t, "hi", snap.Turns[0].Content)

	final := snap.Turns[1]
	assert.Equal(t, RoleAssistant, final.Role)
	assert.Equal(t, "Hello world", final.Content)
	assert.Empty(t, final.ToolCalls)
}

func TestSession_ToolCallTurn(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Begin("search for x"))

	applyFrames(t, s,
		`data: {"type":"turn_start"}`,
		`data: {"type":"tool_call_start","data":{"id":"a","name":"search"}}`,
		`data: {"type":"tool_call_delta","data":{"id":"a","arguments":"{\"q\":"}}`,
		`data: {"type":"tool_call_delta","data":{"id":"a","arguments":"\"x\"}"}}`,
		`data: {"type":"tool_result","data":{"tool_call_id":"a","success":true,"output":"ok"}}`,
		`data: [DONE]`,
	)

	snap := s.Snapshot()
	require.Len(t, snap.Turns, 2)
	require.Len(t, snap.Turns[1].ToolCalls, 1)

	rec := snap.Turns[1].ToolCalls[0]
	assert.Equal(t, StatusSucceeded, rec.Status)
	assert.Equal(t, `{"q":"x"}`, rec.ArgsBuffer)
	assert.Equal(t, "ok", rec.Output)
}

func TestSession_BusyRejection(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Begin("first"))

	err := s.Begin("second")
	require.ErrorIs(t, err, ErrBusy)

	// the rejected submission left the guard unchanged
	snap := s.Snapshot()
	assert.True(t, snap.Busy)
	require.Len(t, snap.Turns, 1)
	assert.Equal(t, "first", snap.Turns[0].Content)

	// the cycle still completes normally
	applyFrames(t, s, `data: [DONE]`)
	assert.False(t, s.Busy())
	require.NoError(t, s.Begin("third"))
}

func TestSession_StreamErrorInterruptsAllOpenToolCalls(t *testing.T) {
	notifier := &recordingNotifier{}
	s := NewSession(WithNotifier(notifier))
	require.NoError(t, s.Begin("go"))

	applyFrames(t, s,
		`data: {"type":"turn_start"}`,
		`data: {"type":"content","data":"working on it"}`,
		`data: {"type":"tool_call_start","data":{"id":"a","name":"read_file"}}`,
		`data: {"type":"tool_call_start","data":{"id":"b","name":"edit_file"}}`,
		`data: {"type":"tool_call_delta","data":{"id":"b","arguments":"{\"pa"}}`,
		`data: {"type":"tool_call_start","data":{"id":"c","name":"write_file"}}`,
		`data: {"type":"tool_result","data":{"tool_call_id":"a","success":true,"output":"text"}}`,
		`data: {"type":"error","data":"connection reset"}`,
	)

	snap := s.Snapshot()
	assert.False(t, snap.Busy)
	require.Len(t, snap.Turns, 2)

	// partial progress stays visible
	final := snap.Turns[1]
	assert.Equal(t, "working on it", final.Content)
	require.Len(t, final.ToolCalls, 3)

	byID := map[string]ToolCallRecord{}
	for _, tc := range final.ToolCalls {
		byID[tc.ID] = tc
	}
	assert.Equal(t, StatusSucceeded, byID["a"].Status)
	assert.Equal(t, StatusInterrupted, byID["b"].Status)
	assert.Equal(t, StatusInterrupted, byID["c"].Status)

	// surfaced exactly once
	require.Equal(t, []string{"connection reset"}, notifier.messages)
	assert.Equal(t, NotifyError, notifier.kinds[0])

	// back to a clean idle state
	require.NoError(t, s.Begin("again"))
}

func TestSession_AbortRunsErrorFinalizationPath(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Begin("go"))

	applyFrames(t, s,
		`data: {"type":"content","data":"half a thou"}`,
		`data: {"type":"tool_call_start","data":{"id":"a","name":"search"}}`,
	)

	s.Abort()

	snap := s.Snapshot()
	assert.False(t, snap.Busy)
	final := snap.Turns[len(snap.Turns)-1]
	assert.Equal(t, "half a thou", final.Content)
	require.Len(t, final.ToolCalls, 1)
	assert.Equal(t, StatusInterrupted, final.ToolCalls[0].Status)

	// aborting an idle session is a no-op
	s.Abort()
	assert.Equal(t, snap, s.Snapshot())
}

func TestSession_SnapshotPerEvent(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewSession(WithPublisher(pub))
	require.NoError(t, s.Begin("go"))

	applyFrames(t, s,
		`data: {"type":"turn_start"}`,
		`data: {"type":"content","data":"a"}`,
		`data: {"type":"content","data":"b"}`,
		`data: [DONE]`,
	)

	// one snapshot for the submission and one per applied event
	require.Len(t, pub.snapshots, 5)

	// the open turn's content grows monotonically across snapshots
	assert.Equal(t, "a", pub.snapshots[2].Turns[1].Content)
	assert.Equal(t, "ab", pub.snapshots[3].Turns[1].Content)
	assert.True(t, pub.snapshots[0].Busy)
	assert.False(t, pub.snapshots[4].Busy)
}

func TestSession_NewTurnStartFreezesPreviousTurn(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Begin("go"))

	applyFrames(t, s,
		`data: {"type":"turn_start"}`,
		`data: {"type":"content","data":"first iteration"}`,
		`data: {"type":"tool_call_start","data":{"id":"a","name":"read_file"}}`,
		`data: {"type":"tool_result","data":{"tool_call_id":"a","success":true,"output":"text"}}`,
		`data: {"type":"turn_complete","data":{"iteration":1}}`,
		`data: {"type":"content","data":"second iteration"}`,
		`data: [DONE]`,
	)

	snap := s.Snapshot()
	require.Len(t, snap.Turns, 3)

	assert.Equal(t, "first iteration", snap.Turns[1].Content)
	require.Len(t, snap.Turns[1].ToolCalls, 1)

	assert.Equal(t, "second iteration", snap.Turns[2].Content)
	assert.Empty(t, snap.Turns[2].ToolCalls)
}

func TestSession_ContentWithoutExplicitTurnStart(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Begin("go"))

	applyFrames(t, s,
		`data: {"type":"content","data":"no turn_start frame"}`,
		`data: [DONE]`,
	)

	snap := s.Snapshot()
	require.Len(t, snap.Turns, 2)
	assert.Equal(t, "no turn_start frame", snap.Turns[1].Content)
}

func TestSession_ToolCallIDsScopedToTurn(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Begin("go"))

	applyFrames(t, s,
		`data: {"type":"turn_start"}`,
		`data: {"type":"tool_call_start","data":{"id":"a","name":"one"}}`,
		`data: {"type":"tool_result","data":{"tool_call_id":"a","success":true,"output":"1"}}`,
		`data: {"type":"turn_complete","data":{"iteration":1}}`,
		// same id in the next turn is a fresh record, not a duplicate
		`data: {"type":"tool_call_start","data":{"id":"a","name":"two"}}`,
		`data: {"type":"tool_result","data":{"tool_call_id":"a","success":false,"error":"nope"}}`,
		`data: [DONE]`,
	)

	snap := s.Snapshot()
	require.Len(t, snap.Turns, 3)
	assert.Equal(t, "one", snap.Turns[1].ToolCalls[0].Name)
	assert.Equal(t, StatusSucceeded, snap.Turns[1].ToolCalls[0].Status)
	assert.Equal(t, "two", snap.Turns[2].ToolCalls[0].Name)
	assert.Equal(t, StatusFailed, snap.Turns[2].ToolCalls[0].Status)
}

func TestSession_TransportFailureFinalizes(t *testing.T) {
	notifier := &recordingNotifier{}
	s := NewSession(WithNotifier(notifier))
	require.NoError(t, s.Begin("go"))

	applyFrames(t, s,
		`data: {"type":"content","data":"partial"}`,
		`data: {"type":"tool_call_start","data":{"id":"a","name":"search"}}`,
	)

	s.Fail("stream ended unexpectedly")

	snap := s.Snapshot()
	assert.False(t, snap.Busy)
	final := snap.Turns[len(snap.Turns)-1]
	assert.Equal(t, "partial", final.Content)
	assert.Equal(t, StatusInterrupted, final.ToolCalls[0].Status)
	assert.Equal(t, []string{"stream ended unexpectedly"}, notifier.messages)

	// failing twice notifies once
	s.Fail("again")
	assert.Len(t, notifier.messages, 1)
}

func TestSession_SnapshotIsDeepCopy(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Begin("go"))
	applyFrames(t, s,
		`data: {"type":"turn_start"}`,
		`data: {"type":"tool_call_start","data":{"id":"a","name":"search"}}`,
	)

	snap := s.Snapshot()
	snap.Turns[1].ToolCalls[0].Status = StatusFailed
	snap.Turns[1].Content = "mutated"

	fresh := s.Snapshot()
	assert.Equal(t, StatusPending, fresh.Turns[1].ToolCalls[0].Status)
	assert.Empty(t, fresh.Turns[1].Content)
}
