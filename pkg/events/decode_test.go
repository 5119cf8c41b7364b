package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame_ContentDelta(t *testing.T) {
	ev := DecodeFrame(`data: {"type":"content","data":"Hello"}`)
	require.NotNil(t, ev)

	delta, ok := ev.(*EventContentDelta)
	require.True(t, ok)
	assert.Equal(t, "Hello", delta.Text)
	assert.Equal(t, EventTypeContentDelta, delta.Type())
	assert.NotEmpty(t, delta.Payload())
}

func TestDecodeFrame_TurnStart(t *testing.T) {
	ev := DecodeFrame(`data: {"type":"turn_start"}`)
	require.NotNil(t, ev)
	_, ok := ev.(*EventTurnStart)
	require.True(t, ok)
}

func TestDecodeFrame_TurnCompleteMapsToTurnStart(t *testing.T) {
	ev := DecodeFrame(`data: {"type":"turn_complete","data":{"iteration":2}}`)
	require.NotNil(t, ev)
	_, ok := ev.(*EventTurnStart)
	require.True(t, ok)
}

func TestDecodeFrame_ToolCallStart(t *testing.T) {
	ev := DecodeFrame(`data: {"type":"tool_call_start","data":{"id":"a","name":"search"}}`)
	require.NotNil(t, ev)

	start, ok := ev.(*EventToolCallStart)
	require.True(t, ok)
	assert.Equal(t, "a", start.ID)
	assert.Equal(t, "search", start.Name)
}

func TestDecodeFrame_ToolCallArgsDelta(t *testing.T) {
	ev := DecodeFrame(`data: {"type":"tool_call_delta","data":{"id":"a","arguments":"{\"q\":"}}`)
	require.NotNil(t, ev)

	delta, ok := ev.(*EventToolCallArgsDelta)
	require.True(t, ok)
	assert.Equal(t, "a", delta.ID)
	assert.Equal(t, `{"q":`, delta.ArgsFragment)
}

func TestDecodeFrame_ToolCallExecute_NestedFunctionShape(t *testing.T) {
	// the backend's agentic loop emits completed calls with the nested
	// function shape
	ev := DecodeFrame(`data: {"type":"tool_call","data":{"id":"a","function":{"name":"read_file"}}}`)
	require.NotNil(t, ev)

	exec, ok := ev.(*EventToolCallExecute)
	require.True(t, ok)
	assert.Equal(t, "a", exec.ID)
	assert.Equal(t, "read_file", exec.Name)
}

func TestDecodeFrame_ToolResult(t *testing.T) {
	ev := DecodeFrame(`data: {"type":"tool_result","data":{"tool_call_id":"a","success":true,"output":"ok"}}`)
	require.NotNil(t, ev)

	res, ok := ev.(*EventToolResult)
	require.True(t, ok)
	assert.Equal(t, "a", res.ID)
	assert.True(t, res.Success)
	assert.Equal(t, "ok", res.Output)
}

func TestDecodeFrame_ToolResultFailure(t *testing.T) {
	ev := DecodeFrame(`data: {"type":"tool_result","data":{"tool_call_id":"a","success":false,"error":"file not found"}}`)
	require.NotNil(t, ev)

	res, ok := ev.(*EventToolResult)
	require.True(t, ok)
	assert.False(t, res.Success)
	assert.Equal(t, "file not found", res.Err)
}

func TestDecodeFrame_TerminationMarker(t *testing.T) {
	ev := DecodeFrame(`data: [DONE]`)
	require.NotNil(t, ev)
	_, ok := ev.(*EventStreamEnd)
	require.True(t, ok)
}

func TestDecodeFrame_StreamError(t *testing.T) {
	ev := DecodeFrame(`data: {"type":"error","data":"backend exploded"}`)
	require.NotNil(t, ev)

	errEv, ok := ev.(*EventStreamError)
	require.True(t, ok)
	assert.Equal(t, "backend exploded", errEv.Message)
}

func TestDecodeFrame_Malformed(t *testing.T) {
	cases := []struct {
		name  string
		frame string
	}{
		{"no prefix", `{"type":"content","data":"x"}`},
		{"empty payload", `data: `},
		{"invalid json", `data: {"type":"content","data":`},
		{"unknown type", `data: {"type":"mystery","data":"x"}`},
		{"content with non-string data", `data: {"type":"content","data":{"x":1}}`},
		{"tool start without id", `data: {"type":"tool_call_start","data":{"name":"search"}}`},
		{"tool result without id", `data: {"type":"tool_result","data":{"success":true}}`},
		{"garbage", `data: <<<>>>`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Nil(t, DecodeFrame(tc.frame))
		})
	}
}

func TestDecodeFrame_MalformedDoesNotAffectSurroundingFrames(t *testing.T) {
	frames := []string{
		`data: {"type":"content","data":"a"}`,
		`data: {"type":"content","data":`,
		`data: {"type":"content","data":"b"}`,
	}

	var decoded []Event
	for _, f := range frames {
		if ev := DecodeFrame(f); ev != nil {
			decoded = append(decoded, ev)
		}
	}

	require.Len(t, decoded, 2)
	assert.Equal(t, "a", decoded[0].(*EventContentDelta).Text)
	assert.Equal(t, "b", decoded[1].(*EventContentDelta).Text)
}
