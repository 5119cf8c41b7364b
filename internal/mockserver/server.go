// Package mockserver serves a scripted version of the writing-agent
// backend's chat stream, for demos and manual testing of the client core.
package mockserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/inkwell/pkg/events"
)

type Server struct {
	addr string
	// Delay between frames; zero for tests.
	FrameDelay time.Duration
}

func NewServer(addr string) *Server {
	return &Server{
		addr:       addr,
		FrameDelay: 40 * time.Millisecond,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/chat", s.handleChat)
	return mux
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.addr).Msg("mock backend listening")
	return http.ListenAndServe(s.addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	for _, frame := range Script(req.Message) {
		select {
		case <-r.Context().Done():
			return
		default:
		}
		_, _ = fmt.Fprintf(w, "data: %s\n\n", frame)
		flusher.Flush()
		if s.FrameDelay > 0 {
			time.Sleep(s.FrameDelay)
		}
	}
}

// Script produces the frame payloads of one assistant turn with two
// overlapping tool calls, mirroring what the real backend streams while the
// agent reads and edits chapter files.
func Script(userMessage string) []string {
	frames := []string{
		envelope(events.EventTypeTurnStart, nil),
		envelope(events.EventTypeContentDelta, "Let me look at "),
		envelope(events.EventTypeContentDelta, "the current chapter first.\n"),
		envelope(events.EventTypeToolCallStart, map[string]any{"id": "tc-1", "name": "read_file"}),
		envelope(events.EventTypeToolCallArgsDelta, map[string]any{"id": "tc-1", "arguments": `{"path": "chap`}),
		envelope(events.EventTypeToolCallStart, map[string]any{"id": "tc-2", "name": "list_directory"}),
		envelope(events.EventTypeToolCallArgsDelta, map[string]any{"id": "tc-2", "arguments": `{"path": "chapters/"}`}),
		envelope(events.EventTypeToolCallArgsDelta, map[string]any{"id": "tc-1", "arguments": `ters/chapter_1.md"}`}),
		envelope(events.EventTypeToolCallExecute, map[string]any{"id": "tc-2", "name": "list_directory"}),
		envelope(events.EventTypeToolResult, map[string]any{
			"tool_call_id": "tc-2",
			"success":      true,
			"output":       "chapter_1.md\nchapter_2.md\noutline.md",
		}),
		envelope(events.EventTypeToolCallExecute, map[string]any{"id": "tc-1", "name": "read_file"}),
		envelope(events.EventTypeToolResult, map[string]any{
			"tool_call_id": "tc-1",
			"success":      true,
			"output":       "# Chapter 1\n\nIt was a dark and stormy night...",
		}),
		envelope(events.EventTypeContentDelta, "The chapter opens with the storm scene. "),
		envelope(events.EventTypeContentDelta, "You asked: *"+userMessage+"*. "),
		envelope(events.EventTypeContentDelta, "I'd tighten the first paragraph and move the reveal later."),
		events.TerminationMarker,
	}
	return frames
}

func envelope(t events.EventType, data any) string {
	b, err := json.Marshal(map[string]any{"type": t, "data": data})
	if err != nil {
		panic(err)
	}
	return string(b)
}
