package chat

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/inkwell/pkg/events"
)

// ErrBusy rejects a submission while another one is in flight. Submissions
// are rejected, not queued; the caller retries once the session is idle.
var ErrBusy = errors.New("a submission is already in flight")

type NotificationKind string

const (
	NotifyInfo  NotificationKind = "info"
	NotifyError NotificationKind = "error"
)

// Notifier receives user-visible notifications. Renderers implement it;
// parsing-level faults never reach it.
type Notifier interface {
	Notify(message string, kind NotificationKind)
}

// SnapshotPublisher distributes snapshots to renderers. Satisfied by
// events.Distributor.
type SnapshotPublisher interface {
	PublishSnapshot(payload interface{})
}

// Session owns all conversation state for the duration of a turn: the frozen
// history, the open turn's aggregator, and the tool call registry. Events
// are applied strictly in wire order; after every one the session publishes
// a fresh snapshot, so renderers see each transition before the next event
// is decoded.
type Session struct {
	mu sync.Mutex

	id      string
	busy    bool
	history []ConversationTurn

	open       bool
	turnSeq    int
	aggregator *Aggregator
	registry   *Registry

	publisher SnapshotPublisher
	notifier  Notifier
}

type SessionOption func(*Session)

func WithPublisher(p SnapshotPublisher) SessionOption {
	return func(s *Session) {
		s.publisher = p
	}
}

func WithNotifier(n Notifier) SessionOption {
	return func(s *Session) {
		s.notifier = n
	}
}

func NewSession(options ...SessionOption) *Session {
	ret := &Session{
		id:         uuid.New().String(),
		aggregator: NewAggregator(),
		registry:   NewRegistry(),
	}

	for _, o := range options {
		o(ret)
	}

	return ret
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Begin opens one request cycle for a user submission. While a cycle is
// open, further submissions fail with ErrBusy and leave the session
// untouched.
func (s *Session) Begin(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return ErrBusy
	}

	s.busy = true
	s.history = append(s.history, ConversationTurn{
		ID:      s.nextTurnID(),
		Role:    RoleUser,
		Content: text,
	})
	s.publishLocked()

	return nil
}

// Apply consumes one decoded event and updates state. It must be called from
// a single goroutine, in wire order; the session publishes a snapshot before
// Apply returns so no transition is batched away from the renderer.
func (s *Session) Apply(ev events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case *events.EventTurnStart:
		s.freezeOpenLocked()
		s.openTurnLocked()

	case *events.EventContentDelta:
		s.ensureOpenLocked()
		s.aggregator.Append(e.Text)

	case *events.EventToolCallStart:
		s.ensureOpenLocked()
		s.registry.Start(e.ID, e.Name)

	case *events.EventToolCallArgsDelta:
		s.ensureOpenLocked()
		s.registry.AppendArgs(e.ID, e.ArgsFragment)

	case *events.EventToolCallExecute:
		s.ensureOpenLocked()
		s.registry.MarkExecuting(e.ID, e.Name)

	case *events.EventToolResult:
		s.ensureOpenLocked()
		s.registry.Finish(e.ID, e.Success, e.Output, e.Err)

	case *events.EventStreamEnd:
		s.finalizeLocked("", NotifyInfo)

	case *events.EventStreamError:
		s.finalizeLocked(e.Message, NotifyError)

	default:
		log.Debug().Str("type", string(ev.Type())).Msg("unhandled event type")
	}

	s.publishLocked()
}

// Abort cooperatively cancels the open cycle. It runs the same finalization
// path as a stream error: open tool calls interrupted, the turn frozen with
// its partial content, the session back to idle.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.busy {
		return
	}
	s.finalizeLocked("generation aborted", NotifyInfo)
	s.publishLocked()
}

// Fail finalizes after a transport failure that produced no error event
// (connection drop, abrupt EOF mid-frame).
func (s *Session) Fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.busy {
		return
	}
	s.finalizeLocked(message, NotifyError)
	s.publishLocked()
}

// Snapshot returns a deep copy of the conversation, open turn included.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) nextTurnID() string {
	s.turnSeq++
	return fmt.Sprintf("%s-%d", s.id, s.turnSeq)
}

func (s *Session) openTurnLocked() {
	s.open = true
	s.turnSeq++
	s.aggregator.Reset()
	s.registry.Reset()
}

// ensureOpenLocked tolerates backends that skip the explicit turn start and
// go straight to content or tool events.
func (s *Session) ensureOpenLocked() {
	if !s.open {
		s.openTurnLocked()
	}
}

// freezeOpenLocked converts the open assistant turn into an immutable
// history entry.
func (s *Session) freezeOpenLocked() {
	if !s.open {
		return
	}
	s.history = append(s.history, ConversationTurn{
		ID:        fmt.Sprintf("%s-%d", s.id, s.turnSeq),
		Role:      RoleAssistant,
		Content:   s.aggregator.Content(),
		ToolCalls: s.registry.Records(),
	})
	s.open = false
	s.aggregator.Reset()
	s.registry.Reset()
}

func (s *Session) finalizeLocked(message string, kind NotificationKind) {
	if n := s.registry.InterruptOpen(); n > 0 {
		log.Debug().Int("interrupted", n).Msg("interrupted open tool calls at end of stream")
	}
	s.freezeOpenLocked()
	s.busy = false

	if message != "" && s.notifier != nil {
		s.notifier.Notify(message, kind)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	turns := make([]ConversationTurn, 0, len(s.history)+1)
	for _, t := range s.history {
		tc := make([]ToolCallRecord, len(t.ToolCalls))
		copy(tc, t.ToolCalls)
		t.ToolCalls = tc
		turns = append(turns, t)
	}
	if s.open {
		turns = append(turns, ConversationTurn{
			ID:        fmt.Sprintf("%s-%d", s.id, s.turnSeq),
			Role:      RoleAssistant,
			Content:   s.aggregator.Content(),
			ToolCalls: s.registry.Records(),
		})
	}

	return Snapshot{
		SessionID: s.id,
		Busy:      s.busy,
		Turns:     turns,
	}
}

func (s *Session) publishLocked() {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishSnapshot(s.snapshotLocked())
}
