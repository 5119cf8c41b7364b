package ui

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/inkwell/pkg/chat"
	"github.com/go-go-golems/inkwell/pkg/client"
	"github.com/go-go-golems/inkwell/pkg/events"
)

// SnapshotMsg delivers a fresh conversation snapshot to the UI.
type SnapshotMsg struct {
	Snapshot chat.Snapshot
}

// NotificationMsg surfaces a user-visible notification.
type NotificationMsg struct {
	Message string                `json:"message"`
	Kind    chat.NotificationKind `json:"kind"`
}

// BackendFinishedMsg signals that the submission cycle returned.
type BackendFinishedMsg struct {
	Err error
}

// Backend bridges the UI to the transport client. Submissions run in a
// bubbletea command; the resulting stream updates arrive independently
// through the snapshot topic.
type Backend struct {
	ctx    context.Context
	client *client.Client
}

func NewBackend(ctx context.Context, c *client.Client) *Backend {
	return &Backend{ctx: ctx, client: c}
}

func (b *Backend) Submit(text string) tea.Cmd {
	return func() tea.Msg {
		err := b.client.Submit(b.ctx, text)
		if errors.Is(err, chat.ErrBusy) {
			return NotificationMsg{Message: "still generating, hang on", Kind: chat.NotifyInfo}
		}
		return BackendFinishedMsg{Err: err}
	}
}

func (b *Backend) Interrupt() {
	b.client.Abort()
}

// SnapshotForwardFunc returns a watermill handler that unmarshals snapshot
// messages and forwards them into the bubbletea program.
func SnapshotForwardFunc(p *tea.Program) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		msg.Ack()

		var snapshot chat.Snapshot
		if err := json.Unmarshal(msg.Payload, &snapshot); err != nil {
			log.Error().Err(err).Msg("failed to parse snapshot message")
			return nil
		}

		p.Send(SnapshotMsg{Snapshot: snapshot})
		return nil
	}
}

// NotificationForwardFunc returns a watermill handler that forwards
// notification messages into the bubbletea program.
func NotificationForwardFunc(p *tea.Program) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		msg.Ack()

		var notification NotificationMsg
		if err := json.Unmarshal(msg.Payload, &notification); err != nil {
			log.Error().Err(err).Msg("failed to parse notification message")
			return nil
		}

		p.Send(notification)
		return nil
	}
}

// RouterNotifier implements chat.Notifier by distributing notifications on
// the notification topic, so they reach the renderer the same way snapshots
// do.
type RouterNotifier struct {
	distributor *events.Distributor
}

func NewRouterNotifier(d *events.Distributor) *RouterNotifier {
	return &RouterNotifier{distributor: d}
}

func (n *RouterNotifier) Notify(message string, kind chat.NotificationKind) {
	n.distributor.PublishNotification(NotificationMsg{Message: message, Kind: kind})
}

var _ chat.Notifier = (*RouterNotifier)(nil)
