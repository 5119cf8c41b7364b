package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/inkwell/pkg/chat"
	"github.com/go-go-golems/inkwell/pkg/render"
)

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	toolStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle    = lipgloss.NewStyle().Faint(true)
	promptStyle    = lipgloss.NewStyle().Bold(true)
)

var statusGlyph = map[chat.Status]string{
	chat.StatusPending:       "…",
	chat.StatusArgsStreaming: "…",
	chat.StatusExecuting:     "»",
	chat.StatusSucceeded:     "✓",
	chat.StatusFailed:        "✗",
	chat.StatusInterrupted:   "⊘",
}

// Model renders conversation snapshots. It holds no conversation state of
// its own: every update replaces the previous snapshot wholesale, which
// keeps re-rendering idempotent.
type Model struct {
	backend  *Backend
	renderer render.Renderer

	snapshot     chat.Snapshot
	notification string
	notifyKind   chat.NotificationKind
	input        string
	width        int
	quitting     bool
}

func NewModel(backend *Backend, renderer render.Renderer) Model {
	return Model{
		backend:  backend,
		renderer: renderer,
		width:    80,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case SnapshotMsg:
		m.snapshot = msg.Snapshot

	case NotificationMsg:
		m.notification = msg.Message
		m.notifyKind = msg.Kind

	case BackendFinishedMsg:
		if msg.Err != nil {
			log.Debug().Err(msg.Err).Msg("submission cycle finished with error")
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyEsc:
		m.backend.Interrupt()
		return m, nil

	case tea.KeyEnter:
		text := strings.TrimSpace(m.input)
		if text == "" {
			return m, nil
		}
		m.input = ""
		m.notification = ""
		return m, m.backend.Submit(text)

	case tea.KeyBackspace:
		if len(m.input) > 0 {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
		return m, nil

	case tea.KeySpace:
		m.input += " "
		return m, nil

	case tea.KeyRunes:
		m.input += string(msg.Runes)
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	for _, turn := range m.snapshot.Turns {
		sb.WriteString(m.viewTurn(turn))
		sb.WriteString("\n")
	}

	if m.notification != "" {
		style := statusStyle
		if m.notifyKind == chat.NotifyError {
			style = errorStyle
		}
		sb.WriteString(style.Render(m.notification))
		sb.WriteString("\n")
	}

	if m.snapshot.Busy {
		sb.WriteString(statusStyle.Render("generating… (esc to abort)"))
		sb.WriteString("\n")
	}

	sb.WriteString(promptStyle.Render("> "))
	sb.WriteString(m.input)
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) viewTurn(turn chat.ConversationTurn) string {
	var sb strings.Builder

	switch turn.Role {
	case chat.RoleUser:
		sb.WriteString(userStyle.Render("you"))
		sb.WriteString("\n")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")

	case chat.RoleAssistant:
		sb.WriteString(assistantStyle.Render("agent"))
		sb.WriteString("\n")
		rendered, err := m.renderer.Render(turn.Content)
		if err != nil {
			rendered = turn.Content
		}
		sb.WriteString(rendered)
		if !strings.HasSuffix(rendered, "\n") {
			sb.WriteString("\n")
		}
	}

	for _, tc := range turn.ToolCalls {
		sb.WriteString(toolStyle.Render(viewToolCall(tc)))
		sb.WriteString("\n")
	}

	return sb.String()
}

func viewToolCall(tc chat.ToolCallRecord) string {
	parts := []string{statusGlyph[tc.Status] + " " + toolLabel(tc)}

	if args, ok := tc.DisplayArgs(); ok {
		parts = append(parts, args)
	} else if tc.ArgsBuffer != "" {
		parts = append(parts, "("+args+")")
	}

	switch tc.Status {
	case chat.StatusSucceeded:
		if out := tc.DisplayOutput(); out != "" {
			parts = append(parts, "← "+out)
		}
	case chat.StatusFailed:
		parts = append(parts, "← "+tc.Err)
	}

	return strings.Join(parts, "  ")
}

func toolLabel(tc chat.ToolCallRecord) string {
	if tc.Name != "" {
		return tc.Name
	}
	return tc.ID
}
