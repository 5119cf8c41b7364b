package chat

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one contiguous span of conversation authored by a
// single role. At most one assistant turn is open (still mutating) at a
// time; everything in a Snapshot is already a copy and safe to keep.
type ConversationTurn struct {
	ID        string           `json:"id"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`
}

// Snapshot is the read-only projection handed to renderers after every
// processed event. The open turn, if any, is the last element of Turns.
type Snapshot struct {
	SessionID string             `json:"session_id"`
	Busy      bool               `json:"busy"`
	Turns     []ConversationTurn `json:"turns"`
}
