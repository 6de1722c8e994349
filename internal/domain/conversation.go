package domain

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// LogEntry is one message exchanged in a session.
type LogEntry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Stage     Stage  `json:"stage"`
	Timestamp string `json:"timestamp"`
}

// ConversationSession is the in-memory state of one intake dialogue.
type ConversationSession struct {
	ID       string         `json:"session_id"`
	Profile  StudentProfile `json:"profile"`
	Stage    Stage          `json:"stage"`
	Messages []LogEntry     `json:"messages"`
}

// NewConversationSession returns an empty session at the greeting stage.
func NewConversationSession(id string) *ConversationSession {
	return &ConversationSession{ID: id, Stage: StageGreeting}
}

// Clone returns a deep copy safe to hand outside the session lock.
func (s *ConversationSession) Clone() ConversationSession {
	out := *s
	out.Messages = append([]LogEntry(nil), s.Messages...)
	return out
}
