package models

import (
	"time"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Context is the running {topic, intent} summary of a conversation.
// Empty strings mean "not established yet". Once a topic is set it only
// changes when a clearly new topic appears or the session is reset.
type Context struct {
	Topic  string `json:"topic"`
	Intent string `json:"intent"`
}

// IsEmpty reports whether no context has been established yet.
func (c Context) IsEmpty() bool {
	return c.Topic == "" && c.Intent == ""
}

// Message is a single turn entry in a session. Immutable once appended.
type Message struct {
	ID        int64     `json:"id"` // monotonic within the session
	Role      string    `json:"role"`
	Text      string    `json:"text"`              // formatted display text
	RawText   string    `json:"rawText,omitempty"` // unformatted model output
	Timestamp time.Time `json:"timestamp"`
	Sources   []string  `json:"sources,omitempty"` // document names cited
}

// Session holds the in-flight conversation state for one chat session.
// Mutated only by the chat service, under per-session serialization.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Messages  []Message `json:"messages"`
	Context   Context   `json:"context"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FirstUserMessage returns the earliest user message, if any.
func (s *Session) FirstUserMessage() (Message, bool) {
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			return m, true
		}
	}
	return Message{}, false
}

// TurnRequest is the request body for POST /api/chat/message.
type TurnRequest struct {
	Message   string        `json:"message"`
	SessionID string        `json:"sessionId"`
	UserID    string        `json:"userId"`
	Documents []DocumentRef `json:"documents,omitempty"`
	Context   *Context      `json:"context,omitempty"`
	Language  string        `json:"language,omitempty"`
}

// TurnResponse is the result of one processed turn.
type TurnResponse struct {
	Response    string   `json:"response"` // formatted display text
	RawResponse string   `json:"rawResponse"`
	Sources     []string `json:"sources"`
	Context     Context  `json:"context"`
}

// ClearRequest is the request body for POST /api/chat/clear.
type ClearRequest struct {
	SessionID string `json:"sessionId"`
}

// ChatHistory is a durably persisted session transcript.
type ChatHistory struct {
	UserID    string    `json:"userId" bson:"userId"`
	SessionID string    `json:"sessionId" bson:"sessionId"`
	Title     string    `json:"title" bson:"title"`
	Messages  []Message `json:"messages" bson:"messages"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
