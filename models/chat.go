package models

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation session.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message    string `json:"message" binding:"required"`
	DocumentID string `json:"documentId" binding:"required"`
}

// Source is an attributed excerpt of a retrieved chunk.
type Source struct {
	Text string `json:"text"`
	Page int    `json:"page"`
}

// ChatResult is the structured answer of one chat turn.
type ChatResult struct {
	Message string   `json:"message"`
	Sources []Source `json:"sources"`
}

// ChatError is the payload sent over the realtime channel when a turn fails.
type ChatError struct {
	Error string `json:"error"`
}
