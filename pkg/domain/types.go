package domain

import "time"

// User is a registered account. Username and email are each unique
// across all users; uniqueness is enforced by the store.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleHuman     Role = "human"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one immutable entry in a conversation thread.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// HumanMessage builds a human-authored message.
func HumanMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleHuman, Content: content}
}

// SystemMessage builds a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

// AssistantMessage builds a model-authored message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}

// ThreadKey derives the conversation thread identifier for a user.
func ThreadKey(username string) string {
	return "user_" + username
}
