package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one entry of a chat thread. Messages are append-only: once
// stored they are never edited or removed.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Chat struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	UserID    uuid.UUID `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChatListItem is the sidebar view of a chat, without message bodies.
type ChatListItem struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LLMMessage is a role/content pair in the shape the completion provider
// expects.
type LLMMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SendMessageRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chatId,omitempty"`
}

func (r SendMessageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Message, validation.Required.Error("Message is required")),
	)
}

type CreateChatResponse struct {
	ChatID  uuid.UUID `json:"chatId"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

type SendMessageResponse struct {
	ChatID  uuid.UUID `json:"chatId"`
	Message string    `json:"message"`
}
