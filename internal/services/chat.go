package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"virallens-backend/internal/middleware"
	"virallens-backend/internal/models"
)

// llmFallbackMessage stands in for the assistant reply when a new chat's
// first turn cannot reach the provider. It is returned to the client but
// never persisted.
const llmFallbackMessage = "Sorry, I could not generate a response at this time."

const titleMaxLen = 50

type chatStore interface {
	Create(ctx context.Context, title string, messages []models.Message, userID uuid.UUID) (*models.Chat, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	AppendMessage(ctx context.Context, id uuid.UUID, msg models.Message) (*models.Chat, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ChatListItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type replyGenerator interface {
	GenerateChatResponse(ctx context.Context, userMessage string, history []models.LLMMessage) (string, error)
}

// ChatService orchestrates a chat turn: persist the user's message, ask the
// provider for a reply with bounded history, persist the reply.
type ChatService struct {
	chats chatStore
	llm   replyGenerator
}

func NewChatService(chats chatStore, llm replyGenerator) *ChatService {
	return &ChatService{chats: chats, llm: llm}
}

// ChatTurnResult is what a completed (or degraded) turn returns to the
// handler. Title is only set for turns that created the chat.
type ChatTurnResult struct {
	ChatID uuid.UUID
	Title  string
	Reply  string
}

// StartChat creates a new chat owned by the principal, seeded with the user's
// message, and attempts one assistant reply. The chat and its first message
// are durable before the provider is called; on provider failure the turn
// degrades to a static fallback notice instead of failing, so the chat shell
// survives.
func (s *ChatService) StartChat(ctx context.Context, principal middleware.Principal, message string) (*ChatTurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, &ValidationError{Message: "Message is required"}
	}

	userMsg := models.Message{Role: models.RoleUser, Content: message, Timestamp: time.Now().UTC()}

	chat, err := s.chats.Create(ctx, deriveTitle(message), []models.Message{userMsg}, principal.ID)
	if err != nil {
		return nil, err
	}

	reply, err := s.llm.GenerateChatResponse(ctx, message, nil)
	if err != nil {
		log.Printf("LLM error on new chat %s: %v", chat.ID, err)
		return &ChatTurnResult{ChatID: chat.ID, Title: chat.Title, Reply: llmFallbackMessage}, nil
	}

	assistantMsg := models.Message{Role: models.RoleAssistant, Content: reply, Timestamp: time.Now().UTC()}
	if _, err := s.chats.AppendMessage(ctx, chat.ID, assistantMsg); err != nil {
		return nil, err
	}

	return &ChatTurnResult{ChatID: chat.ID, Title: chat.Title, Reply: reply}, nil
}

// ContinueChat appends the user's message to an existing chat and asks the
// provider for a reply over the chat's recent history. Unlike StartChat a
// provider failure is surfaced to the caller; the user message stays
// persisted either way.
func (s *ChatService) ContinueChat(ctx context.Context, principal middleware.Principal, chatID uuid.UUID, message string) (*ChatTurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, &ValidationError{Message: "Message is required"}
	}

	// Ownership is checked against a read before anything is written, so a
	// rejected caller never leaves a message in someone else's chat.
	chat, err := s.getOwnedChat(ctx, principal, chatID)
	if err != nil {
		return nil, err
	}

	history, err := recentHistory(chat.Messages)
	if err != nil {
		return nil, err
	}

	userMsg := models.Message{Role: models.RoleUser, Content: message, Timestamp: time.Now().UTC()}
	if _, err := s.chats.AppendMessage(ctx, chatID, userMsg); err != nil {
		return nil, err
	}

	reply, err := s.llm.GenerateChatResponse(ctx, message, history)
	if err != nil {
		return nil, err
	}

	assistantMsg := models.Message{Role: models.RoleAssistant, Content: reply, Timestamp: time.Now().UTC()}
	if _, err := s.chats.AppendMessage(ctx, chatID, assistantMsg); err != nil {
		return nil, err
	}

	return &ChatTurnResult{ChatID: chat.ID, Reply: reply}, nil
}

func (s *ChatService) GetChat(ctx context.Context, principal middleware.Principal, chatID uuid.UUID) (*models.Chat, error) {
	return s.getOwnedChat(ctx, principal, chatID)
}

func (s *ChatService) ListChats(ctx context.Context, principal middleware.Principal) ([]models.ChatListItem, error) {
	return s.chats.ListByUser(ctx, principal.ID)
}

func (s *ChatService) DeleteChat(ctx context.Context, principal middleware.Principal, chatID uuid.UUID) error {
	if _, err := s.getOwnedChat(ctx, principal, chatID); err != nil {
		return err
	}
	return s.chats.Delete(ctx, chatID)
}

func (s *ChatService) getOwnedChat(ctx context.Context, principal middleware.Principal, chatID uuid.UUID) (*models.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Chat not found"}
		}
		return nil, err
	}

	if chat.UserID != principal.ID {
		return nil, &ForbiddenError{Message: "Access denied"}
	}

	return chat, nil
}

// deriveTitle names a new chat after its first message, truncated to 50
// characters with an ellipsis marker.
func deriveTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= titleMaxLen {
		return message
	}
	return string(runes[:titleMaxLen]) + "..."
}

// recentHistory maps the chat's most recent messages to provider role/content
// pairs. A stored role outside user/assistant is corrupt data and fails the
// turn instead of being coerced.
func recentHistory(messages []models.Message) ([]models.LLMMessage, error) {
	if len(messages) > maxHistoryMessages {
		messages = messages[len(messages)-maxHistoryMessages:]
	}

	history := make([]models.LLMMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role != models.RoleUser && msg.Role != models.RoleAssistant {
			return nil, fmt.Errorf("chat contains message with unexpected role %q", msg.Role)
		}
		history = append(history, models.LLMMessage{Role: msg.Role, Content: msg.Content})
	}

	return history, nil
}
