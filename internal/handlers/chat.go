package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"virallens-backend/internal/middleware"
	"virallens-backend/internal/models"
	"virallens-backend/internal/services"
)

type chatOrchestrator interface {
	StartChat(ctx context.Context, principal middleware.Principal, message string) (*services.ChatTurnResult, error)
	ContinueChat(ctx context.Context, principal middleware.Principal, chatID uuid.UUID, message string) (*services.ChatTurnResult, error)
	GetChat(ctx context.Context, principal middleware.Principal, chatID uuid.UUID) (*models.Chat, error)
	ListChats(ctx context.Context, principal middleware.Principal) ([]models.ChatListItem, error)
	DeleteChat(ctx context.Context, principal middleware.Principal, chatID uuid.UUID) error
}

type ChatHandler struct {
	chatService chatOrchestrator
	production  bool
}

func NewChatHandler(chatService chatOrchestrator, production bool) *ChatHandler {
	return &ChatHandler{chatService: chatService, production: production}
}

// Create starts a new chat from the request's first message.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}

	principal := middleware.GetPrincipal(r.Context())

	result, err := h.chatService.StartChat(r.Context(), principal, req.Message)
	if err != nil {
		handleServiceError(w, r, err, h.production)
		return
	}

	writeJSON(w, http.StatusOK, models.CreateChatResponse{
		ChatID:  result.ChatID,
		Title:   result.Title,
		Message: result.Reply,
	})
}

// Send appends a message to an existing chat.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}

	if req.ChatID == "" {
		writeError(w, http.StatusBadRequest, "chatId is required for /send route", "")
		return
	}

	chatID, err := uuid.Parse(req.ChatID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid chat ID", "")
		return
	}

	principal := middleware.GetPrincipal(r.Context())

	result, err := h.chatService.ContinueChat(r.Context(), principal, chatID, req.Message)
	if err != nil {
		handleServiceError(w, r, err, h.production)
		return
	}

	writeJSON(w, http.StatusOK, models.SendMessageResponse{
		ChatID:  result.ChatID,
		Message: result.Reply,
	})
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	chatID, err := uuid.Parse(chi.URLParam(r, "chatId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid chat ID", "")
		return
	}

	principal := middleware.GetPrincipal(r.Context())

	chat, err := h.chatService.GetChat(r.Context(), principal, chatID)
	if err != nil {
		handleServiceError(w, r, err, h.production)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"chat": chat})
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	chats, err := h.chatService.ListChats(r.Context(), principal)
	if err != nil {
		handleServiceError(w, r, err, h.production)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"chats": chats})
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	chatID, err := uuid.Parse(chi.URLParam(r, "chatId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid chat ID", "")
		return
	}

	principal := middleware.GetPrincipal(r.Context())

	if err := h.chatService.DeleteChat(r.Context(), principal, chatID); err != nil {
		handleServiceError(w, r, err, h.production)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat deleted"})
}
