package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"virallens-backend/internal/models"
)

// ChatRepo stores chat threads with their messages as a jsonb array on the
// chat row, mirroring the document shape the API exposes.
type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

func (r *ChatRepo) Create(ctx context.Context, title string, messages []models.Message, userID uuid.UUID) (*models.Chat, error) {
	raw, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to encode messages: %w", err)
	}

	chat := &models.Chat{
		ID:       uuid.New(),
		Title:    title,
		Messages: messages,
		UserID:   userID,
	}

	query := `
		INSERT INTO chats (id, title, messages, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err = r.pool.QueryRow(ctx, query, chat.ID, title, raw, userID).Scan(&chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

func (r *ChatRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	query := `SELECT id, title, messages, user_id, created_at, updated_at
		FROM chats WHERE id = $1`

	return r.scanChat(r.pool.QueryRow(ctx, query, id))
}

// AppendMessage pushes one message onto the chat's jsonb array in a single
// UPDATE. Concurrent appends to the same chat serialize at the row level, so
// both messages survive in some order instead of overwriting each other.
// Returns pgx.ErrNoRows when the chat does not exist.
func (r *ChatRepo) AppendMessage(ctx context.Context, id uuid.UUID, msg models.Message) (*models.Chat, error) {
	// jsonb || concatenates arrays, so the message is wrapped in one.
	raw, err := json.Marshal([]models.Message{msg})
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	query := `
		UPDATE chats
		SET messages = messages || $2::jsonb, updated_at = NOW()
		WHERE id = $1
		RETURNING id, title, messages, user_id, created_at, updated_at`

	return r.scanChat(r.pool.QueryRow(ctx, query, id, raw))
}

func (r *ChatRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ChatListItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, created_at, updated_at
		FROM chats
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := make([]models.ChatListItem, 0)
	for rows.Next() {
		var item models.ChatListItem
		if err := rows.Scan(&item.ID, &item.Title, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, item)
	}

	return chats, rows.Err()
}

func (r *ChatRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM chats WHERE id = $1", id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ChatRepo) scanChat(row rowScanner) (*models.Chat, error) {
	chat := &models.Chat{}
	var raw []byte

	err := row.Scan(&chat.ID, &chat.Title, &raw, &chat.UserID, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(raw, &chat.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages for chat %s: %w", chat.ID, err)
	}
	return chat, nil
}
