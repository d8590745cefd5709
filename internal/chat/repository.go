package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	CreateChat(ctx context.Context, chat *Chat) error
	// GetChat returns (nil, nil) when the chat does not exist or belongs
	// to another user.
	GetChat(ctx context.Context, userID uuid.UUID, chatID int64) (*Chat, error)
	ListChats(ctx context.Context, userID uuid.UUID) ([]Chat, error)
	DeleteChat(ctx context.Context, userID uuid.UUID, chatID int64) (bool, error)

	InsertMessage(ctx context.Context, msg *Message) error
	ListChatMessages(ctx context.Context, userID uuid.UUID, chatID int64) ([]Message, error)
	ListInsightMessages(ctx context.Context, userID uuid.UUID, insightID int64) ([]Message, error)
	ClearInsightMessages(ctx context.Context, userID uuid.UUID, insightID int64) (int64, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) CreateChat(ctx context.Context, chat *Chat) error {
	query := `
		INSERT INTO chats (user_id, passage_reference, passage_text, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	chat.CreatedAt = time.Now().UTC()
	err := r.pool.QueryRow(ctx, query,
		chat.UserID, chat.PassageReference, chat.PassageText, chat.CreatedAt).
		Scan(&chat.ID)
	if err != nil {
		return fmt.Errorf("creating chat: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetChat(ctx context.Context, userID uuid.UUID, chatID int64) (*Chat, error) {
	query := `
		SELECT id, user_id, passage_reference, passage_text, created_at
		FROM chats
		WHERE id = $1 AND user_id = $2`

	chat := &Chat{}
	err := r.pool.QueryRow(ctx, query, chatID, userID).Scan(
		&chat.ID, &chat.UserID, &chat.PassageReference, &chat.PassageText, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying chat %d: %w", chatID, err)
	}
	return chat, nil
}

func (r *postgresRepository) ListChats(ctx context.Context, userID uuid.UUID) ([]Chat, error) {
	query := `
		SELECT id, user_id, passage_reference, passage_text, created_at
		FROM chats
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()

	var out []Chat
	for rows.Next() {
		var chat Chat
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.PassageReference, &chat.PassageText, &chat.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat row: %w", err)
		}
		out = append(out, chat)
	}
	return out, rows.Err()
}

func (r *postgresRepository) DeleteChat(ctx context.Context, userID uuid.UUID, chatID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1 AND user_id = $2`, chatID, userID)
	if err != nil {
		return false, fmt.Errorf("deleting chat %d: %w", chatID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *postgresRepository) InsertMessage(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO chat_messages (user_id, chat_id, insight_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	msg.CreatedAt = time.Now().UTC()
	err := r.pool.QueryRow(ctx, query,
		msg.UserID, msg.ChatID, msg.InsightID, msg.Role, msg.Content, msg.CreatedAt).
		Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("inserting chat message: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListChatMessages(ctx context.Context, userID uuid.UUID, chatID int64) ([]Message, error) {
	query := `
		SELECT id, user_id, chat_id, insight_id, role, content, created_at
		FROM chat_messages
		WHERE chat_id = $1 AND user_id = $2
		ORDER BY created_at ASC`

	return r.listMessages(ctx, query, chatID, userID)
}

func (r *postgresRepository) ListInsightMessages(ctx context.Context, userID uuid.UUID, insightID int64) ([]Message, error) {
	query := `
		SELECT id, user_id, chat_id, insight_id, role, content, created_at
		FROM chat_messages
		WHERE insight_id = $1 AND user_id = $2
		ORDER BY created_at ASC`

	return r.listMessages(ctx, query, insightID, userID)
}

func (r *postgresRepository) listMessages(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing chat messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.ChatID, &msg.InsightID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat message row: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (r *postgresRepository) ClearInsightMessages(ctx context.Context, userID uuid.UUID, insightID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM chat_messages WHERE insight_id = $1 AND user_id = $2`, insightID, userID)
	if err != nil {
		return 0, fmt.Errorf("clearing insight messages: %w", err)
	}
	return tag.RowsAffected(), nil
}
