package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	SetPro(ctx context.Context, id uuid.UUID, pro bool) error
	DeleteUserData(ctx context.Context, id uuid.UUID) (*DataDeletion, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, pro_subscription, created_at, updated_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query,
		user.ID, user.ProSubscription, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT id, pro_subscription, created_at, updated_at FROM users WHERE id = $1`

	user := &User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.ProSubscription, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user by id: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) SetPro(ctx context.Context, id uuid.UUID, pro bool) error {
	query := `UPDATE users SET pro_subscription = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, pro)
	if err != nil {
		return fmt.Errorf("updating pro subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", id)
	}
	return nil
}

// DeleteUserData clears the user's study history in one transaction and
// reports how many rows each category lost. The account itself stays.
func (r *postgresRepository) DeleteUserData(ctx context.Context, id uuid.UUID) (*DataDeletion, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	del := &DataDeletion{}

	tag, err := tx.Exec(ctx, `DELETE FROM user_insights WHERE user_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("deleting insight links: %w", err)
	}
	del.Insights = tag.RowsAffected()

	tag, err = tx.Exec(ctx, `DELETE FROM user_definitions WHERE user_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("deleting definition links: %w", err)
	}
	del.Definitions = tag.RowsAffected()

	tag, err = tx.Exec(ctx, `DELETE FROM chat_messages WHERE user_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("deleting chat messages: %w", err)
	}
	del.ChatMessages = tag.RowsAffected()

	// Standalone chat rows cascade to any remaining messages.
	tag, err = tx.Exec(ctx, `DELETE FROM chats WHERE user_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("deleting chats: %w", err)
	}
	del.StandaloneChats = tag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing delete transaction: %w", err)
	}
	return del, nil
}
