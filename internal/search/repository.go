package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// Match is one chat message scored against the query.
type Match struct {
	MessageID  int64     `json:"message_id"`
	ChatID     *int64    `json:"chat_id,omitempty"`
	InsightID  *int64    `json:"insight_id,omitempty"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	Similarity float64   `json:"similarity"`
}

type Repository interface {
	UpdateEmbedding(ctx context.Context, messageID int64, embedding []float32) error
	SearchMessages(ctx context.Context, userID uuid.UUID, embedding []float32, limit int, threshold float64) ([]Match, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) UpdateEmbedding(ctx context.Context, messageID int64, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	_, err := r.pool.Exec(ctx,
		`UPDATE chat_messages SET embedding = $1 WHERE id = $2`, vec, messageID)
	if err != nil {
		return fmt.Errorf("storing embedding for message %d: %w", messageID, err)
	}
	return nil
}

func (r *postgresRepository) SearchMessages(ctx context.Context, userID uuid.UUID, embedding []float32, limit int, threshold float64) ([]Match, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx,
		`SELECT id, chat_id, insight_id, role, content, created_at,
		        1 - (embedding <=> $1) AS similarity
		 FROM chat_messages
		 WHERE user_id = $2
		   AND embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) >= $3
		 ORDER BY embedding <=> $1
		 LIMIT $4`,
		vec, userID, threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.MessageID, &m.ChatID, &m.InsightID, &m.Role, &m.Content, &m.CreatedAt, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
