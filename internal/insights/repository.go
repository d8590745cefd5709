package insights

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
	GetByPassage(ctx context.Context, reference, text string) (*SavedInsight, error)
	Save(ctx context.Context, insight *SavedInsight) error
	LinkToUser(ctx context.Context, userID uuid.UUID, insightID int64) (bool, error)
	GetByIDForUser(ctx context.Context, userID uuid.UUID, insightID int64) (*SavedInsight, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]SavedInsight, error)
	ClearUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) GetByPassage(ctx context.Context, reference, text string) (*SavedInsight, error) {
	query := `
		SELECT id, passage_reference, passage_text, historical_context, theological_significance, practical_application, created_at
		FROM saved_insights
		WHERE passage_reference = $1 AND passage_text = $2`

	ins := &SavedInsight{}
	err := r.pool.QueryRow(ctx, query, reference, text).Scan(
		&ins.ID, &ins.PassageReference, &ins.PassageText,
		&ins.HistoricalContext, &ins.TheologicalSignificance, &ins.PracticalApplication,
		&ins.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying insight: %w", err)
	}
	return ins, nil
}

// Save inserts the insight, or resolves to the existing row when
// another request saved the same passage first. Either way the id on
// the struct is valid afterwards.
func (r *postgresRepository) Save(ctx context.Context, insight *SavedInsight) error {
	query := `
		INSERT INTO saved_insights (passage_reference, passage_text, historical_context, theological_significance, practical_application, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (passage_reference, passage_text) DO UPDATE SET passage_text = EXCLUDED.passage_text
		RETURNING id, created_at`

	insight.CreatedAt = time.Now().UTC()
	err := r.pool.QueryRow(ctx, query,
		insight.PassageReference, insight.PassageText,
		insight.HistoricalContext, insight.TheologicalSignificance, insight.PracticalApplication,
		insight.CreatedAt).
		Scan(&insight.ID, &insight.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving insight: %w", err)
	}
	return nil
}

func (r *postgresRepository) LinkToUser(ctx context.Context, userID uuid.UUID, insightID int64) (bool, error) {
	query := `
		INSERT INTO user_insights (user_id, insight_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, userID, insightID)
	if err != nil {
		return false, fmt.Errorf("linking insight %d to user: %w", insightID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetByIDForUser returns the insight only when the user is linked to it.
func (r *postgresRepository) GetByIDForUser(ctx context.Context, userID uuid.UUID, insightID int64) (*SavedInsight, error) {
	query := `
		SELECT i.id, i.passage_reference, i.passage_text, i.historical_context, i.theological_significance, i.practical_application, i.created_at
		FROM saved_insights i
		JOIN user_insights ui ON ui.insight_id = i.id
		WHERE ui.user_id = $1 AND i.id = $2`

	ins := &SavedInsight{}
	err := r.pool.QueryRow(ctx, query, userID, insightID).Scan(
		&ins.ID, &ins.PassageReference, &ins.PassageText,
		&ins.HistoricalContext, &ins.TheologicalSignificance, &ins.PracticalApplication,
		&ins.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying insight %d: %w", insightID, err)
	}
	return ins, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]SavedInsight, error) {
	query := `
		SELECT i.id, i.passage_reference, i.passage_text, i.historical_context, i.theological_significance, i.practical_application, i.created_at
		FROM saved_insights i
		JOIN user_insights ui ON ui.insight_id = i.id
		WHERE ui.user_id = $1
		ORDER BY i.created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing insights: %w", err)
	}
	defer rows.Close()

	var out []SavedInsight
	for rows.Next() {
		var ins SavedInsight
		if err := rows.Scan(
			&ins.ID, &ins.PassageReference, &ins.PassageText,
			&ins.HistoricalContext, &ins.TheologicalSignificance, &ins.PracticalApplication,
			&ins.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning insight row: %w", err)
		}
		out = append(out, ins)
	}
	return out, rows.Err()
}

func (r *postgresRepository) ClearUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_insights WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clearing insight links: %w", err)
	}
	return tag.RowsAffected(), nil
}
