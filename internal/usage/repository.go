package usage

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
	// ReserveCall atomically increments the user's counter for the day
	// unless the increment would pass the limit. It returns the calls
	// recorded for the day and whether the reservation was granted.
	ReserveCall(ctx context.Context, userID uuid.UUID, day time.Time, limit int) (int, bool, error)
	// ReleaseCall undoes one reservation, flooring at zero.
	ReleaseCall(ctx context.Context, userID uuid.UUID, day time.Time) error
	GetDay(ctx context.Context, userID uuid.UUID, day time.Time) (*Record, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) ReserveCall(ctx context.Context, userID uuid.UUID, day time.Time, limit int) (int, bool, error) {
	// Single statement so two concurrent calls can never both observe
	// count == limit-1 and both pass. The conditional update only fires
	// while the counter is still under the limit; at the limit no row
	// comes back.
	query := `
		INSERT INTO usage_tracking (user_id, day, llm_calls, created_at, updated_at)
		VALUES ($1, $2, 1, now(), now())
		ON CONFLICT (user_id, day) DO UPDATE
		SET llm_calls = usage_tracking.llm_calls + 1, updated_at = now()
		WHERE usage_tracking.llm_calls < $3
		RETURNING llm_calls`

	var calls int
	err := r.pool.QueryRow(ctx, query, userID, day, limit).Scan(&calls)
	if err == nil {
		return calls, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("reserving usage for %s: %w", userID, err)
	}

	// Denied. Report the count that blocked the reservation.
	rec, err := r.GetDay(ctx, userID, day)
	if err != nil {
		return 0, false, err
	}
	if rec == nil {
		return 0, false, fmt.Errorf("usage row for %s vanished during denial", userID)
	}
	return rec.LLMCalls, false, nil
}

func (r *postgresRepository) ReleaseCall(ctx context.Context, userID uuid.UUID, day time.Time) error {
	query := `
		UPDATE usage_tracking
		SET llm_calls = GREATEST(llm_calls - 1, 0), updated_at = now()
		WHERE user_id = $1 AND day = $2`

	if _, err := r.pool.Exec(ctx, query, userID, day); err != nil {
		return fmt.Errorf("releasing usage for %s: %w", userID, err)
	}
	return nil
}

func (r *postgresRepository) GetDay(ctx context.Context, userID uuid.UUID, day time.Time) (*Record, error) {
	query := `
		SELECT id, user_id, day, llm_calls, created_at, updated_at
		FROM usage_tracking
		WHERE user_id = $1 AND day = $2`

	rec := &Record{}
	err := r.pool.QueryRow(ctx, query, userID, day).Scan(
		&rec.ID, &rec.UserID, &rec.Day, &rec.LLMCalls, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying usage for %s: %w", userID, err)
	}
	return rec, nil
}

func (r *postgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM usage_tracking WHERE day < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting stale usage rows: %w", err)
	}
	return tag.RowsAffected(), nil
}
