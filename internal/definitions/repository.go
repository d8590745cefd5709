package definitions

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
	GetByWord(ctx context.Context, word, reference, verseText string) (*SavedDefinition, error)
	Save(ctx context.Context, def *SavedDefinition) error
	LinkToUser(ctx context.Context, userID uuid.UUID, definitionID int64) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]SavedDefinition, error)
	ClearUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) GetByWord(ctx context.Context, word, reference, verseText string) (*SavedDefinition, error) {
	query := `
		SELECT id, word, passage_reference, verse_text, definition, biblical_usage, original_language, created_at
		FROM saved_definitions
		WHERE word = $1 AND passage_reference = $2 AND verse_text = $3`

	def := &SavedDefinition{}
	err := r.pool.QueryRow(ctx, query, word, reference, verseText).Scan(
		&def.ID, &def.Word, &def.PassageReference, &def.VerseText,
		&def.Definition, &def.BiblicalUsage, &def.OriginalLanguage, &def.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying definition: %w", err)
	}
	return def, nil
}

// Save inserts the definition, resolving races on the unique triple to
// the row that won.
func (r *postgresRepository) Save(ctx context.Context, def *SavedDefinition) error {
	query := `
		INSERT INTO saved_definitions (word, passage_reference, verse_text, definition, biblical_usage, original_language, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (word, passage_reference, verse_text) DO UPDATE SET word = EXCLUDED.word
		RETURNING id, created_at`

	def.CreatedAt = time.Now().UTC()
	err := r.pool.QueryRow(ctx, query,
		def.Word, def.PassageReference, def.VerseText,
		def.Definition, def.BiblicalUsage, def.OriginalLanguage, def.CreatedAt).
		Scan(&def.ID, &def.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving definition: %w", err)
	}
	return nil
}

func (r *postgresRepository) LinkToUser(ctx context.Context, userID uuid.UUID, definitionID int64) (bool, error) {
	query := `
		INSERT INTO user_definitions (user_id, definition_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, userID, definitionID)
	if err != nil {
		return false, fmt.Errorf("linking definition %d to user: %w", definitionID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]SavedDefinition, error) {
	query := `
		SELECT d.id, d.word, d.passage_reference, d.verse_text, d.definition, d.biblical_usage, d.original_language, d.created_at
		FROM saved_definitions d
		JOIN user_definitions ud ON ud.definition_id = d.id
		WHERE ud.user_id = $1
		ORDER BY d.created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing definitions: %w", err)
	}
	defer rows.Close()

	var out []SavedDefinition
	for rows.Next() {
		var def SavedDefinition
		if err := rows.Scan(
			&def.ID, &def.Word, &def.PassageReference, &def.VerseText,
			&def.Definition, &def.BiblicalUsage, &def.OriginalLanguage, &def.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning definition row: %w", err)
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

func (r *postgresRepository) ClearUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_definitions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clearing definition links: %w", err)
	}
	return tag.RowsAffected(), nil
}
