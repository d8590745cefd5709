package bible

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	SavePassage(ctx context.Context, p *SavedPassage) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) SavePassage(ctx context.Context, p *SavedPassage) error {
	query := `
		INSERT INTO saved_passages (reference, book, chapter, verse_start, verse_end, translation, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	p.CreatedAt = time.Now().UTC()
	err := r.pool.QueryRow(ctx, query,
		p.Reference, p.Book, p.Chapter, p.VerseStart, p.VerseEnd, p.Translation, p.Text, p.CreatedAt).
		Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("inserting saved passage: %w", err)
	}
	return nil
}
