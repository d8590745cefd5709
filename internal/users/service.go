package users

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateAnonymous mints a fresh account for a new device session.
func (s *Service) CreateAnonymous(ctx context.Context) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating anonymous user: %w", err)
	}
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) SetPro(ctx context.Context, id uuid.UUID, pro bool) error {
	return s.repo.SetPro(ctx, id, pro)
}

func (s *Service) ClearUserData(ctx context.Context, id uuid.UUID) (*DataDeletion, error) {
	return s.repo.DeleteUserData(ctx, id)
}
