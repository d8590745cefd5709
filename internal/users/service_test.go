package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	users    map[uuid.UUID]*User
	deleted  []uuid.UUID
	deletion *DataDeletion
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:    map[uuid.UUID]*User{},
		deletion: &DataDeletion{},
	}
}

func (r *fakeRepository) Create(ctx context.Context, user *User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.users[id], nil
}

func (r *fakeRepository) SetPro(ctx context.Context, id uuid.UUID, pro bool) error {
	if user, ok := r.users[id]; ok {
		user.ProSubscription = pro
	}
	return nil
}

func (r *fakeRepository) DeleteUserData(ctx context.Context, id uuid.UUID) (*DataDeletion, error) {
	r.deleted = append(r.deleted, id)
	return r.deletion, nil
}

func TestCreateAnonymous(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	user, err := svc.CreateAnonymous(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.False(t, user.ProSubscription, "new accounts start on the free tier")
	assert.False(t, user.CreatedAt.IsZero())
	assert.Len(t, repo.users, 1)

	other, err := svc.CreateAnonymous(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, user.ID, other.ID)
}

func TestSetPro(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	user, err := svc.CreateAnonymous(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.SetPro(context.Background(), user.ID, true))

	got, err := svc.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, got.ProSubscription)
}

func TestClearUserData(t *testing.T) {
	repo := newFakeRepository()
	repo.deletion = &DataDeletion{Insights: 3, Definitions: 2, ChatMessages: 8, StandaloneChats: 1}
	svc := NewService(repo)

	user, err := svc.CreateAnonymous(context.Background())
	require.NoError(t, err)

	deleted, err := svc.ClearUserData(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(3), deleted.Insights)
	assert.Equal(t, int64(8), deleted.ChatMessages)
	assert.Equal(t, []uuid.UUID{user.ID}, repo.deleted)
}
