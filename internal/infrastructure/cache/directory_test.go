package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/cache"
)

type mockUsers struct{ mock.Mock }

func (m *mockUsers) GetByIDs(ctx context.Context, ids []string) ([]*entity.User, error) {
	args := m.Called(ctx, ids)
	users, _ := args.Get(0).([]*entity.User)
	return users, args.Error(1)
}

type mockContacts struct{ mock.Mock }

func (m *mockContacts) GetByIDs(ctx context.Context, ids []string) ([]*entity.Contact, error) {
	args := m.Called(ctx, ids)
	contacts, _ := args.Get(0).([]*entity.Contact)
	return contacts, args.Error(1)
}

func TestUserDirectory_CachesHits(t *testing.T) {
	repo := new(mockUsers)
	ctx := context.Background()
	repo.On("GetByIDs", ctx, []string{"u1", "u2"}).
		Return([]*entity.User{{ID: "u1", Name: "Ana"}}, nil).Once()
	repo.On("GetByIDs", ctx, []string{"u2"}).Return([]*entity.User{}, nil).Once()

	dir := cache.NewUserDirectory(repo, 16, time.Minute)

	names, err := dir.Names(ctx, []string{"u1", "u2", "u1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"u1": "Ana"}, names)

	// u1 sale de la caché; u2 sigue sin existir y se vuelve a consultar.
	names, err = dir.Names(ctx, []string{"u1", "u2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"u1": "Ana"}, names)
	repo.AssertExpectations(t)
}

func TestContactDirectory_ActiveOnlyInOrder(t *testing.T) {
	repo := new(mockContacts)
	ctx := context.Background()
	repo.On("GetByIDs", ctx, []string{"c2", "c1", "c3"}).Return([]*entity.Contact{
		{ID: "c1", Email: "uno@empresa.co", Active: true},
		{ID: "c2", Email: "dos@empresa.co", Active: true},
		{ID: "c3", Email: "tres@empresa.co", Active: false},
	}, nil).Once()

	dir := cache.NewContactDirectory(repo, 16, time.Minute)
	emails, err := dir.Emails(ctx, []string{"c2", "c1", "c3", "c2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dos@empresa.co", "uno@empresa.co"}, emails)

	emails, err = dir.Emails(ctx, []string{"c1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"uno@empresa.co"}, emails)
	repo.AssertExpectations(t)
}
