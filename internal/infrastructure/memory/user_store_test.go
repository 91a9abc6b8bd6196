package memory

import (
	"context"
	"testing"
	"time"

	"github.com/ambulance-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, s *UserStore) *domain.User {
	t.Helper()
	phone := "+15551234567"
	u := &domain.User{UserID: "01U1", Username: "driver", Email: "Driver@Demo.com", Phone: &phone, Role: domain.RoleDriver}
	require.NoError(t, s.Put(context.Background(), u))
	return u
}

func TestUserStore_Lookups(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()
	u := seedUser(t, s)

	got, err := s.Get(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, "driver", got.Username)

	got, err = s.GetByEmail(ctx, "driver@demo.com")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)

	got, err = s.GetByUsername(ctx, "driver")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)

	got, err = s.GetByPhone(ctx, "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)

	_, err = s.GetByEmail(ctx, "nobody@demo.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserStore_Update(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()
	u := seedUser(t, s)
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Update(ctx, u.UserID, map[string]interface{}{"verified": true, "verified_at": at}))

	got, _ := s.Get(ctx, u.UserID)
	assert.True(t, got.Verified)
	require.NotNil(t, got.VerifiedAt)
	assert.Equal(t, at, *got.VerifiedAt)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestUserStore_Update_Errors(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()
	u := seedUser(t, s)

	assert.ErrorIs(t, s.Update(ctx, "missing", map[string]interface{}{"verified": true}), domain.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, u.UserID, map[string]interface{}{"nope": 1}), domain.ErrBadRequest)
}

func TestUserStore_List_SortedByID(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()
	require.NoError(t, s.Put(ctx, &domain.User{UserID: "b"}))
	require.NoError(t, s.Put(ctx, &domain.User{UserID: "a"}))

	users, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a", users[0].UserID)
}
