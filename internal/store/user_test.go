package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cronpulse/cronpulse/internal/models"
)

func TestUserStoreCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := NewUserStore(db)

	u := &models.User{Email: "a@example.com", HashedPassword: "hash"}
	require.NoError(t, s.Create(ctx, u))
	require.NotZero(t, u.ID)

	byEmail, err := s.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", byID.Email)

	_, err = s.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUserStoreSetAdmin(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := NewUserStore(db)

	u := &models.User{Email: "a@example.com", HashedPassword: "hash"}
	require.NoError(t, s.Create(ctx, u))
	require.NoError(t, s.SetAdmin(ctx, u.ID, true))

	got, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)
}

func TestUserStoreDelete(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := NewUserStore(db)

	u := &models.User{Email: "a@example.com", HashedPassword: "hash"}
	require.NoError(t, s.Create(ctx, u))

	require.NoError(t, s.Delete(ctx, u.ID))
	assert.ErrorIs(t, s.Delete(ctx, u.ID), ErrNotFound)
}

func TestAPIKeyStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	user := seedUser(t, db, "a@example.com")
	s := NewAPIKeyStore(db)

	k := &models.APIKey{UserID: user.ID, Name: "ci", KeyHash: "hash", Prefix: "abcd1234"}
	require.NoError(t, s.Create(ctx, k))

	keys, err := s.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Nil(t, keys[0].LastUsedAt)

	used := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.UpdateLastUsed(ctx, k.ID, used))

	keys, err = s.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, keys[0].LastUsedAt)
	assert.True(t, keys[0].LastUsedAt.Equal(used))

	require.NoError(t, s.Delete(ctx, k.ID, user.ID))
	assert.ErrorIs(t, s.Delete(ctx, k.ID, user.ID), ErrNotFound)
}

func TestGormSettingsStoreUpsert(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := NewSettingsStore(db)

	v, err := s.Get(ctx, SettingSMTPHost)
	require.NoError(t, err)
	assert.Equal(t, "", v, "missing key resolves empty, not an error")

	require.NoError(t, s.Set(ctx, SettingSMTPHost, "smtp.example.com", false))
	require.NoError(t, s.Set(ctx, SettingSMTPPass, "hunter2", true))
	require.NoError(t, s.Set(ctx, SettingSMTPHost, "smtp2.example.com", false))

	v, err = s.Get(ctx, SettingSMTPHost)
	require.NoError(t, err)
	assert.Equal(t, "smtp2.example.com", v)

	public, err := s.All(ctx, false)
	require.NoError(t, err)
	assert.Contains(t, public, SettingSMTPHost)
	assert.NotContains(t, public, SettingSMTPPass)

	all, err := s.All(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", all[SettingSMTPPass])
}
