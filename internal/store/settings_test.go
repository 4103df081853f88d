package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSettingsStore struct {
	values  map[string]string
	secrets map[string]bool
}

func newMapSettingsStore() *mapSettingsStore {
	return &mapSettingsStore{values: map[string]string{}, secrets: map[string]bool{}}
}

func (m *mapSettingsStore) Get(ctx context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *mapSettingsStore) Set(ctx context.Context, key, value string, isSecret bool) error {
	m.values[key] = value
	m.secrets[key] = isSecret
	return nil
}

func (m *mapSettingsStore) All(ctx context.Context, includeSecrets bool) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range m.values {
		if m.secrets[k] && !includeSecrets {
			continue
		}
		out[k] = v
	}
	return out, nil
}

func TestResolverEnvironmentWins(t *testing.T) {
	ctx := context.Background()
	st := newMapSettingsStore()
	require.NoError(t, st.Set(ctx, SettingSMTPHost, "db.example.com", false))

	env := map[string]string{SettingSMTPHost: "env.example.com"}
	r := NewResolverWithEnv(st, func(k string) string { return env[k] })

	v, err := r.Get(ctx, SettingSMTPHost)
	require.NoError(t, err)
	assert.Equal(t, "env.example.com", v)
}

func TestResolverFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	st := newMapSettingsStore()
	require.NoError(t, st.Set(ctx, SettingSMTPPort, "587", false))

	r := NewResolverWithEnv(st, func(string) string { return "" })

	v, err := r.Get(ctx, SettingSMTPPort)
	require.NoError(t, err)
	assert.Equal(t, "587", v)
}

func TestResolverUnsetEverywhere(t *testing.T) {
	r := NewResolverWithEnv(newMapSettingsStore(), func(string) string { return "" })

	v, err := r.Get(context.Background(), SettingSMTPHost)
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestSMTPConfigured(t *testing.T) {
	ctx := context.Background()
	st := newMapSettingsStore()
	r := NewResolverWithEnv(st, func(string) string { return "" })

	ok, err := r.SMTPConfigured(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.Set(ctx, SettingSMTPHost, "smtp.example.com", false))
	require.NoError(t, st.Set(ctx, SettingSMTPPort, "587", false))
	ok, err = r.SMTPConfigured(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "sender email still missing")

	require.NoError(t, st.Set(ctx, SettingSenderEmail, "alerts@example.com", false))
	ok, err = r.SMTPConfigured(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSMTPConfiguredMixedLayers(t *testing.T) {
	ctx := context.Background()
	st := newMapSettingsStore()
	require.NoError(t, st.Set(ctx, SettingSMTPPort, "465", false))
	require.NoError(t, st.Set(ctx, SettingSenderEmail, "alerts@example.com", false))

	env := map[string]string{SettingSMTPHost: "smtp.example.com"}
	r := NewResolverWithEnv(st, func(k string) string { return env[k] })

	ok, err := r.SMTPConfigured(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
