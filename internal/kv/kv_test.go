package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	value := []byte(`[1,2]`)
	require.NoError(t, m.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(got))
}

type mockCmdable struct {
	data   map[string]string
	setErr error
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	if m.setErr != nil {
		return redis.NewStatusResult("", m.setErr)
	}
	m.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func TestRedis_GetSet(t *testing.T) {
	ctx := context.Background()
	mock := &mockCmdable{data: map[string]string{}}
	r := &Redis{store: mock}

	_, err := r.Get(ctx, "agrisense-notifications")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.Set(ctx, "agrisense-notifications", []byte(`[]`)))
	assert.Equal(t, `[]`, mock.data["agrisense:agrisense-notifications"])

	got, err := r.Get(ctx, "agrisense-notifications")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestRedis_SetError(t *testing.T) {
	r := &Redis{store: &mockCmdable{data: map[string]string{}, setErr: errors.New("READONLY")}}
	err := r.Set(context.Background(), "k", []byte("v"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READONLY")
}

func TestRedis_Uninitialized(t *testing.T) {
	r := &Redis{}
	_, err := r.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.NoError(t, r.Close())
}
