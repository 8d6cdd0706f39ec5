package session

import (
	"context"
	"testing"

	"doc-tracker/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	user := &domain.User{Username: "alice", DisplayName: "Alice", Role: domain.RoleAdmin}

	sess, err := s.Create(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "alice", sess.Username)
	assert.True(t, sess.IsAdmin())

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "Alice", got.DisplayName)

	other, err := s.Create(ctx, user)
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, other.ID)

	require.NoError(t, s.Delete(ctx, sess.ID))
	_, err = s.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// logging out one session leaves the others alone
	_, err = s.Get(ctx, other.ID)
	assert.NoError(t, err)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseStore(t, NewRedisStore(client))

	// sessions are stored without a TTL
	for _, k := range mr.Keys() {
		assert.Zero(t, mr.TTL(k))
	}
}
