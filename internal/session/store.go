package session

import (
	"context"
	"encoding/json"
	defError "errors"
	"time"

	"doc-tracker/internal/domain"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = defError.New("session not found")

// Store keeps sessions from login until logout. Sessions never expire.
type Store interface {
	Create(ctx context.Context, user *domain.User) (*domain.Session, error)
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}

func newSession(user *domain.User) *domain.Session {
	return &domain.Session{
		ID:          uuid.NewString(),
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		CreatedAt:   time.Now().UTC(),
	}
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func key(id string) string {
	return "session:" + id
}

func (s *RedisStore) Create(ctx context.Context, user *domain.User) (*domain.Session, error) {
	sess := newSession(user)
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, key(sess.ID), raw, 0).Err(); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, key(id)).Bytes()
	if defError.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, key(id)).Err()
}

type MemoryStore struct {
	sessions *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: gocache.New(gocache.NoExpiration, 0)}
}

func (s *MemoryStore) Create(_ context.Context, user *domain.User) (*domain.Session, error) {
	sess := newSession(user)
	s.sessions.Set(sess.ID, *sess, gocache.NoExpiration)
	return sess, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	sess := v.(domain.Session)
	return &sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.sessions.Delete(id)
	return nil
}
