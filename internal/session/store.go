// Package session keeps login sessions in Redis. A session created with
// remember-me outlives the regular TTL so the client stays signed in.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

type Session struct {
	Token      string          `json:"token"`
	UserID     string          `json:"user_id"`
	Email      string          `json:"email"`
	Role       models.UserRole `json:"role"`
	RememberMe bool            `json:"remember_me"`
	CreatedAt  time.Time       `json:"created_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

type Store interface {
	Create(ctx context.Context, userID, email string, role models.UserRole, rememberMe bool) (*Session, error)
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

type TTLs struct {
	Session    time.Duration
	RememberMe time.Duration
}

// For returns the lifetime of a session with the given remember-me choice
func (t TTLs) For(rememberMe bool) time.Duration {
	if rememberMe {
		return t.RememberMe
	}
	return t.Session
}

type redisStore struct {
	client redis.Cmdable
	ttls   TTLs
	now    func() time.Time
}

func NewRedisStore(client redis.Cmdable, ttls TTLs) Store {
	return &redisStore{
		client: client,
		ttls:   ttls,
		now:    time.Now,
	}
}

func key(token string) string {
	return "educheck:session:" + token
}

func (s *redisStore) Create(ctx context.Context, userID, email string, role models.UserRole, rememberMe bool) (*Session, error) {
	ttl := s.ttls.For(rememberMe)
	now := s.now().UTC()
	sess := &Session{
		Token:      uuid.NewString(),
		UserID:     userID,
		Email:      email,
		Role:       role,
		RememberMe: rememberMe,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, key(sess.Token), data, ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return sess, nil
}

func (s *redisStore) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.client.Get(ctx, key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

func (s *redisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, key(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
