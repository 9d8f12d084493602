package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResetTokenTTL bounds how long a password reset link stays usable.
const ResetTokenTTL = 15 * time.Minute

var (
	ErrSessionNotFound    = errors.New("session not found or expired")
	ErrResetTokenNotFound = errors.New("reset token not found or expired")
)

// Store tracks live sessions and password reset tokens.
type Store interface {
	SaveSession(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	// SessionUser returns the user of a live session or ErrSessionNotFound.
	SessionUser(ctx context.Context, sessionID string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
	// RevokeUser ends every session of the user.
	RevokeUser(ctx context.Context, userID string) error
	SaveResetToken(ctx context.Context, token, userID string) error
	// ConsumeResetToken returns the token's user and invalidates the token.
	ConsumeResetToken(ctx context.Context, token string) (string, error)
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(id string) string      { return "session:" + id }
func userSessionsKey(id string) string { return "user_sessions:" + id }
func resetKey(token string) string     { return "reset_token:" + token }

func (s *RedisStore) SaveSession(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sessionID), userID, ttl)
	pipe.SAdd(ctx, userSessionsKey(userID), sessionID)
	pipe.Expire(ctx, userSessionsKey(userID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *RedisStore) SessionUser(ctx context.Context, sessionID string) (string, error) {
	val, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	return val, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, sessionID string) error {
	userID, err := s.SessionUser(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	pipe.SRem(ctx, userSessionsKey(userID), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) RevokeUser(ctx context.Context, userID string) error {
	ids, err := s.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userSessionsKey(userID))
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}
	return nil
}

func (s *RedisStore) SaveResetToken(ctx context.Context, token, userID string) error {
	return s.client.Set(ctx, resetKey(token), userID, ResetTokenTTL).Err()
}

func (s *RedisStore) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	val, err := s.client.GetDel(ctx, resetKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrResetTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read reset token: %w", err)
	}
	return val, nil
}

// MemoryStore keeps sessions in process. It is used when no Redis address is
// configured.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryItem
	resets   map[string]memoryItem
	now      func() time.Time
}

type memoryItem struct {
	userID  string
	expires time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryItem),
		resets:   make(map[string]memoryItem),
		now:      time.Now,
	}
}

func (s *MemoryStore) SaveSession(_ context.Context, sessionID, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = memoryItem{userID: userID, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) SessionUser(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.sessions[sessionID]
	if !ok || !s.now().Before(item.expires) {
		delete(s.sessions, sessionID)
		return "", ErrSessionNotFound
	}
	return item.userID, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) RevokeUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, item := range s.sessions {
		if item.userID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *MemoryStore) SaveResetToken(_ context.Context, token, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets[token] = memoryItem{userID: userID, expires: s.now().Add(ResetTokenTTL)}
	return nil
}

func (s *MemoryStore) ConsumeResetToken(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.resets[token]
	delete(s.resets, token)
	if !ok || !s.now().Before(item.expires) {
		return "", ErrResetTokenNotFound
	}
	return item.userID, nil
}
