package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

var _ driven.SessionStore = (*SessionStore)(nil)

// userSessionSetTTL bounds how long a user's session-ID set lingers
// after the last login. Individual sessions expire on their own TTL.
const userSessionSetTTL = 30 * 24 * time.Hour

// sessionKeys derives every Redis key a session touches. The record
// itself lives under the ID key; token, refresh-token, and per-user
// keys are lookup indexes pointing back at the ID.
type sessionKeys struct {
	record  string
	token   string
	refresh string
	user    string
}

func keysFor(session *domain.Session) sessionKeys {
	return sessionKeys{
		record:  "auth:session:" + session.ID,
		token:   "auth:token:" + session.Token,
		refresh: "auth:refresh:" + session.RefreshToken,
		user:    "auth:user-sessions:" + session.UserID,
	}
}

// SessionStore keeps analyst sessions in Redis. Expiry is delegated to
// Redis TTLs so there is no sweeper; a session vanishes with its keys.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Save writes the session record and its indexes in one pipeline.
// A session whose ExpiresAt has already passed is silently skipped.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	keys := keysFor(session)
	pipe := s.client.Pipeline()
	pipe.Set(ctx, keys.record, data, ttl)
	pipe.Set(ctx, keys.token, session.ID, ttl)
	pipe.Set(ctx, keys.refresh, session.ID, ttl)
	pipe.SAdd(ctx, keys.user, session.ID)
	pipe.Expire(ctx, keys.user, userSessionSetTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, "auth:session:"+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	return s.getByIndex(ctx, "auth:token:"+token)
}

func (s *SessionStore) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return s.getByIndex(ctx, "auth:refresh:"+refreshToken)
}

func (s *SessionStore) getByIndex(ctx context.Context, indexKey string) (*domain.Session, error) {
	id, err := s.client.Get(ctx, indexKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session index: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a session and its indexes. Deleting a session that no
// longer exists is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.remove(ctx, session)
}

func (s *SessionStore) DeleteByToken(ctx context.Context, token string) error {
	session, err := s.GetByToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.remove(ctx, session)
}

// DeleteByUser ends every session the user holds, the logout-everywhere
// path. Sessions that expired mid-iteration are skipped.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) error {
	setKey := "auth:user-sessions:" + userID
	ids, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			continue
		}
	}
	s.client.Del(ctx, setKey)
	return nil
}

// ListByUser returns the user's live sessions and prunes IDs whose
// records have expired out from under the set.
func (s *SessionStore) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	setKey := "auth:user-sessions:" + userID
	ids, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}

	var live []*domain.Session
	var stale []string
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			stale = append(stale, id)
		case err != nil:
			return nil, err
		case session.IsExpired():
			stale = append(stale, id)
		default:
			live = append(live, session)
		}
	}
	if len(stale) > 0 {
		s.client.SRem(ctx, setKey, stale)
	}
	return live, nil
}

func (s *SessionStore) remove(ctx context.Context, session *domain.Session) error {
	keys := keysFor(session)
	pipe := s.client.Pipeline()
	pipe.Del(ctx, keys.record, keys.token, keys.refresh)
	pipe.SRem(ctx, keys.user, session.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
