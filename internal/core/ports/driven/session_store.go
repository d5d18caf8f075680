package driven

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// SessionStore persists login sessions. The Redis adapter expires
// entries at the session's ExpiresAt; the Postgres adapter filters
// expired rows on read.
type SessionStore interface {
	Save(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByToken(ctx context.Context, token string) error

	// DeleteByUser removes every session a user holds, for
	// logout-everywhere and account deactivation.
	DeleteByUser(ctx context.Context, userID string) error

	// ListByUser returns the user's live sessions.
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
}
