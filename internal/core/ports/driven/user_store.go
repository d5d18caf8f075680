package driven

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// UserStore persists accounts in Postgres. Emails are unique; Save
// upserts by ID.
type UserStore interface {
	Save(ctx context.Context, user *domain.User) error
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Delete(ctx context.Context, id string) error

	// UpdateLastLogin stamps the login time without rewriting the row.
	UpdateLastLogin(ctx context.Context, id string) error
}
