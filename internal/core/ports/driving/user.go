package driving

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

type CreateUserRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     domain.Role `json:"role"`
}

// UpdateUserRequest is a partial update; nil fields keep their values.
type UpdateUserRequest struct {
	Name   *string      `json:"name,omitempty"`
	Role   *domain.Role `json:"role,omitempty"`
	Active *bool        `json:"active,omitempty"`
}

// SetupRequest bootstraps the first admin on a fresh deployment.
type SetupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type SetupResponse struct {
	User    *domain.User `json:"user"`
	Message string       `json:"message"`
}

// UserService manages accounts. Everything except Setup requires an
// admin caller; the HTTP layer enforces that.
type UserService interface {
	// Setup creates the initial admin. It refuses to run once any
	// user exists.
	Setup(ctx context.Context, req SetupRequest) (*SetupResponse, error)

	Create(ctx context.Context, req CreateUserRequest) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, id string, req UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, id string) error

	// SetPassword resets a user's password without the current one.
	SetPassword(ctx context.Context, id string, password string) error
}
