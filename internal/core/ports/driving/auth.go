package driving

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// AuthService is the login surface used by the HTTP layer.
type AuthService interface {
	// Authenticate checks credentials and opens a session.
	Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)

	// ValidateToken resolves a bearer token to its auth context.
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// RefreshToken rotates a session's tokens.
	RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error)

	// Logout ends the session behind a token.
	Logout(ctx context.Context, token string) error

	// LogoutAll ends every session the user holds.
	LogoutAll(ctx context.Context, userID string) error

	// ChangePassword verifies the current password before setting
	// the new one.
	ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error
}
