package driven

import "github.com/custodia-labs/finsight-core/internal/core/domain"

// AuthAdapter covers the cryptographic side of authentication:
// password hashing and token signing. Session persistence lives in
// SessionStore.
type AuthAdapter interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) bool

	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)
}
