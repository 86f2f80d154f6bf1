package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// IdentityClaims are the claims carried by access tokens minted by the
// managed identity provider. The subject is the local user id.
type IdentityClaims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Email  string
}

// Principal converts validated claims into a Principal.
func (c *IdentityClaims) Principal() (Principal, error) {
	if c == nil {
		return Principal{}, fmt.Errorf("claims are nil")
	}
	userID, err := uuid.Parse(strings.TrimSpace(c.Subject))
	if err != nil {
		return Principal{}, fmt.Errorf("invalid subject: %w", err)
	}
	return Principal{
		UserID: userID,
		Email:  strings.ToLower(strings.TrimSpace(c.Email)),
	}, nil
}
