package helpers

import (
	"github.com/clemson-tix/tigertix/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AccessClaims is verifiable without a store lookup.
type AccessClaims struct {
	UserID int64       `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	Type   string      `json:"type"`
	jwt.RegisteredClaims
}

// RefreshClaims carries only the subject and a unique id; the persisted row
// decides whether it is still usable.
type RefreshClaims struct {
	UserID int64  `json:"user_id"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// EnhancedClaims is the authenticated principal attached to a request. Role
// comes from the current user row, not from the token.
type EnhancedClaims struct {
	*AccessClaims
	UserID int64
	Email  string
	Role   models.Role
}

func (ec *EnhancedClaims) IsAdmin() bool {
	return ec.Role == models.RoleAdmin
}

func (ec *EnhancedClaims) HasRole(required ...models.Role) bool {
	return models.Authorized(ec.Role, required...)
}

func (ec *EnhancedClaims) IsOwner(userID int64) bool {
	return ec.UserID == userID
}

func (ec *EnhancedClaims) Purchaser() models.Purchaser {
	return models.Purchaser{UserID: ec.UserID, Email: ec.Email}
}
