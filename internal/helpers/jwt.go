package helpers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/clemson-tix/tigertix/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningKey is an HMAC secret addressed by the JWT "kid" header.
type SigningKey struct {
	ID     string
	Secret []byte
}

type TokenConfig struct {
	Signing SigningKey
	// Previous keys still verify tokens but are never used to sign, so a
	// secret can be rotated without logging everyone out.
	Previous   []SigningKey
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// TokenIssuer signs and verifies access/refresh JWTs. It holds no session
// state; refresh token persistence is the auth service's job.
type TokenIssuer struct {
	signing    SigningKey
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	jwks       *keyfunc.JWKS
	parser     *jwt.Parser
}

func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.Signing.ID == "" || len(cfg.Signing.Secret) == 0 {
		return nil, fmt.Errorf("token issuer: signing key id and secret are required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("token issuer: token lifetimes must be positive")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	keyOptions := keyfunc.GivenKeyOptions{Algorithm: jwt.SigningMethodHS256.Alg()}
	given := map[string]keyfunc.GivenKey{
		cfg.Signing.ID: keyfunc.NewGivenHMAC(cfg.Signing.Secret, keyOptions),
	}
	for _, key := range cfg.Previous {
		if _, dup := given[key.ID]; dup {
			return nil, fmt.Errorf("token issuer: duplicate key id %q", key.ID)
		}
		given[key.ID] = keyfunc.NewGivenHMAC(key.Secret, keyOptions)
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(now),
	}
	if cfg.Issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(cfg.Issuer))
	}

	return &TokenIssuer{
		signing:    cfg.Signing,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        now,
		jwks:       keyfunc.NewGiven(given),
		parser:     jwt.NewParser(parserOptions...),
	}, nil
}

func (t *TokenIssuer) registered(subject int64, ttl time.Duration) (jwt.RegisteredClaims, time.Time) {
	issuedAt := t.now()
	expiresAt := issuedAt.Add(ttl)
	return jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   strconv.FormatInt(subject, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}, expiresAt
}

func (t *TokenIssuer) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = t.signing.ID
	signed, err := token.SignedString(t.signing.Secret)
	if err != nil {
		return "", fmt.Errorf("token issuer: signing: %w", err)
	}
	return signed, nil
}

// IssueAccess mints a short-lived access token for user.
func (t *TokenIssuer) IssueAccess(user *models.User) (string, time.Time, error) {
	registered, expiresAt := t.registered(user.ID, t.accessTTL)
	signed, err := t.sign(&AccessClaims{
		UserID:           user.ID,
		Email:            user.Email,
		Role:             user.Role,
		Type:             TokenTypeAccess,
		RegisteredClaims: registered,
	})
	return signed, expiresAt, err
}

// IssueRefresh mints a long-lived refresh token. The caller must persist it
// before handing it out.
func (t *TokenIssuer) IssueRefresh(userID int64) (string, time.Time, error) {
	registered, expiresAt := t.registered(userID, t.refreshTTL)
	signed, err := t.sign(&RefreshClaims{
		UserID:           userID,
		Type:             TokenTypeRefresh,
		RegisteredClaims: registered,
	})
	return signed, expiresAt, err
}

// VerifyAccess checks signature, expiry and the type tag.
func (t *TokenIssuer) VerifyAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := t.parse(raw, claims); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess {
		return nil, fmt.Errorf("%w: expected %s token, got %q", models.ErrInvalidToken, TokenTypeAccess, claims.Type)
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing subject", models.ErrInvalidToken)
	}
	return claims, nil
}

// VerifyRefresh checks signature, expiry and the type tag. Whether the token
// is still Active is decided by the store.
func (t *TokenIssuer) VerifyRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := t.parse(raw, claims); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh {
		return nil, fmt.Errorf("%w: expected %s token, got %q", models.ErrInvalidToken, TokenTypeRefresh, claims.Type)
	}
	if claims.UserID <= 0 || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing subject or id", models.ErrInvalidToken)
	}
	return claims, nil
}

func (t *TokenIssuer) parse(raw string, claims jwt.Claims) error {
	if raw == "" {
		return fmt.Errorf("%w: empty token", models.ErrInvalidToken)
	}
	token, err := t.parser.ParseWithClaims(raw, claims, t.jwks.Keyfunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %v", models.ErrExpiredToken, err)
		}
		return fmt.Errorf("%w: %v", models.ErrInvalidToken, err)
	}
	if !token.Valid {
		return models.ErrInvalidToken
	}
	return nil
}

func (t *TokenIssuer) AccessTTL() time.Duration  { return t.accessTTL }
func (t *TokenIssuer) RefreshTTL() time.Duration { return t.refreshTTL }
