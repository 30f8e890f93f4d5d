package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clemson-tix/tigertix/internal/helpers"
	"github.com/clemson-tix/tigertix/internal/models"
	"github.com/google/uuid"
)

type AuthConfig struct {
	BcryptCost       int
	PasswordResetTTL time.Duration
	Now              func() time.Time
}

// AuthService is the stateful half of the token lifecycle: it persists,
// rotates and revokes refresh tokens and resolves access tokens to users.
type AuthService struct {
	users      models.UserRepo
	tokens     models.TokenRepo
	issuer     *helpers.TokenIssuer
	logger     *slog.Logger
	bcryptCost int
	resetTTL   time.Duration
	now        func() time.Time
}

func NewAuthService(users models.UserRepo, tokens models.TokenRepo, issuer *helpers.TokenIssuer, logger *slog.Logger, cfg AuthConfig) *AuthService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	resetTTL := cfg.PasswordResetTTL
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		issuer:     issuer,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
		resetTTL:   resetTTL,
		now:        now,
	}
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User   models.UserResponse `json:"user"`
	Tokens *models.TokenPair   `json:"tokens"`
}

func (as *AuthService) Register(ctx context.Context, in *models.RegisterInput) (*AuthResult, error) {
	in.Email = models.NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := validate(in); err != nil {
		return nil, err
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	hash, err := helpers.HashPassword(in.Password, as.bcryptCost)
	if err != nil {
		return nil, err
	}

	user, err := as.users.CreateUser(ctx, &models.NewUser{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         role,
	}, as.now())
	if err != nil {
		return nil, err
	}

	pair, err := as.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	as.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return &AuthResult{User: user.Response(), Tokens: pair}, nil
}

// Login does not reveal whether the email or the password was wrong.
func (as *AuthService) Login(ctx context.Context, in *models.LoginInput) (*AuthResult, error) {
	in.Email = models.NormalizeEmail(in.Email)
	if err := validate(in); err != nil {
		return nil, err
	}

	user, err := as.users.GetActiveUserByEmail(ctx, in.Email)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, models.ErrInvalidCredential
	}
	if err != nil {
		return nil, err
	}

	ok, err := helpers.CheckPassword(user.PasswordHash, in.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		as.logger.Info("login rejected", "user_id", user.ID)
		return nil, models.ErrInvalidCredential
	}

	now := as.now()
	if err := as.users.RecordLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	pair, err := as.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user.Response(), Tokens: pair}, nil
}

// issueTokenPair persists exactly one refresh row.
func (as *AuthService) issueTokenPair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	refresh, refreshExp, err := as.issuer.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	if err := as.tokens.InsertRefreshToken(ctx, user.ID, refresh, refreshExp, as.now()); err != nil {
		return nil, err
	}
	return as.pair(user, refresh, refreshExp)
}

func (as *AuthService) pair(user *models.User, refresh string, refreshExp time.Time) (*models.TokenPair, error) {
	access, accessExp, err := as.issuer.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{
		AccessToken:           access,
		RefreshToken:          refresh,
		TokenType:             "Bearer",
		ExpiresAt:             accessExp,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}

// Refresh consumes an Active refresh token and returns a new pair. The
// presented token is revoked and the replacement stored in one transaction,
// so concurrent refreshes of the same token have at most one winner.
func (as *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if refreshToken == "" {
		return nil, models.InvalidInput("refresh_token is required")
	}

	claims, err := as.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	replacement, replacementExp, err := as.issuer.IssueRefresh(claims.UserID)
	if err != nil {
		return nil, err
	}

	user, err := as.tokens.RotateRefreshToken(ctx, &models.Rotation{
		UserID:               claims.UserID,
		Presented:            refreshToken,
		Replacement:          replacement,
		ReplacementExpiresAt: replacementExp,
	}, as.now())
	if err != nil {
		if errors.Is(err, models.ErrRevokedToken) {
			as.logger.Warn("revoked refresh token presented", "user_id", claims.UserID, "jti", claims.ID)
		}
		return nil, err
	}

	as.logger.Debug("refresh token rotated", "user_id", user.ID, "jti", claims.ID)
	return as.pair(user, replacement, replacementExp)
}

// Logout revokes a single refresh token. The signature is not checked: a
// token that no longer verifies can still be revoked, and unknown or
// already-revoked tokens succeed.
func (as *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return models.InvalidInput("refresh_token is required")
	}
	flipped, err := as.tokens.RevokeRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	if flipped {
		as.logger.Debug("refresh token revoked")
	}
	return nil
}

// LogoutAll returns the number of refresh tokens it revoked.
func (as *AuthService) LogoutAll(ctx context.Context, userID int64) (int, error) {
	count, err := as.tokens.RevokeAllRefreshTokens(ctx, userID)
	if err != nil {
		return 0, err
	}
	as.logger.Info("all sessions revoked", "user_id", userID, "revoked_count", count)
	return count, nil
}

func (as *AuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	return as.users.GetActiveUserByID(ctx, userID)
}

// Authenticate resolves a bearer token to the current user. It fails with
// ErrUnauthenticated, ErrInvalidCredential or ErrUnknownUser.
func (as *AuthService) Authenticate(ctx context.Context, accessToken string) (*helpers.EnhancedClaims, error) {
	if accessToken == "" {
		return nil, models.ErrUnauthenticated
	}

	claims, err := as.issuer.VerifyAccess(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidCredential, err)
	}

	user, err := as.users.GetActiveUserByID(ctx, claims.UserID)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, models.ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}

	return &helpers.EnhancedClaims{
		AccessClaims: claims,
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
	}, nil
}

func (as *AuthService) UpdateUserStatus(ctx context.Context, userID int64, upd *models.UserStatusUpdate) (*models.User, error) {
	if userID <= 0 {
		return nil, models.InvalidInput("user id must be a positive integer")
	}
	if upd.Role == nil && upd.IsVerified == nil && upd.IsActive == nil {
		return nil, models.InvalidInput("no fields to update")
	}
	if err := validate(upd); err != nil {
		return nil, err
	}

	user, err := as.users.UpdateUserStatus(ctx, userID, upd, as.now())
	if err != nil {
		return nil, err
	}
	as.logger.Info("user status updated",
		"user_id", user.ID,
		"role", user.Role,
		"is_active", user.IsActive,
		"is_verified", user.IsVerified,
	)
	return user, nil
}

// RequestPasswordReset returns the reset token, or "" when no active account
// has that email. Callers must not reveal which case occurred.
func (as *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = models.NormalizeEmail(email)
	if err := models.Validate.Var(email, "required,email"); err != nil {
		return "", models.InvalidInput("email must be a valid email address")
	}

	user, err := as.users.GetActiveUserByEmail(ctx, email)
	if errors.Is(err, models.ErrUserNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	now := as.now()
	token := uuid.NewString()
	if err := as.tokens.CreatePasswordReset(ctx, user.ID, token, now.Add(as.resetTTL), now); err != nil {
		return "", err
	}
	as.logger.Debug("password reset issued", "user_id", user.ID, "token", token)
	return token, nil
}

// ResetPassword consumes a reset token, sets the new password and ends every
// session the account holds.
func (as *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return models.InvalidInput("token is required")
	}
	if err := checkPassword(password); err != nil {
		return err
	}

	hash, err := helpers.HashPassword(password, as.bcryptCost)
	if err != nil {
		return err
	}

	user, revoked, err := as.tokens.ConsumePasswordReset(ctx, token, hash, as.now())
	if err != nil {
		return err
	}
	as.logger.Info("password reset", "user_id", user.ID, "revoked_count", revoked)
	return nil
}

// bcrypt only hashes the first 72 bytes and refuses longer input, so the
// limit is on bytes, not characters.
const maxPasswordBytes = 72

func checkPassword(password string) error {
	if !helpers.IsPasswordStrong(password) {
		return models.InvalidInput("password must be at least 8 characters and contain an uppercase letter, a lowercase letter and a digit")
	}
	if len(password) > maxPasswordBytes {
		return models.InvalidInput("password must be at most %d bytes", maxPasswordBytes)
	}
	return nil
}
