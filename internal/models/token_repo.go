package models

import (
	"context"
	"errors"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

type TokenRepo interface {
	InsertRefreshToken(ctx context.Context, userID int64, token string, expiresAt, now time.Time) error
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	RotateRefreshToken(ctx context.Context, rotation *Rotation, now time.Time) (*User, error)
	RevokeRefreshToken(ctx context.Context, token string) (bool, error)
	RevokeAllRefreshTokens(ctx context.Context, userID int64) (int, error)
	CreatePasswordReset(ctx context.Context, userID int64, token string, expiresAt, now time.Time) error
	ConsumePasswordReset(ctx context.Context, token, passwordHash string, now time.Time) (*User, int, error)
	SweepTokens(ctx context.Context, now time.Time) (SweepResult, error)
}

// Rotation describes one use of a refresh token: Presented is consumed and
// Replacement is persisted in its place.
type Rotation struct {
	UserID               int64
	Presented            string
	Replacement          string
	ReplacementExpiresAt time.Time
}

const refreshTokenColumns = "id, user_id, token, expires_at, revoked, created_at"

func loadRefreshToken(conn *sqlite.Conn, token string) (*RefreshToken, error) {
	var rt *RefreshToken
	err := sqlitex.Execute(conn, "SELECT "+refreshTokenColumns+" FROM refresh_tokens WHERE token = ?",
		&sqlitex.ExecOptions{
			Args: []any{token},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				rt = &RefreshToken{
					ID:        stmt.ColumnInt64(0),
					UserID:    stmt.ColumnInt64(1),
					Token:     stmt.ColumnText(2),
					ExpiresAt: unixTime(stmt.ColumnInt64(3)),
					Revoked:   stmt.ColumnInt64(4) != 0,
					CreatedAt: unixTime(stmt.ColumnInt64(5)),
				}
				return nil
			},
		})
	if err != nil {
		return nil, storeUnavailable("load refresh token", err)
	}
	if rt == nil {
		return nil, ErrInvalidToken
	}
	return rt, nil
}

func insertRefreshToken(conn *sqlite.Conn, userID int64, token string, expiresAt, now time.Time) error {
	err := sqlitex.Execute(conn, `
		INSERT INTO refresh_tokens (user_id, token, expires_at, revoked, created_at)
		VALUES (?, ?, ?, 0, ?)`,
		&sqlitex.ExecOptions{Args: []any{userID, token, expiresAt.Unix(), now.Unix()}})
	if err != nil {
		switch sqlite.ErrCode(err) {
		case sqlite.ResultConstraintUnique:
			return ErrInvalidToken
		case sqlite.ResultConstraintForeignKey:
			return ErrUnknownUser
		}
		return storeUnavailable("insert refresh token", err)
	}
	return nil
}

func (s *IdentityStore) InsertRefreshToken(ctx context.Context, userID int64, token string, expiresAt, now time.Time) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return storeUnavailable("insert refresh token", err)
	}
	defer s.pool.Put(conn)

	return insertRefreshToken(conn, userID, token, expiresAt, now)
}

func (s *IdentityStore) GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, storeUnavailable("get refresh token", err)
	}
	defer s.pool.Put(conn)

	return loadRefreshToken(conn, token)
}

// RotateRefreshToken consumes the presented token and persists its
// replacement in one IMMEDIATE transaction. Of two concurrent rotations of
// the same token, the second observes revoked = 1 and fails with
// ErrRevokedToken.
func (s *IdentityStore) RotateRefreshToken(ctx context.Context, rotation *Rotation, now time.Time) (user *User, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, storeUnavailable("rotate refresh token", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, storeUnavailable("rotate refresh token: begin", err)
	}
	defer endTransaction(&err)

	current, err := loadRefreshToken(conn, rotation.Presented)
	if err != nil {
		return nil, err
	}
	if current.UserID != rotation.UserID {
		return nil, ErrInvalidToken
	}
	if current.Revoked {
		return nil, ErrRevokedToken
	}
	if !now.Before(current.ExpiresAt) {
		return nil, ErrExpiredToken
	}

	user, err = loadUser(conn, "id = ? AND is_active = 1", current.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, err
	}

	err = sqlitex.Execute(conn, "UPDATE refresh_tokens SET revoked = 1 WHERE id = ? AND revoked = 0",
		&sqlitex.ExecOptions{Args: []any{current.ID}})
	if err != nil {
		return nil, storeUnavailable("rotate refresh token: revoke", err)
	}
	if conn.Changes() != 1 {
		return nil, ErrRevokedToken
	}

	if err = insertRefreshToken(conn, current.UserID, rotation.Replacement, rotation.ReplacementExpiresAt, now); err != nil {
		return nil, err
	}
	return user, nil
}

// RevokeRefreshToken is idempotent. It reports whether this call flipped the
// row; unknown and already-revoked tokens are not errors.
func (s *IdentityStore) RevokeRefreshToken(ctx context.Context, token string) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, storeUnavailable("revoke refresh token", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "UPDATE refresh_tokens SET revoked = 1 WHERE token = ? AND revoked = 0",
		&sqlitex.ExecOptions{Args: []any{token}})
	if err != nil {
		return false, storeUnavailable("revoke refresh token", err)
	}
	return conn.Changes() == 1, nil
}

// RevokeAllRefreshTokens returns the number of rows it flipped.
func (s *IdentityStore) RevokeAllRefreshTokens(ctx context.Context, userID int64) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, storeUnavailable("revoke all refresh tokens", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ? AND revoked = 0",
		&sqlitex.ExecOptions{Args: []any{userID}})
	if err != nil {
		return 0, storeUnavailable("revoke all refresh tokens", err)
	}
	return conn.Changes(), nil
}

func (s *IdentityStore) CreatePasswordReset(ctx context.Context, userID int64, token string, expiresAt, now time.Time) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return storeUnavailable("create password reset", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO password_reset_tokens (user_id, token, expires_at, used, created_at)
		VALUES (?, ?, ?, 0, ?)`,
		&sqlitex.ExecOptions{Args: []any{userID, token, expiresAt.Unix(), now.Unix()}})
	if err != nil {
		return storeUnavailable("create password reset", err)
	}
	return nil
}

// ConsumePasswordReset marks the reset token used, stores the new password
// hash and revokes every refresh token the user holds. It returns the user
// and the number of refresh tokens revoked.
func (s *IdentityStore) ConsumePasswordReset(ctx context.Context, token, passwordHash string, now time.Time) (user *User, revoked int, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, 0, storeUnavailable("consume password reset", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, 0, storeUnavailable("consume password reset: begin", err)
	}
	defer endTransaction(&err)

	var userID int64
	err = sqlitex.Execute(conn, `
		SELECT user_id FROM password_reset_tokens
		WHERE token = ? AND used = 0 AND expires_at > ?`,
		&sqlitex.ExecOptions{
			Args: []any{token, now.Unix()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				userID = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return nil, 0, storeUnavailable("consume password reset", err)
	}
	if userID == 0 {
		return nil, 0, ErrInvalidToken
	}

	err = sqlitex.Execute(conn, "UPDATE password_reset_tokens SET used = 1 WHERE token = ? AND used = 0",
		&sqlitex.ExecOptions{Args: []any{token}})
	if err != nil {
		return nil, 0, storeUnavailable("consume password reset: mark used", err)
	}
	if conn.Changes() != 1 {
		return nil, 0, ErrInvalidToken
	}

	err = sqlitex.Execute(conn, "UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ? AND is_active = 1",
		&sqlitex.ExecOptions{Args: []any{passwordHash, now.Unix(), userID}})
	if err != nil {
		return nil, 0, storeUnavailable("consume password reset: set password", err)
	}
	if conn.Changes() != 1 {
		return nil, 0, ErrUnknownUser
	}

	err = sqlitex.Execute(conn, "UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ? AND revoked = 0",
		&sqlitex.ExecOptions{Args: []any{userID}})
	if err != nil {
		return nil, 0, storeUnavailable("consume password reset: revoke tokens", err)
	}
	revoked = conn.Changes()

	user, err = loadUser(conn, "id = ?", userID)
	if err != nil {
		return nil, 0, err
	}
	return user, revoked, nil
}

// SweepTokens deletes refresh tokens that can never be used again and spent
// password reset tokens.
func (s *IdentityStore) SweepTokens(ctx context.Context, now time.Time) (result SweepResult, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return result, storeUnavailable("sweep tokens", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return result, storeUnavailable("sweep tokens: begin", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, "DELETE FROM refresh_tokens WHERE expires_at < ? OR revoked = 1",
		&sqlitex.ExecOptions{Args: []any{now.Unix()}})
	if err != nil {
		return SweepResult{}, storeUnavailable("sweep refresh tokens", err)
	}
	result.RefreshTokens = conn.Changes()

	err = sqlitex.Execute(conn, "DELETE FROM password_reset_tokens WHERE expires_at < ? OR used = 1",
		&sqlitex.ExecOptions{Args: []any{now.Unix()}})
	if err != nil {
		return SweepResult{}, storeUnavailable("sweep password reset tokens", err)
	}
	result.PasswordResetTokens = conn.Changes()

	return result, nil
}
