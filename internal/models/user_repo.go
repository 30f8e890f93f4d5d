package models

import (
	"context"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

type UserRepo interface {
	CreateUser(ctx context.Context, nu *NewUser, now time.Time) (*User, error)
	GetActiveUserByEmail(ctx context.Context, email string) (*User, error)
	GetActiveUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	RecordLogin(ctx context.Context, id int64, now time.Time) error
	UpdateUserStatus(ctx context.Context, id int64, upd *UserStatusUpdate, now time.Time) (*User, error)
}

// UserStatusUpdate is the administrative edit of an account. Nil fields are
// left unchanged.
type UserStatusUpdate struct {
	Role       *string `json:"role" validate:"omitempty,role"`
	IsVerified *bool   `json:"is_verified"`
	IsActive   *bool   `json:"is_active"`
}

const userColumns = `id, email, password_hash, first_name, last_name, role,
	is_verified, is_active, created_at, updated_at, last_login_at`

func scanUser(stmt *sqlite.Stmt) *User {
	u := &User{
		ID:           stmt.ColumnInt64(0),
		Email:        stmt.ColumnText(1),
		PasswordHash: stmt.ColumnText(2),
		FirstName:    stmt.ColumnText(3),
		LastName:     stmt.ColumnText(4),
		Role:         Role(stmt.ColumnText(5)),
		IsVerified:   stmt.ColumnInt64(6) != 0,
		IsActive:     stmt.ColumnInt64(7) != 0,
		CreatedAt:    unixTime(stmt.ColumnInt64(8)),
		UpdatedAt:    unixTime(stmt.ColumnInt64(9)),
	}
	if !stmt.ColumnIsNull(10) {
		t := unixTime(stmt.ColumnInt64(10))
		u.LastLoginAt = &t
	}
	return u
}

// loadUser returns ErrUserNotFound when no row matches.
func loadUser(conn *sqlite.Conn, where string, args ...any) (*User, error) {
	var user *User
	err := sqlitex.Execute(conn, "SELECT "+userColumns+" FROM users WHERE "+where, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			user = scanUser(stmt)
			return nil
		},
	})
	if err != nil {
		return nil, storeUnavailable("load user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// NormalizeEmail is the canonical stored form. The column is also
// COLLATE NOCASE so lookups are case-insensitive either way.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *IdentityStore) CreateUser(ctx context.Context, nu *NewUser, now time.Time) (*User, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, storeUnavailable("create user", err)
	}
	defer s.pool.Put(conn)

	role := nu.Role
	if role == "" {
		role = RoleUser
	}

	err = sqlitex.Execute(conn, `
		INSERT INTO users (email, password_hash, first_name, last_name, role,
			is_verified, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, 1, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				NormalizeEmail(nu.Email), nu.PasswordHash,
				strings.TrimSpace(nu.FirstName), strings.TrimSpace(nu.LastName),
				string(role), now.Unix(), now.Unix(),
			},
		})
	if err != nil {
		switch sqlite.ErrCode(err) {
		case sqlite.ResultConstraintUnique:
			return nil, ErrEmailTaken
		case sqlite.ResultConstraintCheck:
			return nil, InvalidInput("role %q is not allowed", role)
		}
		return nil, storeUnavailable("create user", err)
	}

	return loadUser(conn, "id = ?", conn.LastInsertRowID())
}

func (s *IdentityStore) GetActiveUserByEmail(ctx context.Context, email string) (*User, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, storeUnavailable("get user", err)
	}
	defer s.pool.Put(conn)

	return loadUser(conn, "email = ? COLLATE NOCASE AND is_active = 1", NormalizeEmail(email))
}

func (s *IdentityStore) GetActiveUserByID(ctx context.Context, id int64) (*User, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, storeUnavailable("get user", err)
	}
	defer s.pool.Put(conn)

	return loadUser(conn, "id = ? AND is_active = 1", id)
}

func (s *IdentityStore) GetUserByID(ctx context.Context, id int64) (*User, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, storeUnavailable("get user", err)
	}
	defer s.pool.Put(conn)

	return loadUser(conn, "id = ?", id)
}

func (s *IdentityStore) RecordLogin(ctx context.Context, id int64, now time.Time) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return storeUnavailable("record login", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?",
		&sqlitex.ExecOptions{Args: []any{now.Unix(), now.Unix(), id}})
	if err != nil {
		return storeUnavailable("record login", err)
	}
	if conn.Changes() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *IdentityStore) UpdateUserStatus(ctx context.Context, id int64, upd *UserStatusUpdate, now time.Time) (user *User, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, storeUnavailable("update user", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, storeUnavailable("update user: begin", err)
	}
	defer endTransaction(&err)

	current, err := loadUser(conn, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if upd.Role != nil {
		role, err := ParseRole(*upd.Role)
		if err != nil {
			return nil, err
		}
		current.Role = role
	}
	if upd.IsVerified != nil {
		current.IsVerified = *upd.IsVerified
	}
	if upd.IsActive != nil {
		current.IsActive = *upd.IsActive
	}

	err = sqlitex.Execute(conn,
		"UPDATE users SET role = ?, is_verified = ?, is_active = ?, updated_at = ? WHERE id = ?",
		&sqlitex.ExecOptions{
			Args: []any{string(current.Role), boolInt(current.IsVerified), boolInt(current.IsActive), now.Unix(), id},
		})
	if err != nil {
		return nil, storeUnavailable("update user", err)
	}

	// Deactivation ends every session the account holds.
	if !current.IsActive {
		err = sqlitex.Execute(conn, "UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ? AND revoked = 0",
			&sqlitex.ExecOptions{Args: []any{id}})
		if err != nil {
			return nil, storeUnavailable("update user: revoke tokens", err)
		}
	}

	return loadUser(conn, "id = ?", id)
}
