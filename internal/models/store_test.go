package models

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/clemson-tix/tigertix/internal/connect"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openTestPool(t *testing.T, schema string) *connect.Pool {
	t.Helper()
	pool, err := connect.OpenPool(context.Background(), connect.PoolConfig{
		Path:     filepath.Join(t.TempDir(), "test.db"),
		PoolSize: 4,
		Schema:   schema,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func newTestTicketStore(t *testing.T) *TicketStore {
	return NewTicketStore(openTestPool(t, connect.TicketSchema))
}

func newTestIdentityStore(t *testing.T) *IdentityStore {
	return NewIdentityStore(openTestPool(t, connect.IdentitySchema))
}

func createTestEvent(t *testing.T, s *TicketStore, name string, total int, price string) *Event {
	t.Helper()
	event, err := s.CreateEvent(context.Background(), &EventInput{
		Name:         name,
		Date:         "2026-10-31",
		Location:     "Littlejohn Coliseum",
		Category:     "music",
		TotalTickets: total,
		Price:        decimal.RequireFromString(price),
	}, testNow)
	require.NoError(t, err)
	return event
}

func createTestUser(t *testing.T, s *IdentityStore, email string) *User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), &NewUser{
		Email:        email,
		PasswordHash: "$2a$04$notarealhashnotarealhashnotarealhashnotarealhashnotar",
		FirstName:    "Test",
		LastName:     "User",
		Role:         RoleUser,
	}, testNow)
	require.NoError(t, err)
	return user
}
