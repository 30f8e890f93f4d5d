package services

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/clemson-tix/tigertix/internal/connect"
	"github.com/clemson-tix/tigertix/internal/helpers"
	"github.com/clemson-tix/tigertix/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

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

type authFixture struct {
	auth   *AuthService
	store  *models.IdentityStore
	issuer *helpers.TokenIssuer
	clock  *fakeClock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	clock := &fakeClock{now: time.Now()}
	issuer, err := helpers.NewTokenIssuer(helpers.TokenConfig{
		Signing:    helpers.SigningKey{ID: "test", Secret: []byte("test-secret-test-secret-test!!")},
		Issuer:     "tigertix-auth",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Now:        clock.Now,
	})
	require.NoError(t, err)

	store := models.NewIdentityStore(openTestPool(t, connect.IdentitySchema))
	auth := NewAuthService(store, store, issuer, discardLogger, AuthConfig{
		BcryptCost: bcrypt.MinCost,
		Now:        clock.Now,
	})
	return &authFixture{auth: auth, store: store, issuer: issuer, clock: clock}
}

func (f *authFixture) register(t *testing.T, email, role string) *AuthResult {
	t.Helper()
	result, err := f.auth.Register(context.Background(), &models.RegisterInput{
		Email:     email,
		Password:  "Test123456",
		FirstName: "Tiger",
		LastName:  "Fan",
		Role:      role,
	})
	require.NoError(t, err)
	return result
}
