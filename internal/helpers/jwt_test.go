package helpers

import (
	"testing"
	"time"

	"github.com/clemson-tix/tigertix/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestIssuer(t *testing.T, clock *fakeClock, previous ...SigningKey) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenConfig{
		Signing:    SigningKey{ID: "k2", Secret: []byte("current-secret-current-secret!!")},
		Previous:   previous,
		Issuer:     "tigertix-auth",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Now:        clock.Now,
	})
	require.NoError(t, err)
	return issuer
}

var testUser = &models.User{ID: 42, Email: "a@clemson.edu", Role: models.RoleOrganizer}

func TestIssueAndVerifyAccess(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	issuer := newTestIssuer(t, clock)

	token, expiresAt, err := issuer.IssueAccess(testUser)
	require.NoError(t, err)
	assert.WithinDuration(t, clock.now.Add(15*time.Minute), expiresAt, time.Second)

	claims, err := issuer.VerifyAccess(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "a@clemson.edu", claims.Email)
	assert.Equal(t, models.RoleOrganizer, claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.Equal(t, "42", claims.Subject)
}

func TestVerifyAccess_Expired(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	issuer := newTestIssuer(t, clock)

	token, _, err := issuer.IssueAccess(testUser)
	require.NoError(t, err)

	clock.now = clock.now.Add(16 * time.Minute)
	_, err = issuer.VerifyAccess(token)
	assert.ErrorIs(t, err, models.ErrExpiredToken)
	assert.NotErrorIs(t, err, models.ErrInvalidToken)
}

func TestVerify_TypeTagIsEnforced(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	issuer := newTestIssuer(t, clock)

	refresh, _, err := issuer.IssueRefresh(testUser.ID)
	require.NoError(t, err)
	_, err = issuer.VerifyAccess(refresh)
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	access, _, err := issuer.IssueAccess(testUser)
	require.NoError(t, err)
	_, err = issuer.VerifyRefresh(access)
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	claims, err := issuer.VerifyRefresh(refresh)
	require.NoError(t, err)
	assert.Equal(t, testUser.ID, claims.UserID)
	assert.NotEmpty(t, claims.ID)
}

func TestIssueRefresh_IsUnique(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	issuer := newTestIssuer(t, clock)

	a, _, err := issuer.IssueRefresh(1)
	require.NoError(t, err)
	b, _, err := issuer.IssueRefresh(1)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerify_RejectsForeignSignatures(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	issuer := newTestIssuer(t, clock)

	other, err := NewTokenIssuer(TokenConfig{
		Signing:    SigningKey{ID: "k2", Secret: []byte("some-other-secret-some-other!!")},
		Issuer:     "tigertix-auth",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Now:        clock.Now,
	})
	require.NoError(t, err)

	forged, _, err := other.IssueAccess(testUser)
	require.NoError(t, err)
	_, err = issuer.VerifyAccess(forged)
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	_, err = issuer.VerifyAccess("not.a.jwt")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
	_, err = issuer.VerifyAccess("")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	issuer := newTestIssuer(t, clock)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &AccessClaims{
		UserID: 1,
		Role:   models.RoleAdmin,
		Type:   TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "tigertix-auth",
			IssuedAt:  jwt.NewNumericDate(clock.now),
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
	})
	unsigned.Header["kid"] = "k2"
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.VerifyAccess(raw)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestVerify_PreviousKeyStillVerifies(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	oldKey := SigningKey{ID: "k1", Secret: []byte("previous-secret-previous-secret")}

	old, err := NewTokenIssuer(TokenConfig{
		Signing:    oldKey,
		Issuer:     "tigertix-auth",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Now:        clock.Now,
	})
	require.NoError(t, err)
	token, _, err := old.IssueAccess(testUser)
	require.NoError(t, err)

	rotated := newTestIssuer(t, clock, oldKey)
	_, err = rotated.VerifyAccess(token)
	assert.NoError(t, err)

	withoutOld := newTestIssuer(t, clock)
	_, err = withoutOld.VerifyAccess(token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestNewTokenIssuer_Validation(t *testing.T) {
	_, err := NewTokenIssuer(TokenConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour})
	assert.Error(t, err)

	_, err = NewTokenIssuer(TokenConfig{Signing: SigningKey{ID: "a", Secret: []byte("s")}})
	assert.Error(t, err)

	_, err = NewTokenIssuer(TokenConfig{
		Signing:    SigningKey{ID: "a", Secret: []byte("s")},
		Previous:   []SigningKey{{ID: "a", Secret: []byte("t")}},
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	assert.Error(t, err)
}
