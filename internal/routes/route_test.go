package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/clemson-tix/tigertix/internal/config"
	"github.com/clemson-tix/tigertix/internal/connect"
	"github.com/clemson-tix/tigertix/internal/container"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	Data             json.RawMessage `json:"data"`
	Booking          json.RawMessage `json:"booking"`
	RemainingTickets *int            `json:"remaining_tickets"`
	RequestID        string          `json:"request_id"`
	Count            int             `json:"count"`
}

type tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type authData struct {
	User struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
	Tokens tokens `json:"tokens"`
}

type booking struct {
	EventID          int64   `json:"event_id"`
	EventName        string  `json:"event_name"`
	TicketsBooked    int     `json:"tickets_booked"`
	RemainingTickets int     `json:"remaining_tickets"`
	TotalPrice       float64 `json:"total_price"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	open := func(name, schema string) *connect.Pool {
		pool, err := connect.OpenPool(context.Background(), connect.PoolConfig{
			Path:     filepath.Join(dir, name),
			PoolSize: 4,
			Schema:   schema,
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = pool.Close() })
		return pool
	}

	cfg := &config.Config{
		Environment:        "test",
		JWTSecret:          "route-test-secret-route-test-secret",
		JWTKeyID:           "primary",
		JWTIssuer:          "tigertix-auth",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    24 * time.Hour,
		PasswordResetTTL:   time.Hour,
		SweepInterval:      time.Hour,
		BcryptCost:         4,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		PurchaseRetries:    1,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := container.NewContainer(cfg, logger, open("tickets.db", connect.TicketSchema), open("identity.db", connect.IdentitySchema))
	require.NoError(t, err)
	return &testServer{t: t, router: SetupRoutes(c)}
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, apiResponse) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var res apiResponse
	if rec.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	}
	return rec, res
}

func (s *testServer) register(email, role string) authData {
	s.t.Helper()
	rec, res := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": email, "password": "Test123456", "first_name": "Tiger", "last_name": "Fan", "role": role,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var data authData
	require.NoError(s.t, json.Unmarshal(res.Data, &data))
	return data
}

func (s *testServer) createEvent(adminToken, name string, total int) int64 {
	s.t.Helper()
	rec, res := s.do(http.MethodPost, "/api/admin/events", adminToken, gin.H{
		"name": name, "date": "2999-10-31", "total_tickets": total, "price": 12.5, "category": "music",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var event struct {
		ID int64 `json:"id"`
	}
	require.NoError(s.t, json.Unmarshal(res.Data, &event))
	return event.ID
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	reg := s.register("a@clemson.edu", "")
	assert.Equal(t, "user", reg.User.Role)

	rec, res := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "A@clemson.edu", "password": "Test123456", "first_name": "B", "last_name": "C",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, res.Success)

	rec, _ = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "A@CLEMSON.EDU", "password": "Test123456"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, res = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@clemson.edu", "password": "Nope12345"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", res.Error)

	rec, res = s.do(http.MethodGet, "/api/auth/me", reg.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(res.Data), "a@clemson.edu")

	rec, _ = s.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Rotation: the first refresh wins, replaying the old token fails with
	// the same body as any other bad token.
	rec, res = s.do(http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh_token": reg.Tokens.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var refreshed struct {
		Tokens tokens `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &refreshed))
	assert.NotEqual(t, reg.Tokens.RefreshToken, refreshed.Tokens.RefreshToken)

	rec, replay := s.do(http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh_token": reg.Tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, garbage := s.do(http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh_token": "garbage"})
	assert.Equal(t, garbage.Error, replay.Error)

	rec, _ = s.do(http.MethodPost, "/api/auth/refresh", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Logout is idempotent.
	for i := 0; i < 2; i++ {
		rec, _ = s.do(http.MethodPost, "/api/auth/logout", "", gin.H{"refresh_token": refreshed.Tokens.RefreshToken})
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec, _ = s.do(http.MethodPost, "/api/auth/logout", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutAll(t *testing.T) {
	s := newTestServer(t)
	reg := s.register("many@clemson.edu", "")
	_, res := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "many@clemson.edu", "password": "Test123456"})
	var login authData
	require.NoError(t, json.Unmarshal(res.Data, &login))

	rec, res := s.do(http.MethodPost, "/api/auth/logout-all", reg.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"revoked_count":2}`, string(res.Data))

	for _, tok := range []string{reg.Tokens.RefreshToken, login.Tokens.RefreshToken} {
		rec, _ = s.do(http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh_token": tok})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestAdminEventsRequireRole(t *testing.T) {
	s := newTestServer(t)
	user := s.register("user@clemson.edu", "")
	organizer := s.register("org@clemson.edu", "organizer")

	body := gin.H{"name": "Gala", "date": "2999-10-31", "total_tickets": 10}
	rec, _ := s.do(http.MethodPost, "/api/admin/events", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = s.do(http.MethodPost, "/api/admin/events", user.Tokens.AccessToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	id := s.createEvent(organizer.Tokens.AccessToken, "Gala", 10)

	rec, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/admin/events/%d", id), organizer.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, res := s.do(http.MethodPost, "/api/admin/events", organizer.Tokens.AccessToken, gin.H{
		"name": "Past", "date": "2000-01-01", "total_tickets": 10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, res.Error, "date")

	rec, _ = s.do(http.MethodPut, fmt.Sprintf("/api/admin/events/%d", id), organizer.Tokens.AccessToken, gin.H{"location": "Brooks Center"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPurchaseFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.register("admin@clemson.edu", "admin")
	buyer := s.register("buyer@clemson.edu", "")
	id := s.createEvent(admin.Tokens.AccessToken, "Jazz Night", 3)
	path := fmt.Sprintf("/api/client/events/%d/purchase", id)

	rec, _ := s.do(http.MethodPost, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Quantity defaults to 1.
	rec, res := s.do(http.MethodPost, path, buyer.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, res.Success)
	var b booking
	require.NoError(t, json.Unmarshal(res.Booking, &b))
	assert.Equal(t, 1, b.TicketsBooked)
	assert.Equal(t, 2, b.RemainingTickets)
	assert.Equal(t, "Jazz Night", b.EventName)
	assert.InDelta(t, 12.5, b.TotalPrice, 0.001)

	rec, res = s.do(http.MethodPost, path, buyer.Tokens.AccessToken, gin.H{"quantity": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, res.RemainingTickets)
	assert.Equal(t, 2, *res.RemainingTickets)

	rec, _ = s.do(http.MethodPost, path, buyer.Tokens.AccessToken, gin.H{"quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/client/events/9999/purchase", buyer.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/client/events/abc/purchase", buyer.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, res = s.do(http.MethodPost, "/api/client/purchase", buyer.Tokens.AccessToken, gin.H{"event_id": id, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(res.Booking, &b))
	assert.Equal(t, 0, b.RemainingTickets)

	rec, res = s.do(http.MethodGet, "/api/client/tickets", buyer.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, res.Count)

	rec, res = s.do(http.MethodPost, fmt.Sprintf("/api/admin/events/%d/release", id), admin.Tokens.AccessToken, gin.H{"quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(res.Data), `"remaining_tickets":1`)

	rec, _ = s.do(http.MethodPost, fmt.Sprintf("/api/admin/events/%d/release", id), admin.Tokens.AccessToken, gin.H{"quantity": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodGet, fmt.Sprintf("/api/client/events/%d", id), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/admin/events/%d", id), admin.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(http.MethodGet, fmt.Sprintf("/api/client/events/%d", id), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatBooking(t *testing.T) {
	s := newTestServer(t)
	admin := s.register("admin@clemson.edu", "admin")
	buyer := s.register("buyer@clemson.edu", "")
	s.createEvent(admin.Tokens.AccessToken, "Tiger Paw Gala", 10)

	rec, res := s.do(http.MethodPost, "/api/llm/parse", "", gin.H{"message": "Book 2 tickets for Tiger Paw Gala"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"intent":"book","event_name":"Tiger Paw Gala","quantity":2}`, string(res.Data))

	rec, res = s.do(http.MethodPost, "/api/client/chat/book", buyer.Tokens.AccessToken, gin.H{"message": "book 2 tickets for tiger paw gala"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var b booking
	require.NoError(t, json.Unmarshal(res.Booking, &b))
	assert.Equal(t, 2, b.TicketsBooked)
	assert.Equal(t, 8, b.RemainingTickets)

	rec, _ = s.do(http.MethodPost, "/api/client/chat/book", buyer.Tokens.AccessToken, gin.H{"message": "book tickets for the moon landing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, res = s.do(http.MethodPost, "/api/client/chat/book", buyer.Tokens.AccessToken, gin.H{"message": "hello"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, res.Booking)
}

func TestDeactivatedUserIsLockedOut(t *testing.T) {
	s := newTestServer(t)
	admin := s.register("admin@clemson.edu", "admin")
	user := s.register("user@clemson.edu", "")

	rec, _ := s.do(http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", user.User.ID), user.Tokens.AccessToken, gin.H{"is_active": false})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", admin.User.ID), admin.Tokens.AccessToken, gin.H{"is_active": false})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", user.User.ID), admin.Tokens.AccessToken, gin.H{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, res := s.do(http.MethodGet, "/api/auth/me", user.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid or expired token", res.Error)

	rec, _ = s.do(http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh_token": user.Tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "user@clemson.edu", "password": "Test123456"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
