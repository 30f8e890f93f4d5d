package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/clemson-tix/tigertix/internal/handlers"
	"github.com/clemson-tix/tigertix/internal/helpers"
	"github.com/clemson-tix/tigertix/internal/models"
	"github.com/clemson-tix/tigertix/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// StructuredLogger provides structured logging middleware
func StructuredLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		attrs := []any{
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if value, ok := c.Get("user"); ok {
			if claims, ok := value.(*helpers.EnhancedClaims); ok {
				attrs = append(attrs, "user_id", claims.UserID)
			}
		}

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "HTTP Request", attrs...)
	}
}

// ErrorHandler logs errors attached with c.Error and answers 500 if the
// handler did not write a response itself.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		requestID := c.GetString("request_id")

		logger.Error("Request error",
			"request_id", requestID,
			"error", err.Error(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		if c.Writer.Written() {
			return
		}
		// Don't return error details
		res := models.ErrorResponse("internal server error")
		res.RequestID = requestID
		c.AbortWithStatusJSON(http.StatusInternalServerError, res)
	}
}

// Authenticate resolves the bearer token to the current user and stores
// the *helpers.EnhancedClaims under "user".
func Authenticate(auth *services.AuthService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := helpers.BearerToken(c.GetHeader("Authorization"))

		claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			logAuthFailure(logger, c, err)
			handlers.RespondError(c, err)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

func logAuthFailure(logger *slog.Logger, c *gin.Context, err error) {
	reason := "invalid_credential"
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		reason = "missing_credential"
	case errors.Is(err, models.ErrExpiredToken):
		reason = "expired_token"
	case errors.Is(err, models.ErrUnknownUser):
		reason = "unknown_user"
	case !errors.Is(err, models.ErrInvalidCredential):
		// Store failure; ErrorHandler logs it.
		return
	}
	logger.Debug("authentication failed",
		"request_id", c.GetString("request_id"),
		"path", c.Request.URL.Path,
		"reason", reason,
	)
}

// RequireRole must run after Authenticate.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("user")
		claims, ok := value.(*helpers.EnhancedClaims)
		if !exists || !ok {
			res := models.ErrorResponse("authentication required")
			res.RequestID = c.GetString("request_id")
			c.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		if !claims.HasRole(roles...) {
			res := models.ErrorResponse("insufficient permissions")
			res.RequestID = c.GetString("request_id")
			c.AbortWithStatusJSON(http.StatusForbidden, res)
			return
		}
		c.Next()
	}
}
