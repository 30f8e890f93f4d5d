package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/clemson-tix/tigertix/internal/helpers"
	"github.com/clemson-tix/tigertix/internal/models"
	"github.com/gin-gonic/gin"
)

const (
	msgInvalidToken       = "invalid or expired token"
	msgInvalidCredentials = "invalid email or password"
	msgUnauthenticated    = "authentication required"
)

// RespondError writes the HTTP form of a taxonomy error. Anything outside
// the taxonomy is handed to the ErrorHandler middleware as a 500.
func RespondError(c *gin.Context, err error) {
	var short *models.InsufficientInventoryError
	switch {
	case errors.As(err, &short):
		c.JSON(http.StatusBadRequest, gin.H{
			"success":           false,
			"error":             "not enough tickets available",
			"remaining_tickets": short.Remaining,
			"request_id":        c.GetString("request_id"),
		})
	case errors.Is(err, models.ErrInvalidInput):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrConflict):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrUnauthenticated):
		fail(c, http.StatusUnauthorized, msgUnauthenticated)
	// Expired, revoked and unknown are logged distinctly but look identical
	// to the client.
	case errors.Is(err, models.ErrInvalidToken),
		errors.Is(err, models.ErrExpiredToken),
		errors.Is(err, models.ErrRevokedToken),
		errors.Is(err, models.ErrUnknownUser):
		fail(c, http.StatusUnauthorized, msgInvalidToken)
	case errors.Is(err, models.ErrInvalidCredential):
		fail(c, http.StatusUnauthorized, msgInvalidCredentials)
	default:
		_ = c.Error(err)
	}
}

func fail(c *gin.Context, status int, msg string) {
	res := models.ErrorResponse(msg)
	res.RequestID = c.GetString("request_id")
	c.JSON(status, res)
}

func bindError(c *gin.Context, err error) {
	fail(c, http.StatusBadRequest, "invalid request payload: "+err.Error())
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// claimsFrom returns the principal set by the Authenticate middleware.
func claimsFrom(c *gin.Context) (*helpers.EnhancedClaims, bool) {
	value, exists := c.Get("user")
	if !exists {
		fail(c, http.StatusUnauthorized, msgUnauthenticated)
		return nil, false
	}
	claims, ok := value.(*helpers.EnhancedClaims)
	if !ok {
		_ = c.Error(errors.New("invalid user claims in context"))
		return nil, false
	}
	return claims, true
}
