package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/clemson-tix/tigertix/internal/models"
	"github.com/clemson-tix/tigertix/internal/services"
	"github.com/gin-gonic/gin"
)

const refreshCookie = "refresh_token"

// AuthOptions carries the environment-dependent parts of the auth gateway.
type AuthOptions struct {
	SecureCookies bool
	// ExposeResetToken returns password reset tokens in the response body.
	// Never set in production.
	ExposeResetToken bool
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// setRefreshCookie mirrors the refresh token into an HttpOnly cookie scoped
// to the auth routes so browser clients need not store it themselves.
func setRefreshCookie(c *gin.Context, opts AuthOptions, pair *models.TokenPair) {
	maxAge := int(time.Until(pair.RefreshTokenExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, pair.RefreshToken, maxAge, "/api/auth", "", opts.SecureCookies, true)
}

func clearRefreshCookie(c *gin.Context, opts AuthOptions) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, "", -1, "/api/auth", "", opts.SecureCookies, true)
}

// presentedRefreshToken reads the token from the JSON body, falling back to
// the cookie. An empty body is allowed.
func presentedRefreshToken(c *gin.Context) (string, bool) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err)
		return "", false
	}
	if req.RefreshToken == "" {
		req.RefreshToken, _ = c.Cookie(refreshCookie)
	}
	return req.RefreshToken, true
}

func Register(a *services.AuthService, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RegisterInput
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		result, err := a.Register(c.Request.Context(), &req)
		if err != nil {
			RespondError(c, err)
			return
		}

		setRefreshCookie(c, opts, result.Tokens)
		c.JSON(http.StatusCreated, models.SuccessResponse(result, "user registered"))
	}
}

func Login(a *services.AuthService, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginInput
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		result, err := a.Login(c.Request.Context(), &req)
		if err != nil {
			RespondError(c, err)
			return
		}

		setRefreshCookie(c, opts, result.Tokens)
		c.JSON(http.StatusOK, models.SuccessResponse(result, "login successful"))
	}
}

func Refresh(a *services.AuthService, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := presentedRefreshToken(c)
		if !ok {
			return
		}

		pair, err := a.Refresh(c.Request.Context(), token)
		if err != nil {
			RespondError(c, err)
			return
		}

		setRefreshCookie(c, opts, pair)
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"tokens": pair}, "token refreshed"))
	}
}

func Logout(a *services.AuthService, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := presentedRefreshToken(c)
		if !ok {
			return
		}

		if err := a.Logout(c.Request.Context(), token); err != nil {
			RespondError(c, err)
			return
		}

		clearRefreshCookie(c, opts)
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "logged out"))
	}
}

func LogoutAll(a *services.AuthService, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok {
			return
		}

		count, err := a.LogoutAll(c.Request.Context(), claims.UserID)
		if err != nil {
			RespondError(c, err)
			return
		}

		clearRefreshCookie(c, opts)
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"revoked_count": count}, "all sessions revoked"))
	}
}

func Me(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok {
			return
		}

		user, err := a.Me(c.Request.Context(), claims.UserID)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"user": user.Response()}, ""))
	}
}

func RequestPasswordReset(a *services.AuthService, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email string `json:"email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		token, err := a.RequestPasswordReset(c.Request.Context(), req.Email)
		if err != nil {
			RespondError(c, err)
			return
		}

		// Same response whether or not the account exists.
		var data any
		if opts.ExposeResetToken && token != "" {
			data = gin.H{"reset_token": token}
		}
		c.JSON(http.StatusOK, models.SuccessResponse(data, "if the account exists, a reset link has been sent"))
	}
}

func ConfirmPasswordReset(a *services.AuthService, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Token    string `json:"token"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		if err := a.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
			RespondError(c, err)
			return
		}

		clearRefreshCookie(c, opts)
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "password updated"))
	}
}
