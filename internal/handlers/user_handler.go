package handlers

import (
	"net/http"

	"github.com/clemson-tix/tigertix/internal/models"
	"github.com/clemson-tix/tigertix/internal/services"
	"github.com/gin-gonic/gin"
)

// UpdateUserStatus edits role, verification and active flags. Admin only.
func UpdateUserStatus(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		claims, ok := claimsFrom(c)
		if !ok {
			return
		}

		var req models.UserStatusUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		// Admins cannot lock themselves out.
		if claims.IsOwner(id) && (deactivates(&req) || demotes(&req)) {
			fail(c, http.StatusBadRequest, "cannot deactivate or demote your own account")
			return
		}

		user, err := a.UpdateUserStatus(c.Request.Context(), id, &req)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"user": user.Response()}, "user updated"))
	}
}

func deactivates(upd *models.UserStatusUpdate) bool {
	return upd.IsActive != nil && !*upd.IsActive
}

func demotes(upd *models.UserStatusUpdate) bool {
	if upd.Role == nil {
		return false
	}
	role, err := models.ParseRole(*upd.Role)
	return err == nil && role != models.RoleAdmin
}
