package handlers

import (
	"net/http"

	"github.com/clemson-tix/tigertix/internal/models"
	"github.com/clemson-tix/tigertix/internal/services"
	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ParseIntent exposes the classifier on its own so the frontend can confirm
// a booking with the user before submitting it.
func ParseIntent(ic services.IntentClassifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		intent, err := ic.Classify(c.Request.Context(), req.Message)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(intent, ""))
	}
}

// ChatBook classifies the message, resolves the event by name and runs the
// same purchase as the direct endpoint.
func ChatBook(ic services.IntentClassifier, es *services.EventService, inv *services.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok {
			return
		}

		var req chatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		intent, err := ic.Classify(c.Request.Context(), req.Message)
		if err != nil {
			RespondError(c, err)
			return
		}

		if intent.Intent != services.IntentBook {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"intent":  intent,
				"message": "no booking requested",
			})
			return
		}
		if intent.EventName == "" {
			fail(c, http.StatusBadRequest, "which event would you like to book?")
			return
		}

		event, err := es.FindEventByName(c.Request.Context(), intent.EventName)
		if err != nil {
			RespondError(c, err)
			return
		}

		booking, err := inv.Purchase(c.Request.Context(), event.ID, intent.Quantity, claims.Purchaser())
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"intent":  intent,
			"booking": booking,
		})
	}
}
