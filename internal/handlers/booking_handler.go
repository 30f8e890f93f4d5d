package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/clemson-tix/tigertix/internal/models"
	"github.com/clemson-tix/tigertix/internal/services"
	"github.com/gin-gonic/gin"
)

type purchaseRequest struct {
	EventID  int64 `json:"event_id"`
	Quantity *int  `json:"quantity"`
}

func (r purchaseRequest) quantity() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

func respondBooking(c *gin.Context, booking *models.Booking) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"booking": booking,
	})
}

// PurchaseEventTickets buys tickets for the event in the path. The body is
// optional and quantity defaults to 1.
func PurchaseEventTickets(inv *services.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		claims, ok := claimsFrom(c)
		if !ok {
			return
		}

		var req purchaseRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			bindError(c, err)
			return
		}

		booking, err := inv.Purchase(c.Request.Context(), id, req.quantity(), claims.Purchaser())
		if err != nil {
			RespondError(c, err)
			return
		}
		respondBooking(c, booking)
	}
}

// Purchase buys tickets for the event named by event_id in the body.
func Purchase(inv *services.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok {
			return
		}

		var req purchaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		if req.EventID <= 0 {
			fail(c, http.StatusBadRequest, "event_id is required")
			return
		}

		booking, err := inv.Purchase(c.Request.Context(), req.EventID, req.quantity(), claims.Purchaser())
		if err != nil {
			RespondError(c, err)
			return
		}
		respondBooking(c, booking)
	}
}

func ListMyTickets(inv *services.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok {
			return
		}

		tickets, err := inv.TicketsForUser(c.Request.Context(), claims.UserID)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.ListResponse(tickets, len(tickets), 0, 0))
	}
}
