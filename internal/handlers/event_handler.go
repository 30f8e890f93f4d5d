package handlers

import (
	"net/http"
	"strconv"

	"github.com/clemson-tix/tigertix/internal/models"
	"github.com/clemson-tix/tigertix/internal/services"
	"github.com/gin-gonic/gin"
)

func CreateEvent(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.EventInput
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		event, err := es.CreateEvent(c.Request.Context(), &req)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(event, "event created"))
	}
}

func ListEvents(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit <= 0 {
			fail(c, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if err != nil || offset < 0 {
			fail(c, http.StatusBadRequest, "invalid offset parameter")
			return
		}
		upcoming, err := strconv.ParseBool(c.DefaultQuery("upcoming", "false"))
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid upcoming parameter")
			return
		}

		events, err := es.ListEvents(c.Request.Context(), models.EventFilter{
			Category:     c.Query("category"),
			FromDate:     c.Query("from"),
			OnlyUpcoming: upcoming,
			Limit:        limit,
			Offset:       offset,
		})
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.ListResponse(events, len(events), limit, offset))
	}
}

func GetEvent(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		event, err := es.GetEvent(c.Request.Context(), id)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(event, ""))
	}
}

func UpdateEvent(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var req models.EventUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		event, err := es.UpdateEvent(c.Request.Context(), id, &req)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(event, "event updated"))
	}
}

func DeleteEvent(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		if err := es.DeleteEvent(c.Request.Context(), id); err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "event deleted"))
	}
}

// ReleaseTickets returns tickets to an event's inventory, e.g. after a
// refund handled outside the system.
func ReleaseTickets(inv *services.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var req struct {
			Quantity int `json:"quantity"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		release, err := inv.Release(c.Request.Context(), id, req.Quantity)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(release, "tickets released"))
	}
}
