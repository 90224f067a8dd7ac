package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adamonsea/narrative-forge/pkg/models"
)

// ListEvents: GET /v1/topics/:id/events?hidden=1&limit=
func (h *Handler) ListEvents(c *gin.Context) {
	includeHidden := c.Query("hidden") == "1"
	limit := parseLimit(c.DefaultQuery("limit", "50"))

	events, err := h.events.Events(c.Request.Context(), c.Param("id"), includeHidden, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(events), "include_hidden": includeHidden},
		"data": events,
	})
}

// CreateEvent: POST /v1/topics/:id/events
func (h *Handler) CreateEvent(c *gin.Context) {
	var e models.Event
	if err := c.BindJSON(&e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	e.TopicID = c.Param("id")

	if err := h.events.Create(c.Request.Context(), &e); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": e})
}

// RefreshEvents: POST /v1/topics/:id/events/refresh
// Body: optional {"region": "..."}
func (h *Handler) RefreshEvents(c *gin.Context) {
	var body struct {
		Region string `json:"region"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
			return
		}
	}

	out, err := h.events.Refresh(c.Request.Context(), c.Param("id"), body.Region)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meta": out})
}

// UpdateEvent: PUT /v1/events/:id
func (h *Handler) UpdateEvent(c *gin.Context) {
	var e models.Event
	if err := c.BindJSON(&e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	e.ID = c.Param("id")

	if err := h.events.Update(c.Request.Context(), &e); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": e})
}

// HideEvent: POST /v1/events/:id/hide
func (h *Handler) HideEvent(c *gin.Context) {
	if err := h.events.Hide(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UnhideEvent: POST /v1/events/:id/unhide
func (h *Handler) UnhideEvent(c *gin.Context) {
	if err := h.events.Unhide(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PromoteEvent: POST /v1/events/:id/promote
// Body: {"rank": 1}
func (h *Handler) PromoteEvent(c *gin.Context) {
	var body struct {
		Rank int `json:"rank"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	if err := h.events.Promote(c.Request.Context(), c.Param("id"), body.Rank); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteEvent: DELETE /v1/events/:id
func (h *Handler) DeleteEvent(c *gin.Context) {
	if err := h.events.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
