package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adamonsea/narrative-forge/internal/store"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

// ListTickets: GET /v1/tickets?status=&severity=&topic=&limit=
func (h *Handler) ListTickets(c *gin.Context) {
	f := store.TicketFilter{
		Status:   models.TicketStatus(c.Query("status")),
		Severity: models.TicketSeverity(c.Query("severity")),
		TopicID:  c.Query("topic"),
		Limit:    parseLimit(c.DefaultQuery("limit", "100")),
	}

	tickets, err := h.tickets.Tickets(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(tickets)},
		"data": tickets,
	})
}

// CreateTicket: POST /v1/tickets
// Edge functions file tickets here when their own writes fail.
func (h *Handler) CreateTicket(c *gin.Context) {
	var t models.ErrorTicket
	if err := c.BindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	if err := h.tickets.Create(c.Request.Context(), &t); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": t})
}

// TicketCounts: GET /v1/tickets/counts
func (h *Handler) TicketCounts(c *gin.Context) {
	counts, err := h.tickets.OpenCounts(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": counts})
}

// SetTicketStatus: POST /v1/tickets/:id/status
// Body: {"status": "current"}
func (h *Handler) SetTicketStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	if err := h.tickets.SetStatus(c.Request.Context(), c.Param("id"), body.Status); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResolveTicket: POST /v1/tickets/:id/resolve
// Body: {"note": "..."}
func (h *Handler) ResolveTicket(c *gin.Context) {
	var body struct {
		Note string `json:"note"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
			return
		}
	}

	if err := h.tickets.Resolve(c.Request.Context(), c.Param("id"), body.Note); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteTicket: DELETE /v1/tickets/:id
func (h *Handler) DeleteTicket(c *gin.Context) {
	if err := h.tickets.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
