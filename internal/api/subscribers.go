package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ListEmailSubscribers: GET /v1/topics/:id/subscribers?limit=
func (h *Handler) ListEmailSubscribers(c *gin.Context) {
	limit := parseLimit(c.DefaultQuery("limit", "100"))

	subs, err := h.subscribers.Emails(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(subs), "limit": limit},
		"data": subs,
	})
}

// Subscribe: POST /v1/topics/:id/subscribers
// Body: {"email": "...", "name": "..."}
func (h *Handler) Subscribe(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	sub, err := h.subscribers.Subscribe(c.Request.Context(), c.Param("id"), body.Email, body.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": sub})
}

// ListPushSubscribers: GET /v1/topics/:id/subscribers/push?limit=
func (h *Handler) ListPushSubscribers(c *gin.Context) {
	limit := parseLimit(c.DefaultQuery("limit", "100"))

	subs, err := h.subscribers.Push(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(subs), "limit": limit},
		"data": subs,
	})
}

// SubscriberCounts: GET /v1/topics/:id/subscribers/counts
func (h *Handler) SubscriberCounts(c *gin.Context) {
	counts, err := h.subscribers.Counts(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": counts})
}

// ExportSubscribersCSV: GET /v1/topics/:id/subscribers/export.csv
// Header + one row per subscriber, assembled in memory so the row count can
// ride along as a header.
func (h *Handler) ExportSubscribersCSV(c *gin.Context) {
	var buf bytes.Buffer
	n, err := h.subscribers.ExportCSV(c.Request.Context(), c.Param("id"), &buf)
	if err != nil {
		fail(c, err)
		return
	}

	filename := fmt.Sprintf("subscribers_%s_%s.csv", c.Param("id"), time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("X-Row-Count", fmt.Sprint(n))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Unsubscribe: POST /v1/subscribers/email/:id/unsubscribe
func (h *Handler) Unsubscribe(c *gin.Context) {
	if err := h.subscribers.Unsubscribe(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteEmailSubscriber: DELETE /v1/subscribers/email/:id
func (h *Handler) DeleteEmailSubscriber(c *gin.Context) {
	if err := h.subscribers.DeleteEmail(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeletePushSubscriber: DELETE /v1/subscribers/push/:id
func (h *Handler) DeletePushSubscriber(c *gin.Context) {
	if err := h.subscribers.DeletePush(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
