package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adamonsea/narrative-forge/pkg/models"
)

// ListTopics: GET /v1/topics?active=1
func (h *Handler) ListTopics(c *gin.Context) {
	activeOnly := c.Query("active") == "1"

	topics, err := h.topics.Topics(c.Request.Context(), activeOnly)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(topics), "active_only": activeOnly},
		"data": topics,
	})
}

// CreateTopic: POST /v1/topics
func (h *Handler) CreateTopic(c *gin.Context) {
	var t models.Topic
	if err := c.BindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	if err := h.topics.CreateTopic(c.Request.Context(), &t); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": t})
}

// GetTopic: GET /v1/topics/:id
// The id may also be a slug; uuids are tried first.
func (h *Handler) GetTopic(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	t, err := h.topics.Topic(ctx, id)
	if err != nil {
		t, err = h.topics.TopicBySlug(ctx, id)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"in_drip_window": t.Drip.InWindow(time.Now())},
		"data": t,
	})
}

// SetTopicDrip: PUT /v1/topics/:id/drip
// Body: the full drip blob; partial updates are not supported.
func (h *Handler) SetTopicDrip(c *gin.Context) {
	var d models.DripSettings
	if err := c.BindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	if err := h.topics.SetDrip(c.Request.Context(), c.Param("id"), d); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"in_drip_window": d.InWindow(time.Now())},
		"data": d,
	})
}

// SetTopicActive: POST /v1/topics/:id/active
// Body: {"active": bool}
func (h *Handler) SetTopicActive(c *gin.Context) {
	var body struct {
		Active bool `json:"active"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	if err := h.topics.SetActive(c.Request.Context(), c.Param("id"), body.Active); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddListEntry: POST /v1/topics/:id/lists/:field
// Body: {"value": "..."}. The response always carries the list the dashboard
// should show, grown on success, untouched on failure.
func (h *Handler) AddListEntry(c *gin.Context) {
	var body struct {
		Value string `json:"value"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	list, err := h.topics.AddListEntry(c.Request.Context(), c.Param("id"), c.Param("field"), body.Value)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"field": c.Param("field"), "count": len(list)},
		"data": list,
	})
}

// RemoveListEntry: DELETE /v1/topics/:id/lists/:field?value=...
func (h *Handler) RemoveListEntry(c *gin.Context) {
	list, err := h.topics.RemoveListEntry(c.Request.Context(), c.Param("id"), c.Param("field"), c.Query("value"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"field": c.Param("field"), "count": len(list)},
		"data": list,
	})
}

// ScrapeTopic: POST /v1/topics/:id/scrape
// Runs the hosted scraper for one topic outside its schedule.
func (h *Handler) ScrapeTopic(c *gin.Context) {
	out, err := h.scrape.Run(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meta": out})
}
