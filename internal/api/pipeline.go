package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adamonsea/narrative-forge/internal/service"
)

// Pipeline: GET /v1/topics/:id/pipeline
// Returns the board for one topic. ?cached=1 serves the last loaded snapshot
// when one exists, avoiding a store round-trip between mutations.
func (h *Handler) Pipeline(c *gin.Context) {
	topicID := c.Param("id")

	if c.Query("cached") == "1" {
		if pc := h.pipeline.Snapshot(topicID); pc != nil {
			c.JSON(http.StatusOK, gin.H{
				"meta": gin.H{"topic_id": topicID, "cached": true},
				"data": pc,
			})
			return
		}
	}

	pc, err := h.pipeline.Load(c.Request.Context(), topicID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"topic_id": topicID, "cached": false},
		"data": pc,
	})
}

// ApproveArticle: POST /v1/topics/:id/articles/:articleID/approve
// Body: generation options; empty fields fall back to defaults.
func (h *Handler) ApproveArticle(c *gin.Context) {
	var opts service.ApproveOptions
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&opts); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
			return
		}
	}

	item, err := h.pipeline.ApproveArticle(c.Request.Context(), c.Param("id"), c.Param("articleID"), opts)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": item})
}

// RejectArticle: POST /v1/topics/:id/articles/:articleID/reject
func (h *Handler) RejectArticle(c *gin.Context) {
	if err := h.pipeline.RejectArticle(c.Request.Context(), c.Param("id"), c.Param("articleID")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteArticle: DELETE /v1/topics/:id/articles/:articleID
func (h *Handler) DeleteArticle(c *gin.Context) {
	if err := h.pipeline.DeleteArticle(c.Request.Context(), c.Param("id"), c.Param("articleID")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// BulkDeleteArticles: POST /v1/topics/:id/articles/bulk-delete
// Body: {"ids": [...]}
func (h *Handler) BulkDeleteArticles(c *gin.Context) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	n, err := h.pipeline.DeleteArticles(c.Request.Context(), c.Param("id"), body.IDs)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meta": gin.H{"requested": len(body.IDs), "deleted": n}})
}

// CancelQueueItem: POST /v1/topics/:id/queue/:queueID/cancel
func (h *Handler) CancelQueueItem(c *gin.Context) {
	if err := h.pipeline.CancelQueueItem(c.Request.Context(), c.Param("id"), c.Param("queueID")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RetryQueueItem: POST /v1/topics/:id/queue/:queueID/retry
func (h *Handler) RetryQueueItem(c *gin.Context) {
	item, err := h.pipeline.RetryQueueItem(c.Request.Context(), c.Param("id"), c.Param("queueID"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

// ApproveStory: POST /v1/topics/:id/stories/:storyID/approve
func (h *Handler) ApproveStory(c *gin.Context) {
	if err := h.pipeline.ApproveStory(c.Request.Context(), c.Param("id"), c.Param("storyID")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReturnStory: POST /v1/topics/:id/stories/:storyID/return
func (h *Handler) ReturnStory(c *gin.Context) {
	if err := h.pipeline.ReturnStoryToReview(c.Request.Context(), c.Param("id"), c.Param("storyID")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RejectStory: POST /v1/topics/:id/stories/:storyID/reject
func (h *Handler) RejectStory(c *gin.Context) {
	if err := h.pipeline.RejectStory(c.Request.Context(), c.Param("id"), c.Param("storyID")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EditSlide: PUT /v1/topics/:id/stories/:storyID/slides/:slideID
// Body: {"content": "..."}
func (h *Handler) EditSlide(c *gin.Context) {
	var body struct {
		Content string `json:"content"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	slide, err := h.pipeline.EditSlide(c.Request.Context(), c.Param("id"), c.Param("storyID"), c.Param("slideID"), body.Content)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": slide})
}

// ListCovers: GET /v1/topics/:id/stories/:storyID/covers
func (h *Handler) ListCovers(c *gin.Context) {
	opts, err := h.pipeline.Covers(c.Request.Context(), c.Param("id"), c.Param("storyID"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(opts)},
		"data": opts,
	})
}

// GenerateCover: POST /v1/topics/:id/stories/:storyID/covers
// Body: {"prompt": "..."}
func (h *Handler) GenerateCover(c *gin.Context) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
			return
		}
	}

	opt, err := h.pipeline.GenerateCover(c.Request.Context(), c.Param("id"), c.Param("storyID"), body.Prompt)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": opt})
}

// SelectCover: POST /v1/topics/:id/stories/:storyID/covers/:optionID/select
func (h *Handler) SelectCover(c *gin.Context) {
	if err := h.pipeline.SelectCover(c.Request.Context(), c.Param("id"), c.Param("storyID"), c.Param("optionID")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteCover: DELETE /v1/topics/:id/stories/:storyID/covers/:optionID
// Deleting the last remaining option is rejected with 409 before any write.
func (h *Handler) DeleteCover(c *gin.Context) {
	if err := h.pipeline.DeleteCover(c.Request.Context(), c.Param("id"), c.Param("storyID"), c.Param("optionID")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
