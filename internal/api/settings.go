package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	dbtypes "github.com/adamonsea/narrative-forge/internal/db"
	"github.com/adamonsea/narrative-forge/internal/schedule"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

// CostReport: GET /v1/costs?days=30
func (h *Handler) CostReport(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	rep, err := h.costs.Report(c.Request.Context(), days)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"days": rep.Days, "total_usd": rep.TotalUSD},
		"data": rep,
	})
}

// RecordUsage: POST /v1/costs/usage
// Edge functions report their metered upstream calls here.
func (h *Handler) RecordUsage(c *gin.Context) {
	var u models.ApiUsage
	if err := c.BindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	if err := h.costs.Record(c.Request.Context(), &u); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Automation: GET /v1/settings/automation
func (h *Handler) Automation(c *gin.Context) {
	view, err := h.settings.Automation(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

// SaveAutomation: PUT /v1/settings/automation
func (h *Handler) SaveAutomation(c *gin.Context) {
	var cfg schedule.Settings
	if err := c.BindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	view, err := h.settings.SaveAutomation(c.Request.Context(), cfg, c.GetHeader("X-Updated-By"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

// GetSetting: GET /v1/settings/:key
func (h *Handler) GetSetting(c *gin.Context) {
	set, err := h.settings.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": set})
}

// PutSetting: PUT /v1/settings/:key
// Body is the raw jsonb value stored under the key.
func (h *Handler) PutSetting(c *gin.Context) {
	var value dbtypes.JSONMap
	if err := c.BindJSON(&value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	if err := h.settings.Put(c.Request.Context(), c.Param("key"), value, c.GetHeader("X-Updated-By")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
