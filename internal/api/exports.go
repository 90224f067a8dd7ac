package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	dbtypes "github.com/adamonsea/narrative-forge/internal/db"
)

// RequestExport: POST /v1/stories/:id/export
// Body: optional {"formats": {...}} forwarded to the renderer untouched.
func (h *Handler) RequestExport(c *gin.Context) {
	var body struct {
		Formats dbtypes.JSONMap `json:"formats"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
			return
		}
	}

	exp, err := h.carousel.Request(c.Request.Context(), c.Param("id"), body.Formats)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"data": exp})
}

// ExportPreview: GET /v1/stories/:id/export
// The newest export with a signed URL per image.
func (h *Handler) ExportPreview(c *gin.Context) {
	pv, err := h.carousel.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"images": len(pv.Images), "status": pv.Export.Status},
		"data": pv,
	})
}

// ExportZip: GET /v1/stories/:id/export/zip
// The bundle is already held in memory image by image, so the archive is
// assembled fully before the response starts. Images that failed to fetch are
// reported in the X-Bundle-Failed header; the archive carries everything that
// loaded.
func (h *Handler) ExportZip(c *gin.Context) {
	storyID := c.Param("id")

	var buf bytes.Buffer
	rep, err := h.carousel.Zip(c.Request.Context(), storyID, &buf)
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "carousel_"+storyID+".zip"))
	if rep.Failed > 0 {
		c.Header("X-Bundle-Failed", strconv.Itoa(rep.Failed))
	}
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

// ExportImage: GET /v1/stories/:id/export/images/:index
// Single-image download; index is the zero-based position in the export.
func (h *Handler) ExportImage(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image index must be an integer"})
		return
	}

	name, data, err := h.carousel.Image(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// ExportStarted: POST /v1/hooks/exports/:id/started
// Called by the remote renderer when it picks an export up.
func (h *Handler) ExportStarted(c *gin.Context) {
	if err := h.carousel.Started(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportCompleted: POST /v1/hooks/exports/:id/completed
// Body: {"file_paths": [...], "zip_url": "..."}
func (h *Handler) ExportCompleted(c *gin.Context) {
	var body struct {
		FilePaths []string `json:"file_paths"`
		ZipURL    string   `json:"zip_url"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	if err := h.carousel.Complete(c.Request.Context(), c.Param("id"), body.FilePaths, body.ZipURL); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportFailed: POST /v1/hooks/exports/:id/failed
// Body: {"error": "..."}
func (h *Handler) ExportFailed(c *gin.Context) {
	var body struct {
		Error string `json:"error"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
			return
		}
	}

	if err := h.carousel.Fail(c.Request.Context(), c.Param("id"), body.Error); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
