// Package api exposes the dashboard operations as a JSON HTTP surface.
// Responses follow the meta/data envelope; failures carry {"error": msg} with
// a status mapped from the error kind.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/adamonsea/narrative-forge/internal/service"
	"github.com/adamonsea/narrative-forge/internal/store"
)

// HealthChecker pings the function gateway for the readiness probe.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	pipeline    *service.PipelineService
	topics      *service.TopicService
	scrape      *service.ScrapeService
	carousel    *service.CarouselService
	tickets     *service.TicketService
	subscribers *service.SubscriberService
	events      *service.EventService
	costs       *service.CostService
	settings    *service.SettingsService

	db     Pinger
	health HealthChecker
}

type Services struct {
	Pipeline    *service.PipelineService
	Topics      *service.TopicService
	Scrape      *service.ScrapeService
	Carousel    *service.CarouselService
	Tickets     *service.TicketService
	Subscribers *service.SubscriberService
	Events      *service.EventService
	Costs       *service.CostService
	Settings    *service.SettingsService
}

func NewHandler(svcs Services, db Pinger, health HealthChecker) *Handler {
	return &Handler{
		pipeline:    svcs.Pipeline,
		topics:      svcs.Topics,
		scrape:      svcs.Scrape,
		carousel:    svcs.Carousel,
		tickets:     svcs.Tickets,
		subscribers: svcs.Subscribers,
		events:      svcs.Events,
		costs:       svcs.Costs,
		settings:    svcs.Settings,
		db:          db,
		health:      health,
	}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/healthz", h.Healthz)

	v1 := r.Group("/v1")
	{
		topics := v1.Group("/topics")
		{
			topics.GET("", h.ListTopics)
			topics.POST("", h.CreateTopic)
			topics.GET("/:id", h.GetTopic)
			topics.POST("/:id/active", h.SetTopicActive)
			topics.PUT("/:id/drip", h.SetTopicDrip)
			topics.POST("/:id/lists/:field", h.AddListEntry)
			topics.DELETE("/:id/lists/:field", h.RemoveListEntry)
			topics.POST("/:id/scrape", h.ScrapeTopic)

			topics.GET("/:id/pipeline", h.Pipeline)
			topics.POST("/:id/articles/bulk-delete", h.BulkDeleteArticles)
			topics.POST("/:id/articles/:articleID/approve", h.ApproveArticle)
			topics.POST("/:id/articles/:articleID/reject", h.RejectArticle)
			topics.DELETE("/:id/articles/:articleID", h.DeleteArticle)
			topics.POST("/:id/queue/:queueID/cancel", h.CancelQueueItem)
			topics.POST("/:id/queue/:queueID/retry", h.RetryQueueItem)
			topics.POST("/:id/stories/:storyID/approve", h.ApproveStory)
			topics.POST("/:id/stories/:storyID/return", h.ReturnStory)
			topics.POST("/:id/stories/:storyID/reject", h.RejectStory)
			topics.PUT("/:id/stories/:storyID/slides/:slideID", h.EditSlide)
			topics.GET("/:id/stories/:storyID/covers", h.ListCovers)
			topics.POST("/:id/stories/:storyID/covers", h.GenerateCover)
			topics.POST("/:id/stories/:storyID/covers/:optionID/select", h.SelectCover)
			topics.DELETE("/:id/stories/:storyID/covers/:optionID", h.DeleteCover)

			topics.GET("/:id/subscribers", h.ListEmailSubscribers)
			topics.POST("/:id/subscribers", h.Subscribe)
			topics.GET("/:id/subscribers/push", h.ListPushSubscribers)
			topics.GET("/:id/subscribers/counts", h.SubscriberCounts)
			topics.GET("/:id/subscribers/export.csv", h.ExportSubscribersCSV)

			topics.GET("/:id/events", h.ListEvents)
			topics.POST("/:id/events", h.CreateEvent)
			topics.POST("/:id/events/refresh", h.RefreshEvents)
		}

		stories := v1.Group("/stories")
		{
			stories.POST("/:id/export", h.RequestExport)
			stories.GET("/:id/export", h.ExportPreview)
			stories.GET("/:id/export/zip", h.ExportZip)
			stories.GET("/:id/export/images/:index", h.ExportImage)
		}

		hooks := v1.Group("/hooks/exports")
		{
			hooks.POST("/:id/started", h.ExportStarted)
			hooks.POST("/:id/completed", h.ExportCompleted)
			hooks.POST("/:id/failed", h.ExportFailed)
		}

		tickets := v1.Group("/tickets")
		{
			tickets.GET("", h.ListTickets)
			tickets.POST("", h.CreateTicket)
			tickets.GET("/counts", h.TicketCounts)
			tickets.POST("/:id/status", h.SetTicketStatus)
			tickets.POST("/:id/resolve", h.ResolveTicket)
			tickets.DELETE("/:id", h.DeleteTicket)
		}

		subs := v1.Group("/subscribers")
		{
			subs.POST("/email/:id/unsubscribe", h.Unsubscribe)
			subs.DELETE("/email/:id", h.DeleteEmailSubscriber)
			subs.DELETE("/push/:id", h.DeletePushSubscriber)
		}

		events := v1.Group("/events")
		{
			events.PUT("/:id", h.UpdateEvent)
			events.POST("/:id/hide", h.HideEvent)
			events.POST("/:id/unhide", h.UnhideEvent)
			events.POST("/:id/promote", h.PromoteEvent)
			events.DELETE("/:id", h.DeleteEvent)
		}

		costs := v1.Group("/costs")
		{
			costs.GET("", h.CostReport)
			costs.POST("/usage", h.RecordUsage)
		}

		settings := v1.Group("/settings")
		{
			settings.GET("/automation", h.Automation)
			settings.PUT("/automation", h.SaveAutomation)
			settings.GET("/:key", h.GetSetting)
			settings.PUT("/:key", h.PutSetting)
		}
	}
}

// Healthz reports database and function-gateway reachability. The gateway
// being down degrades the response but does not fail it; the service can
// still serve reads.
func (h *Handler) Healthz(c *gin.Context) {
	ctx := c.Request.Context()

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": "database unreachable"})
			return
		}
	}

	functionsOK := true
	if h.health != nil {
		if err := h.health.HealthCheck(ctx); err != nil {
			functionsOK = false
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "functions": functionsOK})
}

// fail maps service errors to HTTP statuses and writes the error envelope.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrAlreadyQueued), errors.Is(err, store.ErrLastCoverOption):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// parseLimit ensures a sane integer limit, with bounds.
func parseLimit(s string) int {
	l, err := strconv.Atoi(s)
	if err != nil || l <= 0 {
		return 50
	}
	if l > 200 {
		return 200
	}
	return l
}
