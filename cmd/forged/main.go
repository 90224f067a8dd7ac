package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/adamonsea/narrative-forge/internal/api"
	"github.com/adamonsea/narrative-forge/internal/bucket"
	"github.com/adamonsea/narrative-forge/internal/config"
	"github.com/adamonsea/narrative-forge/internal/functions"
	"github.com/adamonsea/narrative-forge/internal/logging"
	"github.com/adamonsea/narrative-forge/internal/notify"
	"github.com/adamonsea/narrative-forge/internal/realtime"
	"github.com/adamonsea/narrative-forge/internal/service"
	"github.com/adamonsea/narrative-forge/internal/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("FORGE_CONFIG"))
	if err != nil {
		logging.New("info").Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging.Level)

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("db open", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// The database may still be starting alongside this service.
	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		logger.Info("waiting for db", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		logger.Error("db unreachable", "error", err)
		os.Exit(1)
	}

	if err := store.RunMigrations(db); err != nil {
		logger.Error("migrations", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis ping failed, realtime and cost cache degraded", "error", err)
	}
	cancelPing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := store.NewPgStore(db)
	pub := realtime.NewPublisher(rdb, cfg.Realtime.Channel, logger.With("component", "realtime"))
	repo.SetChangePublisher(pub)

	fns := functions.NewClient(cfg.Functions.BaseURL, cfg.Functions.ServiceKey, cfg.Functions.HTTPTimeout(), nil, logger.With("component", "functions"))

	var bkt *bucket.Client
	if cfg.Bucket.BaseURL != "" {
		bkt = bucket.NewClient(cfg.Bucket.BaseURL, cfg.Bucket.CarouselName, cfg.Bucket.SigningSecret, cfg.Bucket.SignedTTL(), nil, logger.With("component", "bucket"))
	}

	var notifier *notify.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		notifier, err = notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger.With("component", "notify"))
		if err != nil {
			logger.Warn("telegram notifier disabled", "error", err)
		}
	}

	pipeline := service.NewPipelineService(repo, fns, fns, logger.With("component", "pipeline"))
	topics := service.NewTopicService(repo, fns, logger.With("component", "topics"))
	scrape := service.NewScrapeService(repo, fns, logger.With("component", "scrape"))
	costs := service.NewCostService(repo, service.RedisCache{RDB: rdb}, time.Minute, logger.With("component", "costs"))
	settings := service.NewSettingsService(repo, logger.With("component", "settings"))
	subscribers := service.NewSubscriberService(repo, logger.With("component", "subscribers"))
	events := service.NewEventService(repo, fns, logger.With("component", "events"))

	var carousel *service.CarouselService
	if bkt != nil {
		carousel = service.NewCarouselService(repo, bkt, bkt, logger.With("component", "carousel"))
	} else {
		carousel = service.NewCarouselService(repo, nil, nil, logger.With("component", "carousel"))
	}

	var tickets *service.TicketService
	if notifier != nil {
		tickets = service.NewTicketService(repo, notifier, logger.With("component", "tickets"))
	} else {
		tickets = service.NewTicketService(repo, nil, logger.With("component", "tickets"))
	}

	// Changes made by the edge functions arrive on the same channel as this
	// service's own writes. Cached views drop their state and rebuild lazily.
	listener := realtime.NewListener(rdb, cfg.Realtime.Channel, cfg.Realtime.Debounce(), logger.With("component", "realtime"))
	for _, table := range []string{"articles", "story_queue", "stories"} {
		listener.OnTable(table, func(ch realtime.Change) {
			if ch.TopicID != "" {
				pipeline.Invalidate(ch.TopicID)
			}
		})
	}
	listener.OnTable("api_usage", func(realtime.Change) {
		costs.Invalidate(context.Background())
	})
	go func() {
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("realtime listener stopped", "error", err)
		}
	}()

	sweeper := service.NewSweeper(repo, fns, cfg.Sweeper.Interval(), cfg.Sweeper.StuckAfter(), logger.With("component", "sweeper"))
	go sweeper.Run(ctx)

	handler := api.NewHandler(api.Services{
		Pipeline:    pipeline,
		Topics:      topics,
		Scrape:      scrape,
		Carousel:    carousel,
		Tickets:     tickets,
		Subscribers: subscribers,
		Events:      events,
		Costs:       costs,
		Settings:    settings,
	}, db, fns)

	router := gin.Default()
	api.RegisterRoutes(router, handler)

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}
	go func() {
		logger.Info("listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
