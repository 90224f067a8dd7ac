package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adamonsea/narrative-forge/pkg/models"
)

// Cost report windows offered by the dashboard. Requests clamp to the nearest
// preset so the cache only ever holds these three keys.
var costWindows = []int{7, 30, 90}

// UsageStore is the slice of the store the cost dashboard uses.
type UsageStore interface {
	InsertUsage(ctx context.Context, u *models.ApiUsage) error
	SummarizeCosts(ctx context.Context, since time.Time) ([]*models.CostSummary, error)
	SummarizeCostsByDay(ctx context.Context, since time.Time) ([]*models.DailyCost, error)
}

// CostCache caches rendered reports. A Get miss returns "" with no error.
type CostCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, val string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisCache adapts a redis client to CostCache.
type RedisCache struct {
	RDB *redis.Client
}

func (r RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.RDB.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (r RedisCache) Set(ctx context.Context, key, val string, ttl time.Duration) error {
	return r.RDB.Set(ctx, key, val, ttl).Err()
}

func (r RedisCache) Del(ctx context.Context, keys ...string) error {
	return r.RDB.Del(ctx, keys...).Err()
}

// CostReport is the aggregated spend view for one window.
type CostReport struct {
	Days      int                   `json:"days"`
	Since     time.Time             `json:"since"`
	Providers []*models.CostSummary `json:"providers"`
	Daily     []*models.DailyCost   `json:"daily"`
	TotalUSD  float64               `json:"total_usd"`
}

// CostService aggregates API spend. Reports are cached briefly in Redis; the
// realtime listener invalidates the cache when new usage rows land.
type CostService struct {
	store  UsageStore
	cache  CostCache
	ttl    time.Duration
	logger *slog.Logger

	now func() time.Time
}

func NewCostService(st UsageStore, cache CostCache, ttl time.Duration, logger *slog.Logger) *CostService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CostService{store: st, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// Report aggregates spend over the last N days, clamped to the nearest preset
// window.
func (s *CostService) Report(ctx context.Context, days int) (*CostReport, error) {
	days = clampWindow(days)
	key := costKey(days)

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Debug("cost cache read failed", "error", err)
		} else if raw != "" {
			var rep CostReport
			if json.Unmarshal([]byte(raw), &rep) == nil {
				return &rep, nil
			}
		}
	}

	since := s.now().AddDate(0, 0, -days)
	providers, err := s.store.SummarizeCosts(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("summarize costs: %w", err)
	}
	daily, err := s.store.SummarizeCostsByDay(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("summarize daily costs: %w", err)
	}

	rep := &CostReport{Days: days, Since: since, Providers: providers, Daily: daily}
	for _, p := range providers {
		rep.TotalUSD += p.CostUSD
	}

	if s.cache != nil {
		if b, err := json.Marshal(rep); err == nil {
			if err := s.cache.Set(ctx, key, string(b), s.ttl); err != nil {
				s.logger.Debug("cost cache write failed", "error", err)
			}
		}
	}
	return rep, nil
}

// Record tracks one metered upstream call and drops the cached reports.
func (s *CostService) Record(ctx context.Context, u *models.ApiUsage) error {
	if u.Provider == "" || u.Operation == "" {
		return invalidf("usage needs provider and operation")
	}
	if err := s.store.InsertUsage(ctx, u); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	s.Invalidate(ctx)
	return nil
}

// Invalidate drops every cached report window. Safe to call on every usage
// change event; the next Report rebuilds from the store.
func (s *CostService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	keys := make([]string, len(costWindows))
	for i, d := range costWindows {
		keys[i] = costKey(d)
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.logger.Debug("cost cache invalidation failed", "error", err)
	}
}

func costKey(days int) string {
	return fmt.Sprintf("forge:costs:%d", days)
}

func clampWindow(days int) int {
	if days <= 0 {
		return 30
	}
	for _, w := range costWindows {
		if days <= w {
			return w
		}
	}
	return costWindows[len(costWindows)-1]
}
