package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Publisher pushes change events to the shared Redis channel. Publishing is
// best-effort: a Redis outage must never fail the write that triggered it, so
// errors are logged and swallowed.
type Publisher struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger
}

func NewPublisher(rdb *redis.Client, channel string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{rdb: rdb, channel: channel, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, ch Change) {
	if p == nil || p.rdb == nil {
		return
	}
	b, err := json.Marshal(ch)
	if err != nil {
		p.logger.Warn("marshal change event", "table", ch.Table, "err", err)
		return
	}
	if err := p.rdb.Publish(ctx, p.channel, b).Err(); err != nil {
		p.logger.Warn("publish change event", "table", ch.Table, "err", err)
	}
}
