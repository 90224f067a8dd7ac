package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Listener consumes the change channel and invokes registered callbacks.
// Callbacks are registered per table, explicitly, before Run starts; there is
// no broadcast bus to subscribe to by accident.
//
// Bursts are debounced: many changes to one table inside the window collapse
// into a single callback carrying the latest change. A refresh already queued
// for a table is coalesced, never stacked.
type Listener struct {
	rdb      *redis.Client
	channel  string
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	handlers map[string][]func(Change)
	timers   map[string]*time.Timer
	latest   map[string]Change
}

func NewListener(rdb *redis.Client, channel string, debounce time.Duration, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Listener{
		rdb:      rdb,
		channel:  channel,
		logger:   logger,
		debounce: debounce,
		handlers: make(map[string][]func(Change)),
		timers:   make(map[string]*time.Timer),
		latest:   make(map[string]Change),
	}
}

// OnTable registers fn for changes to one table. Not safe to call after Run.
func (l *Listener) OnTable(table string, fn func(Change)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[table] = append(l.handlers[table], fn)
}

// Run blocks consuming messages until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	sub := l.rdb.Subscribe(ctx, l.channel)
	defer sub.Close()

	ch := sub.Channel()
	l.logger.Info("realtime listener started", "channel", l.channel, "debounce", l.debounce)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				l.logger.Warn("drop malformed change event", "err", err)
				continue
			}
			l.offer(change)
		}
	}
}

// offer records the change and arms (or re-arms) the table's debounce timer.
func (l *Listener) offer(change Change) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.latest[change.Table] = change
	if t, ok := l.timers[change.Table]; ok {
		t.Reset(l.debounce)
		return
	}
	table := change.Table
	l.timers[table] = time.AfterFunc(l.debounce, func() { l.fire(table) })
}

func (l *Listener) fire(table string) {
	l.mu.Lock()
	change := l.latest[table]
	delete(l.timers, table)
	fns := append([]func(Change){}, l.handlers[table]...)
	l.mu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}
