package store

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/adamonsea/narrative-forge/internal/realtime"
)

// Sentinel errors surfaced through the service layer. Callers match with
// errors.Is, so wrap rather than replace when adding context.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyQueued   = errors.New("article already queued for generation")
	ErrLastCoverOption = errors.New("story needs at least one cover option")
)

// psql builds the dynamic list queries with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ChangePublisher receives a change event after each successful mutation.
// Implementations must not block or fail the mutation.
type ChangePublisher interface {
	Publish(ctx context.Context, ch realtime.Change)
}

type PgStore struct {
	db  *sqlx.DB
	pub ChangePublisher
}

func NewPgStore(db *sql.DB) *PgStore {
	return &PgStore{db: sqlx.NewDb(db, "postgres")}
}

// SetChangePublisher attaches the realtime feed. Call before serving traffic.
func (p *PgStore) SetChangePublisher(pub ChangePublisher) {
	p.pub = pub
}

func (p *PgStore) notify(ctx context.Context, table, op, id, topicID string) {
	if p.pub == nil {
		return
	}
	p.pub.Publish(ctx, realtime.Change{Table: table, Op: op, ID: id, TopicID: topicID})
}
