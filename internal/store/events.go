package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/adamonsea/narrative-forge/internal/realtime"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

const eventCols = "id,topic_id,title,description,location,event_type,source_url,starts_at,ends_at,status,rank,created_at,updated_at"

// ListEvents returns upcoming events for a topic, promoted ones first. Hidden
// events are included only when the caller asks (the curation panel does, the
// public feed does not).
func (p *PgStore) ListEvents(ctx context.Context, topicID string, includeHidden bool, limit int) ([]*models.Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows := []*models.Event{}
	statuses := `('active')`
	if includeHidden {
		statuses = `('active','hidden')`
	}
	query := `
SELECT ` + eventCols + `
FROM events
WHERE topic_id = $1 AND status IN ` + statuses + ` AND starts_at >= now() - INTERVAL '1 day'
ORDER BY rank DESC, starts_at ASC
LIMIT $2
`
	if err := p.db.SelectContext(ctx, &rows, query, topicID, limit); err != nil {
		return nil, err
	}
	return rows, nil
}

func (p *PgStore) CreateEvent(ctx context.Context, e *models.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = models.EventActive
	}

	_, err := p.db.ExecContext(ctx, `
INSERT INTO events (id, topic_id, title, description, location, event_type, source_url, starts_at, ends_at, status, rank)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		e.ID,
		e.TopicID,
		e.Title,
		e.Description,
		e.Location,
		e.EventType,
		e.SourceURL,
		e.StartsAt,
		e.EndsAt,
		e.Status,
		e.Rank,
	)
	if err != nil {
		return fmt.Errorf("insert event %q: %w", e.Title, err)
	}

	p.notify(ctx, "events", realtime.OpInsert, e.ID, e.TopicID)
	return nil
}

// SaveEvents inserts scraped events, skipping any the topic already has with
// the same title and start time. Returns how many rows were actually inserted.
func (p *PgStore) SaveEvents(ctx context.Context, events []*models.Event) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := p.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	var inserted int64
	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if e.Status == "" {
			e.Status = models.EventActive
		}
		res, err := tx.ExecContext(ctx, `
INSERT INTO events (id, topic_id, title, description, location, event_type, source_url, starts_at, ends_at, status, rank)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (topic_id, title, starts_at) DO NOTHING
`,
			e.ID, e.TopicID, e.Title, e.Description, e.Location, e.EventType,
			e.SourceURL, e.StartsAt, e.EndsAt, e.Status, e.Rank)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert event %q: %w", e.Title, err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	if inserted > 0 {
		p.notify(ctx, "events", realtime.OpInsert, events[0].ID, events[0].TopicID)
	}
	return inserted, nil
}

// UpdateEvent rewrites an event's editable fields. Status and rank move
// through their own paths.
func (p *PgStore) UpdateEvent(ctx context.Context, e *models.Event) error {
	var topicID string
	err := p.db.QueryRowContext(ctx, `
UPDATE events
SET title = $1, description = $2, location = $3, event_type = $4,
    source_url = $5, starts_at = $6, ends_at = $7, updated_at = now()
WHERE id = $8
RETURNING topic_id
`,
		e.Title, e.Description, e.Location, e.EventType,
		e.SourceURL, e.StartsAt, e.EndsAt, e.ID).Scan(&topicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	p.notify(ctx, "events", realtime.OpUpdate, e.ID, topicID)
	return nil
}

func (p *PgStore) UpdateEventStatus(ctx context.Context, id string, status models.EventStatus) error {
	var topicID string
	err := p.db.QueryRowContext(ctx,
		`UPDATE events SET status = $1, updated_at = now() WHERE id = $2 RETURNING topic_id`,
		status, id).Scan(&topicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	p.notify(ctx, "events", realtime.OpUpdate, id, topicID)
	return nil
}

// PromoteEvent pins an event above unranked ones in feed order.
func (p *PgStore) PromoteEvent(ctx context.Context, id string, rank int) error {
	var topicID string
	err := p.db.QueryRowContext(ctx,
		`UPDATE events SET rank = $1, updated_at = now() WHERE id = $2 RETURNING topic_id`,
		rank, id).Scan(&topicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	p.notify(ctx, "events", realtime.OpUpdate, id, topicID)
	return nil
}

func (p *PgStore) DeleteEvent(ctx context.Context, id string) error {
	var topicID string
	err := p.db.QueryRowContext(ctx,
		`DELETE FROM events WHERE id = $1 RETURNING topic_id`, id).Scan(&topicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	p.notify(ctx, "events", realtime.OpDelete, id, topicID)
	return nil
}

// ExpireOldEvents marks events whose window has passed. The sweeper calls
// this alongside the stuck-queue check.
func (p *PgStore) ExpireOldEvents(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
UPDATE events
SET status = 'expired', updated_at = now()
WHERE status = 'active' AND COALESCE(ends_at, starts_at) < now() - INTERVAL '1 day'
`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
