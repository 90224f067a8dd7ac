package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adamonsea/narrative-forge/internal/realtime"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

// EnqueueArticle creates a pending generation job and moves the article to
// processing, in one transaction. A second call while a job is still live
// returns ErrAlreadyQueued, which makes approval safe to retry or double-send.
func (p *PgStore) EnqueueArticle(ctx context.Context, item *models.QueueItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.MaxAttempts <= 0 {
		item.MaxAttempts = 3
	}
	item.Status = models.QueuePending

	tx, err := p.db.Beginx()
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
INSERT INTO story_queue (id, article_id, topic_id, status, slide_type, tone, audience_expertise, max_attempts)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (article_id) WHERE status IN ('pending','processing') DO NOTHING
`,
		item.ID,
		item.ArticleID,
		item.TopicID,
		item.Status,
		item.SlideType,
		item.Tone,
		item.AudienceExpertise,
		item.MaxAttempts,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("enqueue article %s: %w", item.ArticleID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return ErrAlreadyQueued
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE articles SET status = $1, updated_at = now() WHERE id = $2`,
		models.ArticleProcessing, item.ArticleID); err != nil {
		tx.Rollback()
		return fmt.Errorf("mark article processing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	p.notify(ctx, "story_queue", realtime.OpInsert, item.ID, item.TopicID)
	return nil
}

const queueCols = `q.id, q.article_id, q.topic_id, q.status, q.slide_type, q.tone, q.audience_expertise,
 q.attempts, q.max_attempts, q.error_message, q.created_at, q.started_at, q.completed_at,
 a.title AS article_title`

func (p *PgStore) ListQueue(ctx context.Context, topicID string, limit int) ([]*models.QueueItem, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows := []*models.QueueItem{}
	if topicID != "" {
		query := `
SELECT ` + queueCols + `
FROM story_queue q JOIN articles a ON a.id = q.article_id
WHERE q.topic_id = $1 AND q.status IN ('pending','processing','failed')
ORDER BY q.created_at ASC
LIMIT $2
`
		err := p.db.SelectContext(ctx, &rows, query, topicID, limit)
		return rows, err
	}

	query := `
SELECT ` + queueCols + `
FROM story_queue q JOIN articles a ON a.id = q.article_id
WHERE q.status IN ('pending','processing','failed')
ORDER BY q.created_at ASC
LIMIT $1
`
	err := p.db.SelectContext(ctx, &rows, query, limit)
	return rows, err
}

func (p *PgStore) GetQueueItem(ctx context.Context, id string) (*models.QueueItem, error) {
	var item models.QueueItem
	query := `
SELECT ` + queueCols + `
FROM story_queue q JOIN articles a ON a.id = q.article_id
WHERE q.id = $1
`
	if err := p.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// CancelQueueItem removes a pending job and returns its article to review.
// Jobs already picked up by the processor cannot be cancelled.
func (p *PgStore) CancelQueueItem(ctx context.Context, id string) error {
	tx, err := p.db.Beginx()
	if err != nil {
		return err
	}

	var articleID, topicID string
	err = tx.QueryRowContext(ctx,
		`DELETE FROM story_queue WHERE id = $1 AND status = 'pending' RETURNING article_id, topic_id`,
		id).Scan(&articleID, &topicID)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE articles SET status = $1, updated_at = now() WHERE id = $2`,
		models.ArticleNew, articleID); err != nil {
		tx.Rollback()
		return fmt.Errorf("return article to review: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	p.notify(ctx, "story_queue", realtime.OpDelete, id, topicID)
	return nil
}

// RetryQueueItem resets a failed job to pending so the processor picks it up
// again. Attempt history is preserved.
func (p *PgStore) RetryQueueItem(ctx context.Context, id string) error {
	tx, err := p.db.Beginx()
	if err != nil {
		return err
	}

	var articleID, topicID string
	err = tx.QueryRowContext(ctx, `
UPDATE story_queue
SET status = 'pending', error_message = '', started_at = NULL, completed_at = NULL
WHERE id = $1 AND status = 'failed'
RETURNING article_id, topic_id
`, id).Scan(&articleID, &topicID)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE articles SET status = $1, updated_at = now() WHERE id = $2`,
		models.ArticleProcessing, articleID); err != nil {
		tx.Rollback()
		return fmt.Errorf("mark article processing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	p.notify(ctx, "story_queue", realtime.OpUpdate, id, topicID)
	return nil
}

// SweepStuckProcessing handles jobs the remote processor abandoned. Items
// stuck in processing past olderThan go back to pending while they have
// attempts left, and flip to failed once attempts reach the cap.
func (p *PgStore) SweepStuckProcessing(ctx context.Context, olderThan time.Duration) (requeued, failed int64, err error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	tx, err := p.db.Beginx()
	if err != nil {
		return 0, 0, err
	}

	res, err := tx.ExecContext(ctx, `
UPDATE story_queue
SET status = 'failed', error_message = 'stuck in processing', completed_at = now()
WHERE status = 'processing' AND started_at IS NOT NULL AND started_at < $1
  AND attempts >= max_attempts
`, cutoff)
	if err != nil {
		tx.Rollback()
		return 0, 0, err
	}
	failed, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, `
UPDATE story_queue
SET status = 'pending', started_at = NULL
WHERE status = 'processing' AND started_at IS NOT NULL AND started_at < $1
  AND attempts < max_attempts
`, cutoff)
	if err != nil {
		tx.Rollback()
		return 0, 0, err
	}
	requeued, _ = res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}

	if requeued+failed > 0 {
		p.notify(ctx, "story_queue", realtime.OpUpdate, "", "")
	}
	return requeued, failed, nil
}

// CountActiveQueue returns pending plus processing totals per topic, keyed by
// topic id. Used for the pipeline summary header.
func (p *PgStore) CountActiveQueue(ctx context.Context) (map[string]int, error) {
	rows := []struct {
		TopicID string `db:"topic_id"`
		N       int    `db:"n"`
	}{}
	query := `
SELECT topic_id, COUNT(*) AS n
FROM story_queue
WHERE status IN ('pending','processing')
GROUP BY topic_id
`
	if err := p.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.TopicID] = r.N
	}
	return counts, nil
}
