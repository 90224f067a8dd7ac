package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/adamonsea/narrative-forge/internal/realtime"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

const storyCols = "id,article_id,topic_id,title,status,author,cover_illustration_url,cover_illustration_prompt,published_at,created_at,updated_at"

const slideCols = "id,story_id,slide_order,content,image_url,alt_text,word_count,created_at,updated_at"

// StoryFilter narrows ListStories. Zero values match everything.
type StoryFilter struct {
	TopicID  string
	Statuses []models.StoryStatus
	Limit    int
}

func (p *PgStore) ListStories(ctx context.Context, f StoryFilter) ([]*models.Story, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	b := psql.Select(storyCols).
		From("stories").
		OrderBy("updated_at DESC").
		Limit(uint64(limit))

	if f.TopicID != "" {
		b = b.Where(sq.Eq{"topic_id": f.TopicID})
	}
	if len(f.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": f.Statuses})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build story query: %w", err)
	}

	rows := []*models.Story{}
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetStory loads one story with its slides in display order.
func (p *PgStore) GetStory(ctx context.Context, id string) (*models.Story, error) {
	var s models.Story
	if err := p.db.GetContext(ctx, &s, `SELECT `+storyCols+` FROM stories WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	slides, err := p.ListSlides(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load slides for story %s: %w", id, err)
	}
	s.Slides = slides
	return &s, nil
}

func (p *PgStore) ListSlides(ctx context.Context, storyID string) ([]models.Slide, error) {
	slides := []models.Slide{}
	query := `SELECT ` + slideCols + ` FROM slides WHERE story_id = $1 ORDER BY slide_order ASC`
	if err := p.db.SelectContext(ctx, &slides, query, storyID); err != nil {
		return nil, err
	}
	return slides, nil
}

// ListSlidesForStories loads slides for many stories in one query, keyed by
// story id. Used by the pipeline board to avoid per-story round trips.
func (p *PgStore) ListSlidesForStories(ctx context.Context, storyIDs []string) (map[string][]models.Slide, error) {
	out := make(map[string][]models.Slide, len(storyIDs))
	if len(storyIDs) == 0 {
		return out, nil
	}

	slides := []models.Slide{}
	query := `SELECT ` + slideCols + ` FROM slides WHERE story_id = ANY($1::uuid[]) ORDER BY story_id, slide_order ASC`
	if err := p.db.SelectContext(ctx, &slides, query, pq.Array(storyIDs)); err != nil {
		return nil, err
	}
	for _, s := range slides {
		out[s.StoryID] = append(out[s.StoryID], s)
	}
	return out, nil
}

func (p *PgStore) UpdateSlideContent(ctx context.Context, slideID, content string, wordCount int) error {
	var storyID string
	err := p.db.QueryRowContext(ctx, `
UPDATE slides SET content = $1, word_count = $2, updated_at = now() WHERE id = $3
RETURNING story_id
`, content, wordCount, slideID).Scan(&storyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	p.notify(ctx, "slides", realtime.OpUpdate, slideID, "")
	return nil
}

// PublishStory releases a ready story to the public feed.
func (p *PgStore) PublishStory(ctx context.Context, id string) error {
	var topicID string
	err := p.db.QueryRowContext(ctx, `
UPDATE stories SET status = 'published', published_at = now(), updated_at = now()
WHERE id = $1 AND status = 'ready'
RETURNING topic_id
`, id).Scan(&topicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	p.notify(ctx, "stories", realtime.OpUpdate, id, topicID)
	return nil
}

// ReturnStoryToReview pulls a published story back to ready.
func (p *PgStore) ReturnStoryToReview(ctx context.Context, id string) error {
	var topicID string
	err := p.db.QueryRowContext(ctx, `
UPDATE stories SET status = 'ready', published_at = NULL, updated_at = now()
WHERE id = $1 AND status = 'published'
RETURNING topic_id
`, id).Scan(&topicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	p.notify(ctx, "stories", realtime.OpUpdate, id, topicID)
	return nil
}

// DeleteStory removes a rejected story with its slides and cover options and
// loops the source article back to review, in one transaction. The returned
// article id lets callers patch their view.
func (p *PgStore) DeleteStory(ctx context.Context, id string) (string, error) {
	tx, err := p.db.Beginx()
	if err != nil {
		return "", err
	}

	var articleID, topicID string
	err = tx.QueryRowContext(ctx,
		`DELETE FROM stories WHERE id = $1 RETURNING article_id, topic_id`,
		id).Scan(&articleID, &topicID)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE articles SET status = $1, updated_at = now() WHERE id = $2`,
		models.ArticleNew, articleID); err != nil {
		tx.Rollback()
		return "", fmt.Errorf("return article to review: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	p.notify(ctx, "stories", realtime.OpDelete, id, topicID)
	return articleID, nil
}

// CountStoriesByStatus returns per-status story totals for one topic.
func (p *PgStore) CountStoriesByStatus(ctx context.Context, topicID string) (map[models.StoryStatus]int, error) {
	rows := []struct {
		Status models.StoryStatus `db:"status"`
		N      int                `db:"n"`
	}{}
	query := `SELECT status, COUNT(*) AS n FROM stories WHERE topic_id = $1 GROUP BY status`
	if err := p.db.SelectContext(ctx, &rows, query, topicID); err != nil {
		return nil, err
	}

	counts := make(map[models.StoryStatus]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

func (p *PgStore) ListCoverOptions(ctx context.Context, storyID string) ([]*models.CoverOption, error) {
	opts := []*models.CoverOption{}
	query := `
SELECT id, story_id, image_url, prompt, selected, created_at
FROM cover_options
WHERE story_id = $1
ORDER BY created_at ASC
`
	if err := p.db.SelectContext(ctx, &opts, query, storyID); err != nil {
		return nil, err
	}
	return opts, nil
}

func (p *PgStore) AddCoverOption(ctx context.Context, opt *models.CoverOption) error {
	if opt.ID == "" {
		opt.ID = uuid.New().String()
	}
	_, err := p.db.ExecContext(ctx, `
INSERT INTO cover_options (id, story_id, image_url, prompt, selected)
VALUES ($1,$2,$3,$4,FALSE)
`, opt.ID, opt.StoryID, opt.ImageURL, opt.Prompt)
	if err != nil {
		return err
	}

	p.notify(ctx, "cover_options", realtime.OpInsert, opt.ID, "")
	return nil
}

// SelectCoverOption makes optionID the story's cover. Selection is exclusive:
// the previous selection is cleared and the story row mirrors the new image.
func (p *PgStore) SelectCoverOption(ctx context.Context, storyID, optionID string) error {
	tx, err := p.db.Beginx()
	if err != nil {
		return err
	}

	var imageURL, prompt string
	err = tx.QueryRowContext(ctx,
		`SELECT image_url, prompt FROM cover_options WHERE id = $1 AND story_id = $2`,
		optionID, storyID).Scan(&imageURL, &prompt)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE cover_options SET selected = FALSE WHERE story_id = $1 AND selected`,
		storyID); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE cover_options SET selected = TRUE WHERE id = $1`, optionID); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE stories SET cover_illustration_url = $1, cover_illustration_prompt = $2, updated_at = now()
WHERE id = $3
`, imageURL, prompt, storyID); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	p.notify(ctx, "cover_options", realtime.OpUpdate, optionID, "")
	return nil
}

// DeleteCoverOption removes one option. The last remaining option cannot be
// deleted. If the deleted option was selected, the newest remaining option
// takes over as the cover.
func (p *PgStore) DeleteCoverOption(ctx context.Context, storyID, optionID string) error {
	tx, err := p.db.Beginx()
	if err != nil {
		return err
	}

	var total int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cover_options WHERE story_id = $1`, storyID).Scan(&total); err != nil {
		tx.Rollback()
		return err
	}
	if total <= 1 {
		tx.Rollback()
		if total == 0 {
			return ErrNotFound
		}
		return ErrLastCoverOption
	}

	var wasSelected bool
	err = tx.QueryRowContext(ctx,
		`DELETE FROM cover_options WHERE id = $1 AND story_id = $2 RETURNING selected`,
		optionID, storyID).Scan(&wasSelected)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if wasSelected {
		var imageURL, prompt string
		err = tx.QueryRowContext(ctx, `
UPDATE cover_options SET selected = TRUE
WHERE id = (SELECT id FROM cover_options WHERE story_id = $1 ORDER BY created_at DESC LIMIT 1)
RETURNING image_url, prompt
`, storyID).Scan(&imageURL, &prompt)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("promote replacement cover: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE stories SET cover_illustration_url = $1, cover_illustration_prompt = $2, updated_at = now()
WHERE id = $3
`, imageURL, prompt, storyID); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	p.notify(ctx, "cover_options", realtime.OpDelete, optionID, "")
	return nil
}
