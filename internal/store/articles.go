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

const articleCols = "id,topic_id,title,body,source_url,author,image_url,published_at,word_count,relevance_score,status,created_at,updated_at"

// ArticleFilter narrows ListArticles. Zero values match everything.
type ArticleFilter struct {
	TopicID  string
	Status   models.ArticleStatus
	Search   string
	MinScore float64
	Limit    int
}

func (p *PgStore) ListArticles(ctx context.Context, f ArticleFilter) ([]*models.Article, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	b := psql.Select(articleCols).
		From("articles").
		OrderBy("relevance_score DESC", "created_at DESC").
		Limit(uint64(limit))

	if f.TopicID != "" {
		b = b.Where(sq.Eq{"topic_id": f.TopicID})
	}
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": f.Status})
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		b = b.Where(sq.Or{sq.ILike{"title": like}, sq.ILike{"body": like}})
	}
	if f.MinScore > 0 {
		b = b.Where(sq.GtOrEq{"relevance_score": f.MinScore})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build article query: %w", err)
	}

	rows := []*models.Article{}
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (p *PgStore) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	var a models.Article
	query := `SELECT ` + articleCols + ` FROM articles WHERE id = $1`
	if err := p.db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// SaveArticles upserts scraped articles keyed on (topic_id, source_url) so a
// rescrape refreshes metadata without duplicating rows.
func (p *PgStore) SaveArticles(ctx context.Context, articles []*models.Article) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := p.db.Beginx()
	if err != nil {
		return err
	}

	stmt := `
INSERT INTO articles (id, topic_id, title, body, source_url, author, image_url, published_at, word_count, relevance_score, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
ON CONFLICT (topic_id, source_url) DO UPDATE SET
 title=EXCLUDED.title,
 body=EXCLUDED.body,
 author=EXCLUDED.author,
 image_url=EXCLUDED.image_url,
 published_at=EXCLUDED.published_at,
 word_count=EXCLUDED.word_count,
 relevance_score=EXCLUDED.relevance_score,
 updated_at=now();
`

	for _, a := range articles {
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.Status == "" {
			a.Status = models.ArticleNew
		}

		_, err := tx.ExecContext(ctx, stmt,
			a.ID,
			a.TopicID,
			a.Title,
			a.Body,
			a.URL,
			a.Author,
			a.ImageURL,
			a.PublishedAt,
			a.WordCount,
			a.RelevanceScore,
			a.Status,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert article url=%s: %w", a.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if len(articles) > 0 {
		p.notify(ctx, "articles", realtime.OpInsert, articles[0].ID, articles[0].TopicID)
	}
	return nil
}

func (p *PgStore) UpdateArticleStatus(ctx context.Context, id string, status models.ArticleStatus) error {
	var topicID string
	err := p.db.QueryRowContext(ctx,
		`UPDATE articles SET status = $1, updated_at = now() WHERE id = $2 RETURNING topic_id`,
		status, id).Scan(&topicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	p.notify(ctx, "articles", realtime.OpUpdate, id, topicID)
	return nil
}

// DeleteArticle removes an article outright. Queue history cascades; an
// article that already has a story is protected by the foreign key.
func (p *PgStore) DeleteArticle(ctx context.Context, id string) error {
	var topicID string
	err := p.db.QueryRowContext(ctx,
		`DELETE FROM articles WHERE id = $1 RETURNING topic_id`, id).Scan(&topicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	p.notify(ctx, "articles", realtime.OpDelete, id, topicID)
	return nil
}

// DeleteArticles bulk-deletes within one topic and reports how many rows
// actually went away.
func (p *PgStore) DeleteArticles(ctx context.Context, topicID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := p.db.ExecContext(ctx,
		`DELETE FROM articles WHERE topic_id = $1 AND id = ANY($2::uuid[])`,
		topicID, pq.Array(ids))
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.notify(ctx, "articles", realtime.OpDelete, ids[0], topicID)
	}
	return n, nil
}

// CountArticlesByStatus returns per-status totals for one topic's pipeline.
func (p *PgStore) CountArticlesByStatus(ctx context.Context, topicID string) (map[models.ArticleStatus]int, error) {
	rows := []struct {
		Status models.ArticleStatus `db:"status"`
		N      int                  `db:"n"`
	}{}
	query := `SELECT status, COUNT(*) AS n FROM articles WHERE topic_id = $1 GROUP BY status`
	if err := p.db.SelectContext(ctx, &rows, query, topicID); err != nil {
		return nil, err
	}

	counts := make(map[models.ArticleStatus]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

// requireRow maps zero affected rows to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
