package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	dbtypes "github.com/adamonsea/narrative-forge/internal/db"
	"github.com/adamonsea/narrative-forge/internal/realtime"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

const topicCols = "id,name,slug,description,topic_type,region,keywords,landmarks,postcodes,organizations,negative_keywords,is_active,is_public,auto_simplify_enabled,default_tone,audience_expertise,drip,created_by,created_at,updated_at"

func (p *PgStore) ListTopics(ctx context.Context, activeOnly bool) ([]*models.Topic, error) {
	rows := []*models.Topic{}
	query := `SELECT ` + topicCols + ` FROM topics`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name ASC`

	if err := p.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}

func (p *PgStore) GetTopic(ctx context.Context, id string) (*models.Topic, error) {
	var t models.Topic
	query := `SELECT ` + topicCols + ` FROM topics WHERE id = $1`
	if err := p.db.GetContext(ctx, &t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (p *PgStore) GetTopicBySlug(ctx context.Context, slug string) (*models.Topic, error) {
	var t models.Topic
	query := `SELECT ` + topicCols + ` FROM topics WHERE slug = $1`
	if err := p.db.GetContext(ctx, &t, query, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (p *PgStore) CreateTopic(ctx context.Context, t *models.Topic) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Keywords == nil {
		t.Keywords = dbtypes.StringSlice{}
	}

	_, err := p.db.ExecContext(ctx, `
INSERT INTO topics (id, name, slug, description, topic_type, region, keywords, landmarks, postcodes,
 organizations, negative_keywords, is_active, is_public, auto_simplify_enabled, default_tone,
 audience_expertise, drip, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7::jsonb,$8::jsonb,$9::jsonb,$10::jsonb,$11::jsonb,$12,$13,$14,$15,$16,$17::jsonb,$18)
`,
		t.ID,
		t.Name,
		t.Slug,
		t.Description,
		t.TopicType,
		t.Region,
		t.Keywords,
		t.LandmarkNames,
		t.Postcodes,
		t.Organizations,
		t.NegativeFilters,
		t.IsActive,
		t.IsPublic,
		t.AutoSimplify,
		t.Tone,
		t.AudienceExpertise,
		t.Drip,
		t.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("insert topic slug=%s: %w", t.Slug, err)
	}

	p.notify(ctx, "topics", realtime.OpInsert, t.ID, t.ID)
	return nil
}

// Topic list fields the manager can edit. Maps the API-level field name to
// its column, keeping the update SQL static.
var topicListColumns = map[string]string{
	"keywords":          "keywords",
	"landmarks":         "landmarks",
	"postcodes":         "postcodes",
	"organizations":     "organizations",
	"negative_keywords": "negative_keywords",
}

// UpdateTopicList replaces one list field wholesale. The manager always sends
// the full list, so no merge happens here.
func (p *PgStore) UpdateTopicList(ctx context.Context, id, field string, values dbtypes.StringSlice) error {
	col, ok := topicListColumns[field]
	if !ok {
		return fmt.Errorf("unknown topic list field %q", field)
	}
	if values == nil {
		values = dbtypes.StringSlice{}
	}

	res, err := p.db.ExecContext(ctx,
		`UPDATE topics SET `+col+` = $1::jsonb, updated_at = now() WHERE id = $2`, values, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	p.notify(ctx, "topics", realtime.OpUpdate, id, id)
	return nil
}

// UpdateTopicDrip replaces a topic's release-window blob.
func (p *PgStore) UpdateTopicDrip(ctx context.Context, id string, d models.DripSettings) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE topics SET drip = $1::jsonb, updated_at = now() WHERE id = $2`, d, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	p.notify(ctx, "topics", realtime.OpUpdate, id, id)
	return nil
}

func (p *PgStore) SetTopicActive(ctx context.Context, id string, active bool) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE topics SET is_active = $1, updated_at = now() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	p.notify(ctx, "topics", realtime.OpUpdate, id, id)
	return nil
}
