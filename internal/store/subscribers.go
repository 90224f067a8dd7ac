package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/adamonsea/narrative-forge/internal/realtime"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

const emailSubCols = "id,topic_id,email,name,status,verified_at,unsubscribed_at,created_at"

func (p *PgStore) CreateEmailSubscriber(ctx context.Context, s *models.EmailSubscriber) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = models.SubscriberActive
	}
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))

	// A returning subscriber reactivates their old row.
	_, err := p.db.ExecContext(ctx, `
INSERT INTO email_subscribers (id, topic_id, email, name, status)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (topic_id, email) DO UPDATE SET
 status='active',
 unsubscribed_at=NULL,
 name=EXCLUDED.name
`, s.ID, s.TopicID, s.Email, s.Name, s.Status)
	if err != nil {
		return fmt.Errorf("insert subscriber %s: %w", s.Email, err)
	}

	p.notify(ctx, "email_subscribers", realtime.OpInsert, s.ID, s.TopicID)
	return nil
}

func (p *PgStore) ListEmailSubscribers(ctx context.Context, topicID string, limit int) ([]*models.EmailSubscriber, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows := []*models.EmailSubscriber{}
	query := `
SELECT ` + emailSubCols + `
FROM email_subscribers
WHERE topic_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	if err := p.db.SelectContext(ctx, &rows, query, topicID, limit); err != nil {
		return nil, err
	}
	return rows, nil
}

// AllEmailSubscribers returns every row for a topic, for CSV export. No limit
// on purpose.
func (p *PgStore) AllEmailSubscribers(ctx context.Context, topicID string) ([]*models.EmailSubscriber, error) {
	rows := []*models.EmailSubscriber{}
	query := `
SELECT ` + emailSubCols + `
FROM email_subscribers
WHERE topic_id = $1
ORDER BY created_at ASC
`
	if err := p.db.SelectContext(ctx, &rows, query, topicID); err != nil {
		return nil, err
	}
	return rows, nil
}

func (p *PgStore) UnsubscribeEmail(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `
UPDATE email_subscribers
SET status = 'unsubscribed', unsubscribed_at = now()
WHERE id = $1 AND status = 'active'
`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	p.notify(ctx, "email_subscribers", realtime.OpUpdate, id, "")
	return nil
}

// DeleteEmailSubscriber removes the row entirely (erasure requests).
func (p *PgStore) DeleteEmailSubscriber(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM email_subscribers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	p.notify(ctx, "email_subscribers", realtime.OpDelete, id, "")
	return nil
}

func (p *PgStore) ListPushSubscribers(ctx context.Context, topicID string, limit int) ([]*models.PushSubscriber, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows := []*models.PushSubscriber{}
	query := `
SELECT id, topic_id, endpoint, keys, user_agent, created_at
FROM push_subscribers
WHERE topic_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	if err := p.db.SelectContext(ctx, &rows, query, topicID, limit); err != nil {
		return nil, err
	}
	return rows, nil
}

func (p *PgStore) DeletePushSubscriber(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM push_subscribers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	p.notify(ctx, "push_subscribers", realtime.OpDelete, id, "")
	return nil
}

// SubscriberCounts is the header summary for the subscriber panel.
type SubscriberCounts struct {
	EmailActive int `db:"email_active" json:"email_active"`
	EmailTotal  int `db:"email_total" json:"email_total"`
	Push        int `db:"push" json:"push"`
}

func (p *PgStore) CountSubscribers(ctx context.Context, topicID string) (*SubscriberCounts, error) {
	var c SubscriberCounts
	query := `
SELECT
  (SELECT COUNT(*) FROM email_subscribers WHERE topic_id = $1 AND status = 'active') AS email_active,
  (SELECT COUNT(*) FROM email_subscribers WHERE topic_id = $1) AS email_total,
  (SELECT COUNT(*) FROM push_subscribers WHERE topic_id = $1) AS push
`
	if err := p.db.GetContext(ctx, &c, query, topicID); err != nil {
		return nil, err
	}
	return &c, nil
}
