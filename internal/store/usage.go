package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adamonsea/narrative-forge/internal/realtime"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

func (p *PgStore) InsertUsage(ctx context.Context, u *models.ApiUsage) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}

	var topicID any
	if u.TopicID != "" {
		topicID = u.TopicID
	}

	_, err := p.db.ExecContext(ctx, `
INSERT INTO api_usage (id, provider, operation, topic_id, tokens_used, cost_usd)
VALUES ($1,$2,$3,$4,$5,$6)
`, u.ID, u.Provider, u.Operation, topicID, u.TokensUsed, u.CostUSD)
	if err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}

	p.notify(ctx, "api_usage", realtime.OpInsert, u.ID, u.TopicID)
	return nil
}

// SummarizeCosts totals spend per provider since the given time.
func (p *PgStore) SummarizeCosts(ctx context.Context, since time.Time) ([]*models.CostSummary, error) {
	rows := []*models.CostSummary{}
	query := `
SELECT provider, COUNT(*) AS calls, COALESCE(SUM(tokens_used),0) AS tokens, COALESCE(SUM(cost_usd),0) AS cost_usd
FROM api_usage
WHERE created_at >= $1
GROUP BY provider
ORDER BY cost_usd DESC
`
	if err := p.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, err
	}
	return rows, nil
}

// SummarizeCostsByDay totals spend per calendar day since the given time.
func (p *PgStore) SummarizeCostsByDay(ctx context.Context, since time.Time) ([]*models.DailyCost, error) {
	rows := []*models.DailyCost{}
	query := `
SELECT date_trunc('day', created_at) AS day, COUNT(*) AS calls, COALESCE(SUM(cost_usd),0) AS cost_usd
FROM api_usage
WHERE created_at >= $1
GROUP BY day
ORDER BY day
`
	if err := p.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, err
	}
	return rows, nil
}
