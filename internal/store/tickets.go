package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	dbtypes "github.com/adamonsea/narrative-forge/internal/db"
	"github.com/adamonsea/narrative-forge/internal/realtime"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

// topic_id is nullable in the table; COALESCE keeps the model field a plain
// string with empty meaning "no topic".
const ticketCols = "id,ticket_type,source_info,summary,details,severity,status,COALESCE(topic_id::text,'') AS topic_id,resolved_at,resolved_note,created_at,updated_at"

// TicketFilter narrows ListTickets. Zero values match everything.
type TicketFilter struct {
	Status   models.TicketStatus
	Severity models.TicketSeverity
	TopicID  string
	Limit    int
}

func (p *PgStore) ListTickets(ctx context.Context, f TicketFilter) ([]*models.ErrorTicket, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	b := psql.Select(ticketCols).
		From("error_tickets").
		OrderBy("created_at DESC").
		Limit(uint64(limit))

	if f.Status != "" {
		b = b.Where(sq.Eq{"status": f.Status})
	}
	if f.Severity != "" {
		b = b.Where(sq.Eq{"severity": f.Severity})
	}
	if f.TopicID != "" {
		b = b.Where(sq.Eq{"topic_id": f.TopicID})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ticket query: %w", err)
	}

	rows := []*models.ErrorTicket{}
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (p *PgStore) CreateTicket(ctx context.Context, t *models.ErrorTicket) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Details == nil {
		t.Details = dbtypes.JSONMap{}
	}
	if t.Status == "" {
		t.Status = models.TicketNew
	}

	var topicID any
	if t.TopicID != "" {
		topicID = t.TopicID
	}

	_, err := p.db.ExecContext(ctx, `
INSERT INTO error_tickets (id, ticket_type, source_info, summary, details, severity, status, topic_id)
VALUES ($1,$2,$3,$4,$5::jsonb,$6,$7,$8)
`,
		t.ID,
		t.TicketType,
		t.SourceInfo,
		t.Summary,
		t.Details,
		t.Severity,
		t.Status,
		topicID,
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}

	p.notify(ctx, "error_tickets", realtime.OpInsert, t.ID, t.TopicID)
	return nil
}

func (p *PgStore) UpdateTicketStatus(ctx context.Context, id string, status models.TicketStatus) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE error_tickets SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	p.notify(ctx, "error_tickets", realtime.OpUpdate, id, "")
	return nil
}

// ResolveTicket archives a ticket with a resolution note.
func (p *PgStore) ResolveTicket(ctx context.Context, id, note string) error {
	res, err := p.db.ExecContext(ctx, `
UPDATE error_tickets
SET status = 'archived', resolved_at = now(), resolved_note = $1, updated_at = now()
WHERE id = $2
`, note, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	p.notify(ctx, "error_tickets", realtime.OpUpdate, id, "")
	return nil
}

// DeleteTicket removes a ticket outright (spam or duplicates).
func (p *PgStore) DeleteTicket(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM error_tickets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	p.notify(ctx, "error_tickets", realtime.OpDelete, id, "")
	return nil
}

// CountOpenTicketsBySeverity returns badge counts for everything not yet
// archived.
func (p *PgStore) CountOpenTicketsBySeverity(ctx context.Context) (map[models.TicketSeverity]int, error) {
	rows := []struct {
		Severity models.TicketSeverity `db:"severity"`
		N        int                   `db:"n"`
	}{}
	query := `
SELECT severity, COUNT(*) AS n
FROM error_tickets
WHERE status <> 'archived'
GROUP BY severity
`
	if err := p.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	counts := make(map[models.TicketSeverity]int, len(rows))
	for _, r := range rows {
		counts[r.Severity] = r.N
	}
	return counts, nil
}
