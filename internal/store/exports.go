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

const exportCols = "id,story_id,status,export_formats,file_paths,zip_url,error_message,created_at,updated_at"

func (p *PgStore) CreateExport(ctx context.Context, e *models.CarouselExport) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = models.ExportPending
	}
	if e.FilePaths == nil {
		e.FilePaths = dbtypes.StringSlice{}
	}

	_, err := p.db.ExecContext(ctx, `
INSERT INTO carousel_exports (id, story_id, status, export_formats, file_paths)
VALUES ($1,$2,$3,$4::jsonb,$5::jsonb)
`, e.ID, e.StoryID, e.Status, e.FormatsJSON, e.FilePaths)
	if err != nil {
		return fmt.Errorf("insert export for story %s: %w", e.StoryID, err)
	}

	p.notify(ctx, "carousel_exports", realtime.OpInsert, e.ID, "")
	return nil
}

func (p *PgStore) GetExport(ctx context.Context, id string) (*models.CarouselExport, error) {
	var e models.CarouselExport
	query := `SELECT ` + exportCols + ` FROM carousel_exports WHERE id = $1`
	if err := p.db.GetContext(ctx, &e, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// LatestExportForStory returns the newest export row, completed or not.
func (p *PgStore) LatestExportForStory(ctx context.Context, storyID string) (*models.CarouselExport, error) {
	var e models.CarouselExport
	query := `
SELECT ` + exportCols + `
FROM carousel_exports
WHERE story_id = $1
ORDER BY created_at DESC
LIMIT 1
`
	if err := p.db.GetContext(ctx, &e, query, storyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (p *PgStore) MarkExportGenerating(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `
UPDATE carousel_exports SET status = 'generating', updated_at = now()
WHERE id = $1 AND status = 'pending'
`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// CompleteExport records the rendered file paths and optional zip location.
func (p *PgStore) CompleteExport(ctx context.Context, id string, paths dbtypes.StringSlice, zipURL string) error {
	res, err := p.db.ExecContext(ctx, `
UPDATE carousel_exports
SET status = 'completed', file_paths = $1::jsonb, zip_url = $2, error_message = '', updated_at = now()
WHERE id = $3
`, paths, zipURL, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	p.notify(ctx, "carousel_exports", realtime.OpUpdate, id, "")
	return nil
}

func (p *PgStore) FailExport(ctx context.Context, id, msg string) error {
	res, err := p.db.ExecContext(ctx, `
UPDATE carousel_exports SET status = 'failed', error_message = $1, updated_at = now()
WHERE id = $2
`, msg, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	p.notify(ctx, "carousel_exports", realtime.OpUpdate, id, "")
	return nil
}
