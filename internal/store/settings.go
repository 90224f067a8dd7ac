package store

import (
	"context"
	"database/sql"
	"errors"

	dbtypes "github.com/adamonsea/narrative-forge/internal/db"
	"github.com/adamonsea/narrative-forge/internal/realtime"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

func (p *PgStore) GetSetting(ctx context.Context, key string) (*models.Setting, error) {
	var s models.Setting
	query := `SELECT key, value, updated_by, updated_at FROM settings WHERE key = $1`
	if err := p.db.GetContext(ctx, &s, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (p *PgStore) PutSetting(ctx context.Context, key string, value dbtypes.JSONMap, updatedBy string) error {
	_, err := p.db.ExecContext(ctx, `
INSERT INTO settings (key, value, updated_by, updated_at)
VALUES ($1,$2::jsonb,$3,now())
ON CONFLICT (key) DO UPDATE SET
 value=EXCLUDED.value,
 updated_by=EXCLUDED.updated_by,
 updated_at=now()
`, key, value, updatedBy)
	if err != nil {
		return err
	}

	p.notify(ctx, "settings", realtime.OpUpdate, key, "")
	return nil
}
