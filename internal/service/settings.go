package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dbtypes "github.com/adamonsea/narrative-forge/internal/db"
	"github.com/adamonsea/narrative-forge/internal/schedule"
	"github.com/adamonsea/narrative-forge/internal/store"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

// AutomationKey is the settings row holding the scrape/generate scheduler
// blob.
const AutomationKey = "automation"

// SettingsStore is the slice of the store the settings panel uses.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (*models.Setting, error)
	PutSetting(ctx context.Context, key string, value dbtypes.JSONMap, updatedBy string) error
}

// AutomationView is the stored blob plus the computed next activation. The
// next-run time is informational; the remote scheduler is authoritative.
type AutomationView struct {
	schedule.Settings
	NextRun *time.Time `json:"next_run,omitempty"`
}

// SettingsService reads and writes admin settings blobs.
type SettingsService struct {
	store  SettingsStore
	logger *slog.Logger

	now func() time.Time
}

func NewSettingsService(st SettingsStore, logger *slog.Logger) *SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsService{store: st, logger: logger, now: time.Now}
}

// Automation returns the scheduler settings, falling back to defaults when
// nothing has been saved yet.
func (s *SettingsService) Automation(ctx context.Context) (*AutomationView, error) {
	set, err := s.store.GetSetting(ctx, AutomationKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.view(schedule.Default()), nil
		}
		return nil, fmt.Errorf("load automation settings: %w", err)
	}
	return s.view(schedule.FromValue(set.Value)), nil
}

// SaveAutomation validates and persists the scheduler settings.
func (s *SettingsService) SaveAutomation(ctx context.Context, cfg schedule.Settings, updatedBy string) (*AutomationView, error) {
	if err := cfg.Validate(); err != nil {
		return nil, invalidf("%v", err)
	}
	if err := s.store.PutSetting(ctx, AutomationKey, cfg.Value(), updatedBy); err != nil {
		return nil, fmt.Errorf("save automation settings: %w", err)
	}
	return s.view(cfg), nil
}

func (s *SettingsService) view(cfg schedule.Settings) *AutomationView {
	v := &AutomationView{Settings: cfg}
	next, err := cfg.NextRun(s.now())
	if err != nil {
		s.logger.Warn("next-run computation failed", "error", err)
		return v
	}
	if !next.IsZero() {
		v.NextRun = &next
	}
	return v
}

// Get reads one raw settings blob.
func (s *SettingsService) Get(ctx context.Context, key string) (*models.Setting, error) {
	if key == "" {
		return nil, invalidf("settings key required")
	}
	return s.store.GetSetting(ctx, key)
}

// Put writes one raw settings blob.
func (s *SettingsService) Put(ctx context.Context, key string, value dbtypes.JSONMap, updatedBy string) error {
	if key == "" {
		return invalidf("settings key required")
	}
	if err := s.store.PutSetting(ctx, key, value, updatedBy); err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}
