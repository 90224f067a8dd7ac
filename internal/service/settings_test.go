package service

import (
	"context"
	"errors"
	"testing"
	"time"

	dbtypes "github.com/adamonsea/narrative-forge/internal/db"
	"github.com/adamonsea/narrative-forge/internal/schedule"
	"github.com/adamonsea/narrative-forge/internal/store"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

type fakeSettingsStore struct {
	rows map[string]*models.Setting
}

func (f *fakeSettingsStore) GetSetting(_ context.Context, key string) (*models.Setting, error) {
	if s, ok := f.rows[key]; ok {
		return s, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeSettingsStore) PutSetting(_ context.Context, key string, value dbtypes.JSONMap, updatedBy string) error {
	if f.rows == nil {
		f.rows = map[string]*models.Setting{}
	}
	f.rows[key] = &models.Setting{Key: key, Value: value, UpdatedBy: updatedBy}
	return nil
}

func TestAutomationFallsBackToDefaults(t *testing.T) {
	svc := NewSettingsService(&fakeSettingsStore{}, nil)

	view, err := svc.Automation(context.Background())
	if err != nil {
		t.Fatalf("Automation: %v", err)
	}
	def := schedule.Default()
	if view.FrequencyHours != def.FrequencyHours || view.Hour != def.Hour || view.Timezone != def.Timezone {
		t.Errorf("view = %+v, want defaults %+v", view.Settings, def)
	}
	if view.NextRun == nil {
		t.Error("enabled defaults must compute a next run")
	}
}

func TestSaveAutomationValidatesBeforePersisting(t *testing.T) {
	fs := &fakeSettingsStore{}
	svc := NewSettingsService(fs, nil)

	bad := schedule.Settings{Enabled: true, FrequencyHours: 0, Hour: 6, Timezone: "Europe/London"}
	if _, err := svc.SaveAutomation(context.Background(), bad, "ops"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if len(fs.rows) != 0 {
		t.Error("invalid settings must not be persisted")
	}

	good := schedule.Settings{Enabled: true, FrequencyHours: 12, Hour: 6, Timezone: "Europe/London", QualityThreshold: 0.6}
	view, err := svc.SaveAutomation(context.Background(), good, "ops")
	if err != nil {
		t.Fatalf("SaveAutomation: %v", err)
	}
	if fs.rows[AutomationKey] == nil {
		t.Fatal("settings row missing after save")
	}
	if fs.rows[AutomationKey].UpdatedBy != "ops" {
		t.Errorf("updated_by = %q", fs.rows[AutomationKey].UpdatedBy)
	}
	if view.NextRun == nil {
		t.Error("saved view missing next run")
	}
}

func TestAutomationNextRunRespectsStoredBlob(t *testing.T) {
	fs := &fakeSettingsStore{rows: map[string]*models.Setting{
		AutomationKey: {
			Key: AutomationKey,
			Value: dbtypes.JSONMap{
				"enabled":         true,
				"frequency_hours": float64(24),
				"hour":            float64(6),
				"timezone":        "Europe/London",
			},
		},
	}}
	svc := NewSettingsService(fs, nil)
	svc.now = func() time.Time {
		return time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC) // 13:00 London (BST)
	}

	view, err := svc.Automation(context.Background())
	if err != nil {
		t.Fatalf("Automation: %v", err)
	}
	if view.NextRun == nil {
		t.Fatal("no next run computed")
	}
	loc, _ := time.LoadLocation("Europe/London")
	got := view.NextRun.In(loc)
	if got.Hour() != 6 || got.Day() != 11 {
		t.Errorf("next run = %v, want 06:00 London on the 11th", got)
	}
}

func TestRawSettingRoundTrip(t *testing.T) {
	fs := &fakeSettingsStore{}
	svc := NewSettingsService(fs, nil)
	ctx := context.Background()

	if _, err := svc.Get(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty key Get err = %v, want ErrInvalidInput", err)
	}
	if err := svc.Put(ctx, "", dbtypes.JSONMap{}, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty key Put err = %v, want ErrInvalidInput", err)
	}

	if err := svc.Put(ctx, "drip", dbtypes.JSONMap{"per_day": 3}, "ops"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	set, err := svc.Get(ctx, "drip")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if set.Value["per_day"] != 3 {
		t.Errorf("value = %v", set.Value)
	}
}
