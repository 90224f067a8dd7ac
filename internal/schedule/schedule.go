// Package schedule holds the automation settings blob and the next-run
// arithmetic for it. The real scheduler lives upstream; the next-run value
// computed here is display-only.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	dbtypes "github.com/adamonsea/narrative-forge/internal/db"
)

// Settings is the automation blob stored under the "automation" settings key.
type Settings struct {
	Enabled          bool    `json:"enabled"`
	FrequencyHours   int     `json:"frequency_hours"`
	Hour             int     `json:"hour"`
	Timezone         string  `json:"timezone"`
	QualityThreshold float64 `json:"quality_threshold"`
}

// Default mirrors the values seeded for a fresh deployment.
func Default() Settings {
	return Settings{
		Enabled:          true,
		FrequencyHours:   24,
		Hour:             6,
		Timezone:         "Europe/London",
		QualityThreshold: 0.55,
	}
}

// FromValue decodes a stored blob, filling missing keys from Default so old
// rows keep working after new fields appear.
func FromValue(v dbtypes.JSONMap) Settings {
	s := Default()
	if v == nil {
		return s
	}
	if b, ok := v["enabled"].(bool); ok {
		s.Enabled = b
	}
	if n, ok := numValue(v["frequency_hours"]); ok {
		s.FrequencyHours = int(n)
	}
	if n, ok := numValue(v["hour"]); ok {
		s.Hour = int(n)
	}
	if tz, ok := v["timezone"].(string); ok && tz != "" {
		s.Timezone = tz
	}
	if n, ok := numValue(v["quality_threshold"]); ok {
		s.QualityThreshold = n
	}
	return s
}

// Value encodes the settings for the jsonb settings column.
func (s Settings) Value() dbtypes.JSONMap {
	return dbtypes.JSONMap{
		"enabled":           s.Enabled,
		"frequency_hours":   s.FrequencyHours,
		"hour":              s.Hour,
		"timezone":          s.Timezone,
		"quality_threshold": s.QualityThreshold,
	}
}

func (s Settings) Validate() error {
	if s.FrequencyHours <= 0 {
		return fmt.Errorf("frequency_hours must be positive, got %d", s.FrequencyHours)
	}
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("hour must be 0-23, got %d", s.Hour)
	}
	if s.QualityThreshold < 0 || s.QualityThreshold > 1 {
		return fmt.Errorf("quality_threshold must be 0-1, got %g", s.QualityThreshold)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", s.Timezone, err)
	}
	return nil
}

// CronSpec renders the blob as a standard five-field cron expression. Runs
// anchor at Hour; sub-daily frequencies repeat through the rest of the day,
// multi-day frequencies step whole days.
func (s Settings) CronSpec() string {
	freq := s.FrequencyHours
	if freq <= 0 {
		freq = 24
	}
	hour := s.Hour
	if hour < 0 || hour > 23 {
		hour = 0
	}
	switch {
	case freq < 24:
		return fmt.Sprintf("0 %d-23/%d * * *", hour, freq)
	case freq == 24:
		return fmt.Sprintf("0 %d * * *", hour)
	default:
		days := freq / 24
		if days < 1 {
			days = 1
		}
		return fmt.Sprintf("0 %d */%d * *", hour, days)
	}
}

// NextRun computes the next activation after now in the configured timezone.
// Disabled settings have no next run and return the zero time.
func (s Settings) NextRun(now time.Time) (time.Time, error) {
	if !s.Enabled {
		return time.Time{}, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("timezone %q: %w", s.Timezone, err)
	}
	sched, err := cron.ParseStandard(s.CronSpec())
	if err != nil {
		return time.Time{}, fmt.Errorf("cron spec %q: %w", s.CronSpec(), err)
	}
	return sched.Next(now.In(loc)), nil
}

func numValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
