package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	dbtypes "github.com/adamonsea/narrative-forge/internal/db"
)

// Topic is one tenant feed: a keyword-driven slice of news with its own
// landing page, scrape schedule, and publication settings.
type Topic struct {
	ID                string              `db:"id" json:"id"`
	Name              string              `db:"name" json:"name"`
	Slug              string              `db:"slug" json:"slug"`
	Description       string              `db:"description" json:"description,omitempty"`
	TopicType         string              `db:"topic_type" json:"topic_type"`
	Region            string              `db:"region" json:"region,omitempty"`
	Keywords          dbtypes.StringSlice `db:"keywords" json:"keywords"`
	LandmarkNames     dbtypes.StringSlice `db:"landmarks" json:"landmarks,omitempty"`
	Postcodes         dbtypes.StringSlice `db:"postcodes" json:"postcodes,omitempty"`
	Organizations     dbtypes.StringSlice `db:"organizations" json:"organizations,omitempty"`
	NegativeFilters   dbtypes.StringSlice `db:"negative_keywords" json:"negative_keywords,omitempty"`
	IsActive          bool                `db:"is_active" json:"is_active"`
	IsPublic          bool                `db:"is_public" json:"is_public"`
	AutoSimplify      bool                `db:"auto_simplify_enabled" json:"auto_simplify_enabled"`
	Tone              string              `db:"default_tone" json:"default_tone"`
	AudienceExpertise string              `db:"audience_expertise" json:"audience_expertise"`
	Drip              DripSettings        `db:"drip" json:"drip"`
	CreatedBy         string              `db:"created_by" json:"created_by,omitempty"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
}

// HasKeyword reports whether kw is already present, case-insensitively.
// The keyword manager uses this to reject duplicates before persisting.
func (t *Topic) HasKeyword(kw string) bool {
	kw = strings.TrimSpace(strings.ToLower(kw))
	for _, existing := range t.Keywords {
		if strings.ToLower(existing) == kw {
			return true
		}
	}
	return false
}

// DripSettings controls how many ready stories are released to a public feed
// per day, and inside which local-time window.
type DripSettings struct {
	Enabled     bool `json:"enabled"`
	PerDay      int  `json:"per_day"`
	WindowStart int  `json:"window_start_hour"`
	WindowEnd   int  `json:"window_end_hour"`
}

// DefaultDripSettings releases three stories per day between 07:00 and 21:00.
func DefaultDripSettings() DripSettings {
	return DripSettings{Enabled: true, PerDay: 3, WindowStart: 7, WindowEnd: 21}
}

func (d DripSettings) Validate() error {
	if d.PerDay < 0 {
		return fmt.Errorf("per_day must not be negative, got %d", d.PerDay)
	}
	if d.Enabled && d.PerDay == 0 {
		return fmt.Errorf("per_day must be positive when drip is enabled")
	}
	if d.WindowStart < 0 || d.WindowStart > 23 {
		return fmt.Errorf("window_start_hour must be 0-23, got %d", d.WindowStart)
	}
	if d.WindowEnd < 0 || d.WindowEnd > 23 {
		return fmt.Errorf("window_end_hour must be 0-23, got %d", d.WindowEnd)
	}
	return nil
}

// Scan implements sql.Scanner for the jsonb drip column. An empty object
// (fresh row) falls back to the defaults.
func (d *DripSettings) Scan(src interface{}) error {
	if d == nil {
		return fmt.Errorf("models: Scan on nil *DripSettings")
	}
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = DefaultDripSettings()
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("models: cannot scan type %T into DripSettings", src)
	}
	if string(raw) == "{}" {
		*d = DefaultDripSettings()
		return nil
	}
	return json.Unmarshal(raw, d)
}

// Value implements driver.Valuer
func (d DripSettings) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// InWindow reports whether now falls inside the release window.
// A zero-width window (start == end) never releases.
func (d DripSettings) InWindow(now time.Time) bool {
	h := now.Hour()
	if d.WindowStart == d.WindowEnd {
		return false
	}
	if d.WindowStart < d.WindowEnd {
		return h >= d.WindowStart && h < d.WindowEnd
	}
	// Window wraps midnight.
	return h >= d.WindowStart || h < d.WindowEnd
}
