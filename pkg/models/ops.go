package models

import (
	"time"

	dbtypes "github.com/adamonsea/narrative-forge/internal/db"
)

// ErrorTicket is one operational incident surfaced on the triage board.
type ErrorTicket struct {
	ID           string          `db:"id" json:"id"`
	TicketType   string          `db:"ticket_type" json:"ticket_type"`
	SourceInfo   string          `db:"source_info" json:"source_info,omitempty"`
	Summary      string          `db:"summary" json:"summary"`
	Details      dbtypes.JSONMap `db:"details" json:"details,omitempty"`
	Severity     TicketSeverity  `db:"severity" json:"severity"`
	Status       TicketStatus    `db:"status" json:"status"`
	TopicID      string          `db:"topic_id" json:"topic_id,omitempty"`
	ResolvedAt   *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedNote string          `db:"resolved_note" json:"resolved_note,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// EmailSubscriber is a newsletter sign-up scoped to one topic feed.
type EmailSubscriber struct {
	ID             string           `db:"id" json:"id"`
	TopicID        string           `db:"topic_id" json:"topic_id"`
	Email          string           `db:"email" json:"email"`
	Name           string           `db:"name" json:"name,omitempty"`
	Status         SubscriberStatus `db:"status" json:"status"`
	VerifiedAt     *time.Time       `db:"verified_at" json:"verified_at,omitempty"`
	UnsubscribedAt *time.Time       `db:"unsubscribed_at" json:"unsubscribed_at,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

// PushSubscriber is a browser push endpoint registered against a topic feed.
// Endpoint and keys pass through to the push relay untouched.
type PushSubscriber struct {
	ID        string          `db:"id" json:"id"`
	TopicID   string          `db:"topic_id" json:"topic_id"`
	Endpoint  string          `db:"endpoint" json:"endpoint"`
	Keys      dbtypes.JSONMap `db:"keys" json:"keys"`
	UserAgent string          `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Event is a scraped or hand-entered local event attached to a topic feed.
type Event struct {
	ID          string      `db:"id" json:"id"`
	TopicID     string      `db:"topic_id" json:"topic_id"`
	Title       string      `db:"title" json:"title"`
	Description string      `db:"description" json:"description,omitempty"`
	Location    string      `db:"location" json:"location,omitempty"`
	EventType   string      `db:"event_type" json:"event_type,omitempty"`
	SourceURL   string      `db:"source_url" json:"source_url,omitempty"`
	StartsAt    time.Time   `db:"starts_at" json:"starts_at"`
	EndsAt      *time.Time  `db:"ends_at" json:"ends_at,omitempty"`
	Status      EventStatus `db:"status" json:"status"`
	Rank        int         `db:"rank" json:"rank"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// ApiUsage is one metered call against an upstream provider (LLM, image
// generation, scraping). Cost tracking sums these per provider and per day.
type ApiUsage struct {
	ID         string    `db:"id" json:"id"`
	Provider   string    `db:"provider" json:"provider"`
	Operation  string    `db:"operation" json:"operation"`
	TopicID    string    `db:"topic_id" json:"topic_id,omitempty"`
	TokensUsed int64     `db:"tokens_used" json:"tokens_used"`
	CostUSD    float64   `db:"cost_usd" json:"cost_usd"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// CostSummary aggregates spend for the costs endpoint.
type CostSummary struct {
	Provider string  `db:"provider" json:"provider"`
	Calls    int64   `db:"calls" json:"calls"`
	Tokens   int64   `db:"tokens" json:"tokens"`
	CostUSD  float64 `db:"cost_usd" json:"cost_usd"`
}

// DailyCost is one calendar day of spend for the cost dashboard chart.
type DailyCost struct {
	Day     time.Time `db:"day" json:"day"`
	Calls   int64     `db:"calls" json:"calls"`
	CostUSD float64   `db:"cost_usd" json:"cost_usd"`
}

// Setting is one row of the key/value settings table. Values are jsonb so a
// setting can hold a scalar or a structured blob.
type Setting struct {
	Key       string          `db:"key" json:"key"`
	Value     dbtypes.JSONMap `db:"value" json:"value"`
	UpdatedBy string          `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}
