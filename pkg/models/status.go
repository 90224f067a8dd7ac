package models

import "fmt"

// Status fields are closed string types rather than free text so that a typo
// can never silently match nothing. Each type carries the full set of values
// the backend writes, a Valid check used before persisting, and a Parse
// helper for API input.

// ArticleStatus tracks a scraped article through review.
type ArticleStatus string

const (
	ArticleNew        ArticleStatus = "new"
	ArticleProcessing ArticleStatus = "processing"
	ArticleProcessed  ArticleStatus = "processed"
	ArticleDiscarded  ArticleStatus = "discarded"
	ArticleArchived   ArticleStatus = "archived"
)

func (s ArticleStatus) Valid() bool {
	switch s {
	case ArticleNew, ArticleProcessing, ArticleProcessed, ArticleDiscarded, ArticleArchived:
		return true
	}
	return false
}

// Terminal reports whether the article has left the review pipeline.
func (s ArticleStatus) Terminal() bool {
	return s == ArticleDiscarded || s == ArticleArchived
}

func ParseArticleStatus(raw string) (ArticleStatus, error) {
	s := ArticleStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown article status %q", raw)
	}
	return s, nil
}

// QueueStatus tracks a generation job.
type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueProcessing QueueStatus = "processing"
	QueueCompleted  QueueStatus = "completed"
	QueueFailed     QueueStatus = "failed"
)

func (s QueueStatus) Valid() bool {
	switch s {
	case QueuePending, QueueProcessing, QueueCompleted, QueueFailed:
		return true
	}
	return false
}

// Active reports whether the job still occupies the queue (pending or being
// worked by the remote processor).
func (s QueueStatus) Active() bool {
	return s == QueuePending || s == QueueProcessing
}

func ParseQueueStatus(raw string) (QueueStatus, error) {
	s := QueueStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown queue status %q", raw)
	}
	return s, nil
}

// StoryStatus tracks generated carousel content.
type StoryStatus string

const (
	StoryDraft      StoryStatus = "draft"
	StoryGenerating StoryStatus = "generating"
	StoryReady      StoryStatus = "ready"
	StoryPublished  StoryStatus = "published"
	StoryArchived   StoryStatus = "archived"
)

func (s StoryStatus) Valid() bool {
	switch s {
	case StoryDraft, StoryGenerating, StoryReady, StoryPublished, StoryArchived:
		return true
	}
	return false
}

func ParseStoryStatus(raw string) (StoryStatus, error) {
	s := StoryStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown story status %q", raw)
	}
	return s, nil
}

// ExportStatus tracks a carousel render job.
type ExportStatus string

const (
	ExportPending    ExportStatus = "pending"
	ExportGenerating ExportStatus = "generating"
	ExportCompleted  ExportStatus = "completed"
	ExportFailed     ExportStatus = "failed"
)

func (s ExportStatus) Valid() bool {
	switch s {
	case ExportPending, ExportGenerating, ExportCompleted, ExportFailed:
		return true
	}
	return false
}

// TicketStatus tracks operational incidents across the triage board.
type TicketStatus string

const (
	TicketNew      TicketStatus = "new"
	TicketCurrent  TicketStatus = "current"
	TicketTesting  TicketStatus = "testing"
	TicketBacklog  TicketStatus = "backlog"
	TicketArchived TicketStatus = "archived"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketNew, TicketCurrent, TicketTesting, TicketBacklog, TicketArchived:
		return true
	}
	return false
}

func ParseTicketStatus(raw string) (TicketStatus, error) {
	s := TicketStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown ticket status %q", raw)
	}
	return s, nil
}

// TicketSeverity orders incidents for triage and alerting.
type TicketSeverity string

const (
	SeverityLow      TicketSeverity = "low"
	SeverityMedium   TicketSeverity = "medium"
	SeverityHigh     TicketSeverity = "high"
	SeverityCritical TicketSeverity = "critical"
)

func (s TicketSeverity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

func ParseTicketSeverity(raw string) (TicketSeverity, error) {
	s := TicketSeverity(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown ticket severity %q", raw)
	}
	return s, nil
}

// SubscriberStatus covers newsletter sign-ups.
type SubscriberStatus string

const (
	SubscriberActive       SubscriberStatus = "active"
	SubscriberUnsubscribed SubscriberStatus = "unsubscribed"
)

func (s SubscriberStatus) Valid() bool {
	return s == SubscriberActive || s == SubscriberUnsubscribed
}

// EventStatus covers curated event listings.
type EventStatus string

const (
	EventActive  EventStatus = "active"
	EventHidden  EventStatus = "hidden"
	EventExpired EventStatus = "expired"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventActive, EventHidden, EventExpired:
		return true
	}
	return false
}

func ParseEventStatus(raw string) (EventStatus, error) {
	s := EventStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown event status %q", raw)
	}
	return s, nil
}
