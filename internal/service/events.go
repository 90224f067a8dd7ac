package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adamonsea/narrative-forge/internal/functions"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

// EventStore is the slice of the store the events panel uses.
type EventStore interface {
	ListEvents(ctx context.Context, topicID string, includeHidden bool, limit int) ([]*models.Event, error)
	CreateEvent(ctx context.Context, e *models.Event) error
	SaveEvents(ctx context.Context, events []*models.Event) (int64, error)
	UpdateEvent(ctx context.Context, e *models.Event) error
	UpdateEventStatus(ctx context.Context, id string, status models.EventStatus) error
	PromoteEvent(ctx context.Context, id string, rank int) error
	DeleteEvent(ctx context.Context, id string) error
}

// EventScraper finds upcoming events for a topic's region.
type EventScraper interface {
	ScrapeEvents(ctx context.Context, topicID, region string) (*functions.EventsResult, error)
}

// RefreshOutcome reports one scraper pass over a topic's events. Found counts
// everything the scraper returned; rows without a title or start time are
// dropped and counted as skipped, same as the article scrape outcome.
type RefreshOutcome struct {
	Found    int `json:"found"`
	Inserted int `json:"inserted"`
	Deduped  int `json:"deduped"`
	Skipped  int `json:"skipped"`
}

// EventService curates the local-events rail on a topic feed.
type EventService struct {
	store   EventStore
	scraper EventScraper
	logger  *slog.Logger
}

func NewEventService(st EventStore, scraper EventScraper, logger *slog.Logger) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{store: st, scraper: scraper, logger: logger}
}

func (s *EventService) Events(ctx context.Context, topicID string, includeHidden bool, limit int) ([]*models.Event, error) {
	return s.store.ListEvents(ctx, topicID, includeHidden, limit)
}

// Create adds a hand-entered event.
func (s *EventService) Create(ctx context.Context, e *models.Event) error {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return invalidf("event title required")
	}
	if e.TopicID == "" {
		return invalidf("event topic required")
	}
	if e.StartsAt.IsZero() {
		return invalidf("event start time required")
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update rewrites a curated event's details.
func (s *EventService) Update(ctx context.Context, e *models.Event) error {
	if e.ID == "" {
		return invalidf("event id required")
	}
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return invalidf("event title required")
	}
	if e.StartsAt.IsZero() {
		return invalidf("event start time required")
	}
	if err := s.store.UpdateEvent(ctx, e); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// Hide pulls an event from the public rail without deleting it.
func (s *EventService) Hide(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, models.EventHidden)
}

// Unhide puts a hidden event back on the rail.
func (s *EventService) Unhide(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, models.EventActive)
}

func (s *EventService) setStatus(ctx context.Context, id string, status models.EventStatus) error {
	if err := s.store.UpdateEventStatus(ctx, id, status); err != nil {
		return fmt.Errorf("set event %s: %w", status, err)
	}
	return nil
}

// Promote pins an event above unranked ones.
func (s *EventService) Promote(ctx context.Context, id string, rank int) error {
	if rank < 0 {
		return invalidf("rank must not be negative")
	}
	if err := s.store.PromoteEvent(ctx, id, rank); err != nil {
		return fmt.Errorf("promote event: %w", err)
	}
	return nil
}

func (s *EventService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// Refresh runs the events scraper for one topic and stores what came back.
// Events the topic already has are skipped and counted as deduped.
func (s *EventService) Refresh(ctx context.Context, topicID, region string) (*RefreshOutcome, error) {
	if s.scraper == nil {
		return nil, fmt.Errorf("events scraper not configured")
	}

	res, err := s.scraper.ScrapeEvents(ctx, topicID, region)
	if err != nil {
		return nil, fmt.Errorf("scrape events: %w", err)
	}
	if !res.Success {
		return nil, fmt.Errorf("events scraper rejected topic: %s", res.Message)
	}

	incoming := make([]*models.Event, 0, len(res.Events))
	skipped := 0
	for _, se := range res.Events {
		if strings.TrimSpace(se.Title) == "" || se.StartsAt.IsZero() {
			skipped++
			continue
		}
		incoming = append(incoming, &models.Event{
			TopicID:     topicID,
			Title:       strings.TrimSpace(se.Title),
			Description: se.Description,
			Location:    se.Location,
			EventType:   se.EventType,
			SourceURL:   se.SourceURL,
			StartsAt:    se.StartsAt,
			EndsAt:      se.EndsAt,
			Status:      models.EventActive,
		})
	}

	inserted, err := s.store.SaveEvents(ctx, incoming)
	if err != nil {
		return nil, fmt.Errorf("save events: %w", err)
	}

	out := &RefreshOutcome{
		Found:    len(res.Events),
		Inserted: int(inserted),
		Deduped:  len(incoming) - int(inserted),
		Skipped:  skipped,
	}
	s.logger.Info("events refreshed", "topic_id", topicID, "found", out.Found, "inserted", out.Inserted)
	return out, nil
}
