package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adamonsea/narrative-forge/internal/functions"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

type fakeEventStore struct {
	created   []*models.Event
	saved     []*models.Event
	savedDupe int64
}

func (f *fakeEventStore) ListEvents(_ context.Context, _ string, _ bool, _ int) ([]*models.Event, error) {
	return nil, nil
}

func (f *fakeEventStore) CreateEvent(_ context.Context, e *models.Event) error {
	f.created = append(f.created, e)
	return nil
}

func (f *fakeEventStore) SaveEvents(_ context.Context, events []*models.Event) (int64, error) {
	f.saved = events
	return int64(len(events)) - f.savedDupe, nil
}

func (f *fakeEventStore) UpdateEvent(_ context.Context, _ *models.Event) error { return nil }

func (f *fakeEventStore) UpdateEventStatus(_ context.Context, _ string, _ models.EventStatus) error {
	return nil
}

func (f *fakeEventStore) PromoteEvent(_ context.Context, _ string, _ int) error { return nil }
func (f *fakeEventStore) DeleteEvent(_ context.Context, _ string) error         { return nil }

type fakeEventScraper struct {
	result *functions.EventsResult
}

func (s *fakeEventScraper) ScrapeEvents(_ context.Context, _, _ string) (*functions.EventsResult, error) {
	return s.result, nil
}

// Four scraped rows: two valid, one blank title, one without a start time.
// The store reports one of the two valid rows as a duplicate.
func TestRefreshDropsInvalidAndCountsDedupes(t *testing.T) {
	start := time.Date(2026, 9, 4, 19, 30, 0, 0, time.UTC)
	fs := &fakeEventStore{savedDupe: 1}
	scraper := &fakeEventScraper{result: &functions.EventsResult{
		Success: true,
		Events: []functions.ScrapedEvent{
			{Title: "Pier concert", StartsAt: start},
			{Title: "  ", StartsAt: start},
			{Title: "No start time"},
			{Title: "Comedy night", StartsAt: start.Add(24 * time.Hour)},
		},
	}}
	svc := NewEventService(fs, scraper, nil)

	out, err := svc.Refresh(context.Background(), "t1", "east-sussex")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if out.Found != 4 || out.Inserted != 1 || out.Deduped != 1 || out.Skipped != 2 {
		t.Errorf("outcome = %+v, want found 4, inserted 1, deduped 1, skipped 2", out)
	}
	if len(fs.saved) != 2 {
		t.Fatalf("saved %d events, want 2 valid ones", len(fs.saved))
	}
	for _, e := range fs.saved {
		if e.TopicID != "t1" || e.Status != models.EventActive {
			t.Errorf("saved event misattributed: %+v", e)
		}
	}
}

func TestRefreshSurfacesScraperRejection(t *testing.T) {
	scraper := &fakeEventScraper{result: &functions.EventsResult{Success: false, Message: "region unsupported"}}
	svc := NewEventService(&fakeEventStore{}, scraper, nil)

	if _, err := svc.Refresh(context.Background(), "t1", "mars"); err == nil {
		t.Fatal("expected the rejection to surface")
	}
}

func TestCreateEventValidation(t *testing.T) {
	svc := NewEventService(&fakeEventStore{}, nil, nil)
	start := time.Date(2026, 9, 4, 19, 30, 0, 0, time.UTC)

	cases := []models.Event{
		{TopicID: "t1", StartsAt: start},               // no title
		{Title: "x", StartsAt: start},                  // no topic
		{Title: "x", TopicID: "t1"},                    // no start
	}
	for i, e := range cases {
		ev := e
		if err := svc.Create(context.Background(), &ev); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("case %d err = %v, want ErrInvalidInput", i, err)
		}
	}

	ok := models.Event{Title: " Fireworks ", TopicID: "t1", StartsAt: start}
	if err := svc.Create(context.Background(), &ok); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ok.Title != "Fireworks" {
		t.Errorf("title not trimmed: %q", ok.Title)
	}

	if err := svc.Promote(context.Background(), "e1", -1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("negative rank err = %v, want ErrInvalidInput", err)
	}

	noID := models.Event{Title: "x", StartsAt: start}
	if err := svc.Update(context.Background(), &noID); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("update without id err = %v, want ErrInvalidInput", err)
	}
}
