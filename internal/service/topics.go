package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	dbtypes "github.com/adamonsea/narrative-forge/internal/db"
	"github.com/adamonsea/narrative-forge/internal/functions"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

// Topic list fields the keyword manager edits.
const (
	ListKeywords      = "keywords"
	ListLandmarks     = "landmarks"
	ListPostcodes     = "postcodes"
	ListOrganizations = "organizations"
	ListNegative      = "negative_keywords"
)

// TopicStore is the slice of the store the topic manager uses.
type TopicStore interface {
	ListTopics(ctx context.Context, activeOnly bool) ([]*models.Topic, error)
	GetTopic(ctx context.Context, id string) (*models.Topic, error)
	GetTopicBySlug(ctx context.Context, slug string) (*models.Topic, error)
	CreateTopic(ctx context.Context, t *models.Topic) error
	UpdateTopicList(ctx context.Context, id, field string, values dbtypes.StringSlice) error
	UpdateTopicDrip(ctx context.Context, id string, d models.DripSettings) error
	SetTopicActive(ctx context.Context, id string, active bool) error
}

// Rescorer recomputes article relevance after a topic's matching terms change.
type Rescorer interface {
	RescoreTopic(ctx context.Context, topicID string) (*functions.Result, error)
}

// ListObserver is called after a topic list change has been persisted.
type ListObserver func(topicID, field string, values []string)

// TopicService manages topics and their matching-term lists. Every list edit
// persists immediately; there is no batch save. Interested components register
// observers explicitly instead of listening on a broadcast bus.
type TopicService struct {
	store    TopicStore
	rescorer Rescorer
	logger   *slog.Logger

	mu        sync.Mutex
	observers []ListObserver
}

func NewTopicService(st TopicStore, rescorer Rescorer, logger *slog.Logger) *TopicService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopicService{store: st, rescorer: rescorer, logger: logger}
}

// OnListChange registers an observer for persisted list edits.
func (s *TopicService) OnListChange(fn ListObserver) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *TopicService) Topics(ctx context.Context, activeOnly bool) ([]*models.Topic, error) {
	return s.store.ListTopics(ctx, activeOnly)
}

func (s *TopicService) Topic(ctx context.Context, id string) (*models.Topic, error) {
	return s.store.GetTopic(ctx, id)
}

func (s *TopicService) TopicBySlug(ctx context.Context, slug string) (*models.Topic, error) {
	return s.store.GetTopicBySlug(ctx, slug)
}

// CreateTopic validates and saves a new topic feed.
func (s *TopicService) CreateTopic(ctx context.Context, t *models.Topic) error {
	t.Name = strings.TrimSpace(t.Name)
	t.Slug = strings.TrimSpace(strings.ToLower(t.Slug))
	if t.Name == "" {
		return invalidf("topic name required")
	}
	if t.Slug == "" {
		return invalidf("topic slug required")
	}
	if strings.ContainsAny(t.Slug, " /") {
		return invalidf("slug %q may not contain spaces or slashes", t.Slug)
	}
	if t.Drip == (models.DripSettings{}) {
		t.Drip = models.DefaultDripSettings()
	}
	if err := t.Drip.Validate(); err != nil {
		return invalidf("%v", err)
	}
	if err := s.store.CreateTopic(ctx, t); err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}

// SetDrip replaces a topic's release-window settings. Downstream release
// pacing reads the persisted blob; this side validates and stores it.
func (s *TopicService) SetDrip(ctx context.Context, id string, d models.DripSettings) error {
	if err := d.Validate(); err != nil {
		return invalidf("%v", err)
	}
	if err := s.store.UpdateTopicDrip(ctx, id, d); err != nil {
		return fmt.Errorf("save drip settings: %w", err)
	}
	return nil
}

// SetActive pauses or resumes a topic feed.
func (s *TopicService) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.store.SetTopicActive(ctx, id, active); err != nil {
		return fmt.Errorf("set topic active: %w", err)
	}
	return nil
}

// AddListEntry appends one value to a topic's list field and persists the new
// list. The returned slice is always what the board should show: the grown
// list on success, the untouched pre-attempt list when the write fails.
// Adding a value that is already present is a no-op.
func (s *TopicService) AddListEntry(ctx context.Context, topicID, field, value string) ([]string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, invalidf("empty %s value", field)
	}

	current, err := s.currentList(ctx, topicID, field)
	if err != nil {
		return nil, err
	}
	for _, v := range current {
		if strings.EqualFold(v, value) {
			return current, nil
		}
	}

	next := append(append([]string(nil), current...), value)
	if err := s.store.UpdateTopicList(ctx, topicID, field, next); err != nil {
		return current, fmt.Errorf("save %s: %w", field, err)
	}

	s.afterListChange(ctx, topicID, field, next)
	return next, nil
}

// RemoveListEntry deletes one value from a topic's list field, matching
// case-insensitively. Same return contract as AddListEntry.
func (s *TopicService) RemoveListEntry(ctx context.Context, topicID, field, value string) ([]string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, invalidf("empty %s value", field)
	}

	current, err := s.currentList(ctx, topicID, field)
	if err != nil {
		return nil, err
	}

	next := make([]string, 0, len(current))
	for _, v := range current {
		if !strings.EqualFold(v, value) {
			next = append(next, v)
		}
	}
	if len(next) == len(current) {
		return current, nil
	}

	if err := s.store.UpdateTopicList(ctx, topicID, field, next); err != nil {
		return current, fmt.Errorf("save %s: %w", field, err)
	}

	s.afterListChange(ctx, topicID, field, next)
	return next, nil
}

func (s *TopicService) currentList(ctx context.Context, topicID, field string) ([]string, error) {
	t, err := s.store.GetTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	var list dbtypes.StringSlice
	switch field {
	case ListKeywords:
		list = t.Keywords
	case ListLandmarks:
		list = t.LandmarkNames
	case ListPostcodes:
		list = t.Postcodes
	case ListOrganizations:
		list = t.Organizations
	case ListNegative:
		list = t.NegativeFilters
	default:
		return nil, invalidf("unknown list field %q", field)
	}
	return append([]string(nil), list...), nil
}

// afterListChange runs the post-persist work: observers first, then the
// relevance rescore. Rescore failures are logged, never surfaced; the list
// write already succeeded.
func (s *TopicService) afterListChange(ctx context.Context, topicID, field string, values []string) {
	s.mu.Lock()
	observers := append([]ListObserver(nil), s.observers...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(topicID, field, values)
	}

	if s.rescorer == nil {
		return
	}
	if _, err := s.rescorer.RescoreTopic(ctx, topicID); err != nil {
		s.logger.Warn("topic rescore failed", "topic_id", topicID, "field", field, "error", err)
	}
}
