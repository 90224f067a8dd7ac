package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/adamonsea/narrative-forge/internal/exports"
	"github.com/adamonsea/narrative-forge/internal/store"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

// SubscriberStore is the slice of the store the audience panel uses.
type SubscriberStore interface {
	CreateEmailSubscriber(ctx context.Context, s *models.EmailSubscriber) error
	ListEmailSubscribers(ctx context.Context, topicID string, limit int) ([]*models.EmailSubscriber, error)
	AllEmailSubscribers(ctx context.Context, topicID string) ([]*models.EmailSubscriber, error)
	UnsubscribeEmail(ctx context.Context, id string) error
	DeleteEmailSubscriber(ctx context.Context, id string) error
	ListPushSubscribers(ctx context.Context, topicID string, limit int) ([]*models.PushSubscriber, error)
	DeletePushSubscriber(ctx context.Context, id string) error
	CountSubscribers(ctx context.Context, topicID string) (*store.SubscriberCounts, error)
}

// SubscriberService manages a topic's email and push audience.
type SubscriberService struct {
	store  SubscriberStore
	logger *slog.Logger
}

func NewSubscriberService(st SubscriberStore, logger *slog.Logger) *SubscriberService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriberService{store: st, logger: logger}
}

// Subscribe signs an address up for a topic feed. Resubscribing an address
// that unsubscribed earlier reactivates it.
func (s *SubscriberService) Subscribe(ctx context.Context, topicID, email, name string) (*models.EmailSubscriber, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, invalidf("invalid email address")
	}
	sub := &models.EmailSubscriber{
		TopicID: topicID,
		Email:   email,
		Name:    strings.TrimSpace(name),
		Status:  models.SubscriberActive,
	}
	if err := s.store.CreateEmailSubscriber(ctx, sub); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", email, err)
	}
	return sub, nil
}

func (s *SubscriberService) Emails(ctx context.Context, topicID string, limit int) ([]*models.EmailSubscriber, error) {
	return s.store.ListEmailSubscribers(ctx, topicID, limit)
}

func (s *SubscriberService) Push(ctx context.Context, topicID string, limit int) ([]*models.PushSubscriber, error) {
	return s.store.ListPushSubscribers(ctx, topicID, limit)
}

func (s *SubscriberService) Unsubscribe(ctx context.Context, id string) error {
	if err := s.store.UnsubscribeEmail(ctx, id); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

func (s *SubscriberService) DeleteEmail(ctx context.Context, id string) error {
	if err := s.store.DeleteEmailSubscriber(ctx, id); err != nil {
		return fmt.Errorf("delete email subscriber: %w", err)
	}
	return nil
}

func (s *SubscriberService) DeletePush(ctx context.Context, id string) error {
	if err := s.store.DeletePushSubscriber(ctx, id); err != nil {
		return fmt.Errorf("delete push subscriber: %w", err)
	}
	return nil
}

func (s *SubscriberService) Counts(ctx context.Context, topicID string) (*store.SubscriberCounts, error) {
	return s.store.CountSubscribers(ctx, topicID)
}

// ExportCSV streams every email subscriber of a topic as CSV and returns the
// row count (header excluded).
func (s *SubscriberService) ExportCSV(ctx context.Context, topicID string, w io.Writer) (int, error) {
	subs, err := s.store.AllEmailSubscribers(ctx, topicID)
	if err != nil {
		return 0, fmt.Errorf("load subscribers: %w", err)
	}

	rows := make([]models.EmailSubscriber, len(subs))
	for i, sub := range subs {
		rows[i] = *sub
	}
	if err := exports.WriteSubscribersCSV(w, rows); err != nil {
		return 0, fmt.Errorf("write subscriber csv: %w", err)
	}
	return len(rows), nil
}
