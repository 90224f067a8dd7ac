package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adamonsea/narrative-forge/internal/store"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

// TicketStore is the slice of the store the triage board uses.
type TicketStore interface {
	ListTickets(ctx context.Context, f store.TicketFilter) ([]*models.ErrorTicket, error)
	CreateTicket(ctx context.Context, t *models.ErrorTicket) error
	UpdateTicketStatus(ctx context.Context, id string, status models.TicketStatus) error
	ResolveTicket(ctx context.Context, id, note string) error
	DeleteTicket(ctx context.Context, id string) error
	CountOpenTicketsBySeverity(ctx context.Context) (map[models.TicketSeverity]int, error)
}

// CriticalNotifier pushes an alert when a critical ticket lands.
type CriticalNotifier interface {
	CriticalTicket(t *models.ErrorTicket) error
}

// TicketService runs the error-ticket triage board.
type TicketService struct {
	store    TicketStore
	notifier CriticalNotifier
	logger   *slog.Logger
}

func NewTicketService(st TicketStore, notifier CriticalNotifier, logger *slog.Logger) *TicketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TicketService{store: st, notifier: notifier, logger: logger}
}

func (s *TicketService) Tickets(ctx context.Context, f store.TicketFilter) ([]*models.ErrorTicket, error) {
	return s.store.ListTickets(ctx, f)
}

// Create files a new ticket. Critical tickets additionally alert the ops
// chat; a failed alert never fails the ticket.
func (s *TicketService) Create(ctx context.Context, t *models.ErrorTicket) error {
	t.Summary = strings.TrimSpace(t.Summary)
	if t.Summary == "" {
		return invalidf("ticket summary required")
	}
	if t.TicketType == "" {
		t.TicketType = "incident"
	}
	if t.Severity == "" {
		t.Severity = models.SeverityLow
	}
	if !t.Severity.Valid() {
		return invalidf("unknown severity %q", t.Severity)
	}
	t.Status = models.TicketNew

	if err := s.store.CreateTicket(ctx, t); err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}

	if t.Severity == models.SeverityCritical && s.notifier != nil {
		if err := s.notifier.CriticalTicket(t); err != nil {
			s.logger.Warn("critical ticket alert failed", "ticket_id", t.ID, "error", err)
		}
	}
	return nil
}

// SetStatus moves a ticket across the board columns.
func (s *TicketService) SetStatus(ctx context.Context, id, raw string) error {
	status, err := models.ParseTicketStatus(raw)
	if err != nil {
		return invalidf("%v", err)
	}
	if err := s.store.UpdateTicketStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update ticket status: %w", err)
	}
	return nil
}

// Resolve archives a ticket with a closing note.
func (s *TicketService) Resolve(ctx context.Context, id, note string) error {
	if err := s.store.ResolveTicket(ctx, id, note); err != nil {
		return fmt.Errorf("resolve ticket: %w", err)
	}
	return nil
}

func (s *TicketService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTicket(ctx, id); err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	return nil
}

// OpenCounts feeds the severity badges in the board header.
func (s *TicketService) OpenCounts(ctx context.Context) (map[models.TicketSeverity]int, error) {
	return s.store.CountOpenTicketsBySeverity(ctx)
}
