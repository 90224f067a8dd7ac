package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adamonsea/narrative-forge/internal/service"
	"github.com/adamonsea/narrative-forge/internal/store"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(svcs Services, db Pinger, health HealthChecker) *gin.Engine {
	r := gin.New()
	RegisterRoutes(r, NewHandler(svcs, db, health))
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type pingStub struct{ err error }

func (p pingStub) PingContext(context.Context) error { return p.err }

type healthStub struct{ err error }

func (h healthStub) HealthCheck(context.Context) error { return h.err }

// pipelineStoreStub overrides only the methods a given test exercises; the
// embedded nil interface panics on anything else, which is the point.
type pipelineStoreStub struct {
	service.PipelineStore

	article    *models.Article
	articleErr error
	enqueueErr error
}

func (s *pipelineStoreStub) GetArticle(_ context.Context, _ string) (*models.Article, error) {
	if s.articleErr != nil {
		return nil, s.articleErr
	}
	return s.article, nil
}

func (s *pipelineStoreStub) EnqueueArticle(_ context.Context, item *models.QueueItem) error {
	if s.enqueueErr != nil {
		return s.enqueueErr
	}
	item.ID = "q1"
	return nil
}

type ticketStoreStub struct {
	filter  store.TicketFilter
	created []*models.ErrorTicket
}

func (s *ticketStoreStub) ListTickets(_ context.Context, f store.TicketFilter) ([]*models.ErrorTicket, error) {
	s.filter = f
	return []*models.ErrorTicket{
		{ID: "tk1", Summary: "scraper timeout"},
		{ID: "tk2", Summary: "render failed"},
	}, nil
}

func (s *ticketStoreStub) CreateTicket(_ context.Context, t *models.ErrorTicket) error {
	t.ID = "tk3"
	s.created = append(s.created, t)
	return nil
}

func (s *ticketStoreStub) UpdateTicketStatus(_ context.Context, _ string, _ models.TicketStatus) error {
	return nil
}

func (s *ticketStoreStub) ResolveTicket(_ context.Context, _, _ string) error { return nil }

func (s *ticketStoreStub) DeleteTicket(_ context.Context, _ string) error {
	return store.ErrNotFound
}

func (s *ticketStoreStub) CountOpenTicketsBySeverity(_ context.Context) (map[models.TicketSeverity]int, error) {
	return map[models.TicketSeverity]int{models.SeverityHigh: 1}, nil
}

type subscriberStoreStub struct {
	service.SubscriberStore

	subs []*models.EmailSubscriber
}

func (s *subscriberStoreStub) AllEmailSubscribers(_ context.Context, _ string) ([]*models.EmailSubscriber, error) {
	return s.subs, nil
}

func TestHealthz(t *testing.T) {
	t.Run("database down", func(t *testing.T) {
		r := newTestRouter(Services{}, pingStub{err: errors.New("refused")}, nil)
		w := do(t, r, http.MethodGet, "/healthz", "")
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", w.Code)
		}
	})

	t.Run("functions degraded", func(t *testing.T) {
		r := newTestRouter(Services{}, pingStub{}, healthStub{err: errors.New("cold")})
		w := do(t, r, http.MethodGet, "/healthz", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var body struct {
			Status    string `json:"status"`
			Functions bool   `json:"functions"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Status != "ok" || body.Functions {
			t.Errorf("body = %+v, want ok with functions=false", body)
		}
	})
}

func TestApproveArticleStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		stub *pipelineStoreStub
		want int
	}{
		{
			name: "unknown article",
			stub: &pipelineStoreStub{articleErr: store.ErrNotFound},
			want: http.StatusNotFound,
		},
		{
			name: "cross-topic article",
			stub: &pipelineStoreStub{article: &models.Article{ID: "a1", TopicID: "other"}},
			want: http.StatusNotFound,
		},
		{
			name: "already approved",
			stub: &pipelineStoreStub{
				article: &models.Article{ID: "a1", TopicID: "t1", Title: "Harbour dredging", Status: models.ArticleProcessing},
			},
			want: http.StatusBadRequest,
		},
		{
			name: "already queued",
			stub: &pipelineStoreStub{
				article:    &models.Article{ID: "a1", TopicID: "t1", Title: "Harbour dredging", Status: models.ArticleNew},
				enqueueErr: store.ErrAlreadyQueued,
			},
			want: http.StatusConflict,
		},
		{
			name: "queued",
			stub: &pipelineStoreStub{
				article: &models.Article{ID: "a1", TopicID: "t1", Title: "Harbour dredging", Status: models.ArticleNew},
			},
			want: http.StatusCreated,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svcs := Services{Pipeline: service.NewPipelineService(tc.stub, nil, nil, nil)}
			r := newTestRouter(svcs, nil, nil)

			w := do(t, r, http.MethodPost, "/v1/topics/t1/articles/a1/approve", "")
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.want, w.Body.String())
			}
			if tc.want >= 400 && !strings.Contains(w.Body.String(), "error") {
				t.Errorf("failure body missing error field: %s", w.Body.String())
			}
		})
	}
}

func TestListTicketsEnvelope(t *testing.T) {
	stub := &ticketStoreStub{}
	svcs := Services{Tickets: service.NewTicketService(stub, nil, nil)}
	r := newTestRouter(svcs, nil, nil)

	w := do(t, r, http.MethodGet, "/v1/tickets?status=new&limit=25", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}

	var body struct {
		Meta struct {
			Count int `json:"count"`
		} `json:"meta"`
		Data []models.ErrorTicket `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Meta.Count != 2 || len(body.Data) != 2 {
		t.Errorf("envelope = %+v, want meta.count 2 with 2 rows", body)
	}
	if stub.filter.Status != models.TicketNew || stub.filter.Limit != 25 {
		t.Errorf("filter = %+v, want status new, limit 25", stub.filter)
	}
}

func TestCreateTicketRejectsBlankSummary(t *testing.T) {
	svcs := Services{Tickets: service.NewTicketService(&ticketStoreStub{}, nil, nil)}
	r := newTestRouter(svcs, nil, nil)

	w := do(t, r, http.MethodPost, "/v1/tickets", `{"summary": "   "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
	}
}

func TestDeleteTicketMapsNotFound(t *testing.T) {
	svcs := Services{Tickets: service.NewTicketService(&ticketStoreStub{}, nil, nil)}
	r := newTestRouter(svcs, nil, nil)

	w := do(t, r, http.MethodDelete, "/v1/tickets/tk-gone", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestExportSubscribersCSV(t *testing.T) {
	stub := &subscriberStoreStub{subs: []*models.EmailSubscriber{
		{TopicID: "t1", Email: "a@example.com", Status: models.SubscriberActive, CreatedAt: time.Now()},
		{TopicID: "t1", Email: "b@example.com", Status: models.SubscriberActive, CreatedAt: time.Now()},
	}}
	svcs := Services{Subscribers: service.NewSubscriberService(stub, nil)}
	r := newTestRouter(svcs, nil, nil)

	w := do(t, r, http.MethodGet, "/v1/topics/t1/subscribers/export.csv", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Row-Count"); got != "2" {
		t.Errorf("X-Row-Count = %q, want 2", got)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 3 {
		t.Errorf("csv has %d lines, want header + 2 rows", len(lines))
	}
}

func TestParseLimit(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 50}, {"abc", 50}, {"0", 50}, {"-3", 50}, {"25", 25}, {"200", 200}, {"900", 200},
	}
	for _, tc := range cases {
		if got := parseLimit(tc.in); got != tc.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
