package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adamonsea/narrative-forge/internal/content"
	"github.com/adamonsea/narrative-forge/internal/functions"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

// ScrapeStore is the slice of the store the scrape trigger uses.
type ScrapeStore interface {
	GetTopic(ctx context.Context, id string) (*models.Topic, error)
	SaveArticles(ctx context.Context, articles []*models.Article) error
}

// TopicScraper runs the hosted universal scraper for one topic.
type TopicScraper interface {
	ScrapeTopic(ctx context.Context, topicID, slug string) (*functions.ScrapeResult, error)
}

// ScrapeOutcome reports one manual scraper pass.
type ScrapeOutcome struct {
	Found   int    `json:"found"`
	Saved   int    `json:"saved"`
	Skipped int    `json:"skipped"`
	Message string `json:"message,omitempty"`
}

// ScrapeService triggers on-demand scrapes outside the remote schedule. The
// scraping itself happens in the hosted function; this side persists whatever
// came back.
type ScrapeService struct {
	store   ScrapeStore
	scraper TopicScraper
	logger  *slog.Logger
}

func NewScrapeService(st ScrapeStore, scraper TopicScraper, logger *slog.Logger) *ScrapeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScrapeService{store: st, scraper: scraper, logger: logger}
}

// Run scrapes one topic now and upserts the returned articles. Articles
// without a title or source URL are dropped and counted as skipped.
func (s *ScrapeService) Run(ctx context.Context, topicID string) (*ScrapeOutcome, error) {
	if s.scraper == nil {
		return nil, fmt.Errorf("topic scraper not configured")
	}

	t, err := s.store.GetTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, invalidf("topic %s is paused", t.Slug)
	}

	res, err := s.scraper.ScrapeTopic(ctx, t.ID, t.Slug)
	if err != nil {
		return nil, fmt.Errorf("scrape topic %s: %w", t.Slug, err)
	}
	if !res.Success {
		return nil, fmt.Errorf("scraper rejected topic %s: %s", t.Slug, res.Message)
	}

	articles := make([]*models.Article, 0, len(res.Articles))
	skipped := 0
	for _, sa := range res.Articles {
		if strings.TrimSpace(sa.Title) == "" || strings.TrimSpace(sa.URL) == "" {
			skipped++
			continue
		}
		wc := sa.WordCount
		if wc <= 0 {
			wc = content.WordCount(sa.Body)
		}
		articles = append(articles, &models.Article{
			TopicID:        t.ID,
			Title:          strings.TrimSpace(sa.Title),
			Body:           sa.Body,
			URL:            sa.URL,
			Author:         sa.Author,
			ImageURL:       sa.ImageURL,
			PublishedAt:    sa.PublishedAt,
			WordCount:      wc,
			RelevanceScore: sa.RelevanceScore,
			Status:         models.ArticleNew,
		})
	}

	if err := s.store.SaveArticles(ctx, articles); err != nil {
		return nil, fmt.Errorf("save scraped articles: %w", err)
	}

	out := &ScrapeOutcome{Found: len(res.Articles), Saved: len(articles), Skipped: skipped, Message: res.Message}
	s.logger.Info("topic scraped", "topic", t.Slug, "found", out.Found, "saved", out.Saved)
	return out, nil
}
