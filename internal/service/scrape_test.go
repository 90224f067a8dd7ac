package service

import (
	"context"
	"errors"
	"testing"

	"github.com/adamonsea/narrative-forge/internal/functions"
	"github.com/adamonsea/narrative-forge/internal/store"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

type fakeScrapeStore struct {
	topic *models.Topic
	saved []*models.Article
}

func (f *fakeScrapeStore) GetTopic(_ context.Context, id string) (*models.Topic, error) {
	if f.topic == nil || f.topic.ID != id {
		return nil, store.ErrNotFound
	}
	return f.topic, nil
}

func (f *fakeScrapeStore) SaveArticles(_ context.Context, articles []*models.Article) error {
	f.saved = articles
	return nil
}

type fakeTopicScraper struct {
	result *functions.ScrapeResult
	err    error

	topicID string
	slug    string
}

func (s *fakeTopicScraper) ScrapeTopic(_ context.Context, topicID, slug string) (*functions.ScrapeResult, error) {
	s.topicID, s.slug = topicID, slug
	return s.result, s.err
}

func TestScrapeRunSavesValidArticles(t *testing.T) {
	fs := &fakeScrapeStore{topic: &models.Topic{ID: "t1", Slug: "seaside", IsActive: true}}
	scraper := &fakeTopicScraper{result: &functions.ScrapeResult{
		Success: true,
		Articles: []functions.ScrapedArticle{
			{Title: "Pier reopens", URL: "https://news.test/pier", WordCount: 420, RelevanceScore: 0.9},
			{Title: "", URL: "https://news.test/blank"},
			{Title: "Harbour works", URL: "https://news.test/harbour", Body: "<p>Dredging starts on Monday morning.</p>"},
			{Title: "No url at all", URL: "  "},
		},
	}}
	svc := NewScrapeService(fs, scraper, nil)

	out, err := svc.Run(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if scraper.topicID != "t1" || scraper.slug != "seaside" {
		t.Errorf("scraper called with %s/%s", scraper.topicID, scraper.slug)
	}
	if out.Found != 4 || out.Saved != 2 || out.Skipped != 2 {
		t.Errorf("outcome = %+v, want found 4, saved 2, skipped 2", out)
	}
	if len(fs.saved) != 2 {
		t.Fatalf("saved %d articles, want 2", len(fs.saved))
	}
	if fs.saved[0].TopicID != "t1" || fs.saved[0].Status != models.ArticleNew {
		t.Errorf("saved article misattributed: %+v", fs.saved[0])
	}
	if fs.saved[1].WordCount != 5 {
		t.Errorf("word count not derived from body: %d", fs.saved[1].WordCount)
	}
}

func TestScrapeRunPausedTopic(t *testing.T) {
	fs := &fakeScrapeStore{topic: &models.Topic{ID: "t1", Slug: "seaside", IsActive: false}}
	svc := NewScrapeService(fs, &fakeTopicScraper{}, nil)

	if _, err := svc.Run(context.Background(), "t1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestScrapeRunScraperRejection(t *testing.T) {
	fs := &fakeScrapeStore{topic: &models.Topic{ID: "t1", Slug: "seaside", IsActive: true}}
	scraper := &fakeTopicScraper{result: &functions.ScrapeResult{Success: false, Message: "blocked upstream"}}
	svc := NewScrapeService(fs, scraper, nil)

	_, err := svc.Run(context.Background(), "t1")
	if err == nil {
		t.Fatal("expected the rejection to surface")
	}
	if fs.saved != nil {
		t.Error("nothing should be saved when the scraper rejects the topic")
	}
}
