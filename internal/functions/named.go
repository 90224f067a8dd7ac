package functions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Function names as deployed on the gateway.
const (
	FnHealthCheck    = "health-check"
	FnQueueProcessor = "queue-processor"
	FnTopicScraper   = "universal-topic-scraper"
	FnSentimentCard  = "generate-sentiment-card"
	FnResetStuck     = "reset-stuck-processing"
	FnTopicRescore   = "topic-rescore"
	FnEventsScraper  = "events-scraper"
)

// HealthCheck pings the gateway. Used by the readiness endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	res, err := c.Invoke(ctx, FnHealthCheck, nil)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("health-check reported failure: %s", res.Message)
	}
	return nil
}

// ProcessQueue kicks the remote queue processor. The processor picks up
// pending jobs on its own schedule; this forces an immediate pass.
func (c *Client) ProcessQueue(ctx context.Context) (*Result, error) {
	return c.Invoke(ctx, FnQueueProcessor, nil)
}

// ResetStuckProcessing asks the backend to requeue jobs its own worker
// abandoned. Complements the local sweep, which only sees this service's DB
// view.
func (c *Client) ResetStuckProcessing(ctx context.Context) (*Result, error) {
	return c.Invoke(ctx, FnResetStuck, nil)
}

// RescoreTopic recomputes relevance scores after a keyword change.
func (c *Client) RescoreTopic(ctx context.Context, topicID string) (*Result, error) {
	return c.Invoke(ctx, FnTopicRescore, map[string]any{"topicId": topicID})
}

// ScrapedArticle is one article as returned by the topic scraper.
type ScrapedArticle struct {
	Title          string     `json:"title"`
	URL            string     `json:"url"`
	Author         string     `json:"author"`
	ImageURL       string     `json:"imageUrl"`
	Body           string     `json:"body"`
	PublishedAt    *time.Time `json:"publishedAt"`
	WordCount      int        `json:"wordCount"`
	RelevanceScore float64    `json:"relevanceScore"`
}

type ScrapeResult struct {
	Success       bool             `json:"success"`
	Message       string           `json:"message"`
	ArticlesFound int              `json:"articlesFound"`
	Articles      []ScrapedArticle `json:"articles"`
}

// ScrapeTopic runs the universal scraper for one topic and returns what it
// found. Persisting the articles is the caller's job.
func (c *Client) ScrapeTopic(ctx context.Context, topicID, slug string) (*ScrapeResult, error) {
	res, err := c.Invoke(ctx, FnTopicScraper, map[string]any{"topicId": topicID, "slug": slug})
	if err != nil {
		return nil, err
	}

	var out ScrapeResult
	if err := json.Unmarshal(res.Raw, &out); err != nil {
		return nil, fmt.Errorf("scraper returned unparseable body: %w", err)
	}
	if !out.Success && out.Message == "" {
		out.Message = res.Message
	}
	return &out, nil
}

// CoverResult is the rendered illustration for a story.
type CoverResult struct {
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt"`
}

// GenerateCover renders one new cover illustration option for a story.
func (c *Client) GenerateCover(ctx context.Context, storyID, prompt string) (*CoverResult, *Result, error) {
	res, err := c.Invoke(ctx, FnSentimentCard, map[string]any{"storyId": storyID, "prompt": prompt})
	if err != nil {
		return nil, nil, err
	}
	if !res.Success {
		return nil, res, fmt.Errorf("cover generation failed: %s", res.Message)
	}

	var out CoverResult
	if err := json.Unmarshal(res.Raw, &out); err != nil || out.ImageURL == "" {
		// Some deployments nest the payload under data.
		if v, ok := res.Data["imageUrl"].(string); ok {
			out.ImageURL = v
		}
		if v, ok := res.Data["prompt"].(string); ok {
			out.Prompt = v
		}
	}
	if out.ImageURL == "" {
		return nil, res, fmt.Errorf("cover generation returned no image url")
	}
	return &out, res, nil
}

// ScrapedEvent is one event row from the events scraper.
type ScrapedEvent struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	EventType   string     `json:"eventType"`
	SourceURL   string     `json:"sourceUrl"`
	StartsAt    time.Time  `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt"`
}

type EventsResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Events  []ScrapedEvent `json:"events"`
}

// ScrapeEvents finds upcoming local events for a topic's region.
func (c *Client) ScrapeEvents(ctx context.Context, topicID, region string) (*EventsResult, error) {
	res, err := c.Invoke(ctx, FnEventsScraper, map[string]any{"topicId": topicID, "region": region})
	if err != nil {
		return nil, err
	}

	var out EventsResult
	if err := json.Unmarshal(res.Raw, &out); err != nil {
		return nil, fmt.Errorf("events scraper returned unparseable body: %w", err)
	}
	if !out.Success && out.Message == "" {
		out.Message = res.Message
	}
	return &out, nil
}
