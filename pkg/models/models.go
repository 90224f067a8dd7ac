package models

import (
	"time"

	dbtypes "github.com/adamonsea/narrative-forge/internal/db"
)

// Article is a scraped news item tied to a topic. Raw body text stays in
// Postgres; the dashboard works from the metadata here.
type Article struct {
	ID             string        `db:"id" json:"id"`
	TopicID        string        `db:"topic_id" json:"topic_id"`
	Title          string        `db:"title" json:"title"`
	Body           string        `db:"body" json:"body,omitempty"`
	URL            string        `db:"source_url" json:"source_url"`
	Author         string        `db:"author" json:"author,omitempty"`
	ImageURL       string        `db:"image_url" json:"image_url,omitempty"`
	PublishedAt    *time.Time    `db:"published_at" json:"published_at,omitempty"`
	WordCount      int           `db:"word_count" json:"word_count"`
	RelevanceScore float64       `db:"relevance_score" json:"relevance_score"`
	Status         ArticleStatus `db:"status" json:"status"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// QueueItem is one pending or running story-generation job for an article.
type QueueItem struct {
	ID                string      `db:"id" json:"id"`
	ArticleID         string      `db:"article_id" json:"article_id"`
	TopicID           string      `db:"topic_id" json:"topic_id"`
	Status            QueueStatus `db:"status" json:"status"`
	SlideType         string      `db:"slide_type" json:"slide_type"`
	Tone              string      `db:"tone" json:"tone"`
	AudienceExpertise string      `db:"audience_expertise" json:"audience_expertise"`
	Attempts          int         `db:"attempts" json:"attempts"`
	MaxAttempts       int         `db:"max_attempts" json:"max_attempts"`
	ErrorMessage      string      `db:"error_message" json:"error_message,omitempty"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
	StartedAt         *time.Time  `db:"started_at" json:"started_at,omitempty"`
	CompletedAt       *time.Time  `db:"completed_at" json:"completed_at,omitempty"`

	// ArticleTitle is joined in for queue listings (not persisted on the row).
	ArticleTitle string `db:"article_title" json:"article_title,omitempty"`
}

// Story is the generated carousel for one article, reviewed slide by slide
// before publication.
type Story struct {
	ID          string      `db:"id" json:"id"`
	ArticleID   string      `db:"article_id" json:"article_id"`
	TopicID     string      `db:"topic_id" json:"topic_id"`
	Title       string      `db:"title" json:"title"`
	Status      StoryStatus `db:"status" json:"status"`
	Author      string      `db:"author" json:"author,omitempty"`
	CoverURL    string      `db:"cover_illustration_url" json:"cover_illustration_url,omitempty"`
	CoverPrompt string      `db:"cover_illustration_prompt" json:"cover_illustration_prompt,omitempty"`
	PublishedAt *time.Time  `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`

	Slides []Slide `db:"-" json:"slides,omitempty"`
}

// Slide is one frame of a story carousel.
type Slide struct {
	ID         string    `db:"id" json:"id"`
	StoryID    string    `db:"story_id" json:"story_id"`
	SlideOrder int       `db:"slide_order" json:"slide_order"`
	Content    string    `db:"content" json:"content"`
	ImageURL   string    `db:"image_url" json:"image_url,omitempty"`
	AltText    string    `db:"alt_text" json:"alt_text,omitempty"`
	WordCount  int       `db:"word_count" json:"word_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// CoverOption is one candidate cover illustration for a story. Exactly one
// option per story is selected at a time.
type CoverOption struct {
	ID        string    `db:"id" json:"id"`
	StoryID   string    `db:"story_id" json:"story_id"`
	ImageURL  string    `db:"image_url" json:"image_url"`
	Prompt    string    `db:"prompt" json:"prompt,omitempty"`
	Selected  bool      `db:"selected" json:"selected"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CarouselExport is a rendered image bundle for a published story, pointing
// at file paths inside the carousel bucket.
type CarouselExport struct {
	ID           string              `db:"id" json:"id"`
	StoryID      string              `db:"story_id" json:"story_id"`
	Status       ExportStatus        `db:"status" json:"status"`
	FormatsJSON  dbtypes.JSONMap     `db:"export_formats" json:"export_formats,omitempty"`
	FilePaths    dbtypes.StringSlice `db:"file_paths" json:"file_paths"`
	ZipURL       string              `db:"zip_url" json:"zip_url,omitempty"`
	ErrorMessage string              `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updated_at"`
}
