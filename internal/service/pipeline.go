package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/adamonsea/narrative-forge/internal/content"
	"github.com/adamonsea/narrative-forge/internal/functions"
	"github.com/adamonsea/narrative-forge/internal/store"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

// PipelineStore is the slice of the store the pipeline board uses.
type PipelineStore interface {
	ListArticles(ctx context.Context, f store.ArticleFilter) ([]*models.Article, error)
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	UpdateArticleStatus(ctx context.Context, id string, status models.ArticleStatus) error
	DeleteArticle(ctx context.Context, id string) error
	DeleteArticles(ctx context.Context, topicID string, ids []string) (int64, error)

	EnqueueArticle(ctx context.Context, item *models.QueueItem) error
	ListQueue(ctx context.Context, topicID string, limit int) ([]*models.QueueItem, error)
	GetQueueItem(ctx context.Context, id string) (*models.QueueItem, error)
	CancelQueueItem(ctx context.Context, id string) error
	RetryQueueItem(ctx context.Context, id string) error

	ListStories(ctx context.Context, f store.StoryFilter) ([]*models.Story, error)
	GetStory(ctx context.Context, id string) (*models.Story, error)
	ListSlidesForStories(ctx context.Context, storyIDs []string) (map[string][]models.Slide, error)
	UpdateSlideContent(ctx context.Context, slideID, content string, wordCount int) error
	PublishStory(ctx context.Context, id string) error
	ReturnStoryToReview(ctx context.Context, id string) error
	DeleteStory(ctx context.Context, id string) (string, error)
	CountStoriesByStatus(ctx context.Context, topicID string) (map[models.StoryStatus]int, error)

	ListCoverOptions(ctx context.Context, storyID string) ([]*models.CoverOption, error)
	AddCoverOption(ctx context.Context, opt *models.CoverOption) error
	SelectCoverOption(ctx context.Context, storyID, optionID string) error
	DeleteCoverOption(ctx context.Context, storyID, optionID string) error
}

// QueueKicker pokes the remote job processor so newly queued work starts
// without waiting for its schedule.
type QueueKicker interface {
	ProcessQueue(ctx context.Context) (*functions.Result, error)
}

// CoverGenerator renders a new cover illustration option for a story.
type CoverGenerator interface {
	GenerateCover(ctx context.Context, storyID, prompt string) (*functions.CoverResult, *functions.Result, error)
}

// PipelineCounts is the board header summary.
type PipelineCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Ready      int `json:"ready"`
	Published  int `json:"published"`
}

// PipelineContent is one topic's full board state: incoming articles, the
// generation queue and stories awaiting review.
type PipelineContent struct {
	Articles   []*models.Article   `json:"articles"`
	QueueItems []*models.QueueItem `json:"queue_items"`
	Stories    []*models.Story     `json:"stories"`
	Counts     PipelineCounts      `json:"counts"`
}

// ApproveOptions carries the generation knobs picked on the article card.
type ApproveOptions struct {
	SlideType         string `json:"slide_type"`
	Tone              string `json:"tone"`
	AudienceExpertise string `json:"audience_expertise"`
}

// PipelineService drives the editorial board for every topic. It keeps a
// per-topic snapshot of the last loaded state and patches it after each
// successful store write, so the board endpoint can answer cheaply between
// reloads. The store stays the source of truth; a failed write leaves the
// snapshot untouched.
type PipelineService struct {
	store  PipelineStore
	kicker QueueKicker
	covers CoverGenerator
	logger *slog.Logger

	mu        sync.Mutex
	snapshots map[string]*PipelineContent
}

func NewPipelineService(st PipelineStore, kicker QueueKicker, covers CoverGenerator, logger *slog.Logger) *PipelineService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineService{
		store:     st,
		kicker:    kicker,
		covers:    covers,
		logger:    logger,
		snapshots: make(map[string]*PipelineContent),
	}
}

// Load reads the full board state for one topic from the store and replaces
// the cached snapshot.
func (s *PipelineService) Load(ctx context.Context, topicID string) (*PipelineContent, error) {
	if topicID == "" {
		return nil, invalidf("topic id required")
	}

	articles, err := s.store.ListArticles(ctx, store.ArticleFilter{
		TopicID: topicID,
		Status:  models.ArticleNew,
		Limit:   200,
	})
	if err != nil {
		return nil, fmt.Errorf("load articles: %w", err)
	}

	queue, err := s.store.ListQueue(ctx, topicID, 200)
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}

	stories, err := s.store.ListStories(ctx, store.StoryFilter{
		TopicID:  topicID,
		Statuses: []models.StoryStatus{models.StoryDraft, models.StoryReady},
		Limit:    200,
	})
	if err != nil {
		return nil, fmt.Errorf("load stories: %w", err)
	}

	ids := make([]string, len(stories))
	for i, st := range stories {
		ids[i] = st.ID
	}
	slides, err := s.store.ListSlidesForStories(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load slides: %w", err)
	}
	for _, st := range stories {
		st.Slides = slides[st.ID]
	}

	storyCounts, err := s.store.CountStoriesByStatus(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("count stories: %w", err)
	}

	pc := &PipelineContent{Articles: articles, QueueItems: queue, Stories: stories}
	for _, q := range queue {
		switch q.Status {
		case models.QueuePending:
			pc.Counts.Pending++
		case models.QueueProcessing:
			pc.Counts.Processing++
		}
	}
	pc.Counts.Ready = storyCounts[models.StoryReady]
	pc.Counts.Published = storyCounts[models.StoryPublished]

	s.mu.Lock()
	s.snapshots[topicID] = pc
	s.mu.Unlock()
	return pc, nil
}

// Snapshot returns a copy of the last loaded board state, or nil when the
// topic has not been loaded yet.
func (s *PipelineService) Snapshot(topicID string) *PipelineContent {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.snapshots[topicID]
	if !ok {
		return nil
	}
	cp := *pc
	cp.Articles = append([]*models.Article(nil), pc.Articles...)
	cp.QueueItems = append([]*models.QueueItem(nil), pc.QueueItems...)
	cp.Stories = append([]*models.Story(nil), pc.Stories...)
	return &cp
}

// Invalidate drops a topic's cached board state. The realtime listener calls
// this when a change event arrives for one of the board tables.
func (s *PipelineService) Invalidate(topicID string) {
	s.mu.Lock()
	delete(s.snapshots, topicID)
	s.mu.Unlock()
}

// ApproveArticle queues an article for story generation. A second approval of
// the same article fails with store.ErrAlreadyQueued and leaves the queue
// unchanged.
func (s *PipelineService) ApproveArticle(ctx context.Context, topicID, articleID string, opts ApproveOptions) (*models.QueueItem, error) {
	art, err := s.article(ctx, topicID, articleID)
	if err != nil {
		return nil, err
	}
	if art.Status != models.ArticleNew {
		return nil, invalidf("article %s is %s, only new articles can be approved", articleID, art.Status)
	}

	item := &models.QueueItem{
		ArticleID:         art.ID,
		TopicID:           topicID,
		SlideType:         orDefault(opts.SlideType, "tabloid"),
		Tone:              orDefault(opts.Tone, "conversational"),
		AudienceExpertise: orDefault(opts.AudienceExpertise, "intermediate"),
		ArticleTitle:      art.Title,
	}
	if err := s.store.EnqueueArticle(ctx, item); err != nil {
		return nil, fmt.Errorf("enqueue article: %w", err)
	}

	s.patch(topicID, func(pc *PipelineContent) {
		pc.Articles = dropArticle(pc.Articles, art.ID)
		pc.QueueItems = append(pc.QueueItems, item)
		pc.Counts.Pending++
	})

	s.kick(ctx)
	return item, nil
}

// RejectArticle marks an article discarded so it leaves the review pile.
func (s *PipelineService) RejectArticle(ctx context.Context, topicID, articleID string) error {
	if _, err := s.article(ctx, topicID, articleID); err != nil {
		return err
	}
	if err := s.store.UpdateArticleStatus(ctx, articleID, models.ArticleDiscarded); err != nil {
		return fmt.Errorf("discard article: %w", err)
	}
	s.patch(topicID, func(pc *PipelineContent) {
		pc.Articles = dropArticle(pc.Articles, articleID)
	})
	return nil
}

// DeleteArticle removes an article entirely.
func (s *PipelineService) DeleteArticle(ctx context.Context, topicID, articleID string) error {
	if _, err := s.article(ctx, topicID, articleID); err != nil {
		return err
	}
	if err := s.store.DeleteArticle(ctx, articleID); err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	s.patch(topicID, func(pc *PipelineContent) {
		pc.Articles = dropArticle(pc.Articles, articleID)
	})
	return nil
}

// DeleteArticles bulk-removes articles. Only rows belonging to the topic are
// touched; the returned count says how many actually went.
func (s *PipelineService) DeleteArticles(ctx context.Context, topicID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, invalidf("no article ids given")
	}
	n, err := s.store.DeleteArticles(ctx, topicID, ids)
	if err != nil {
		return 0, fmt.Errorf("delete articles: %w", err)
	}
	s.patch(topicID, func(pc *PipelineContent) {
		for _, id := range ids {
			pc.Articles = dropArticle(pc.Articles, id)
		}
	})
	return n, nil
}

// CancelQueueItem withdraws a pending job and puts its article back in the
// review pile.
func (s *PipelineService) CancelQueueItem(ctx context.Context, topicID, queueID string) error {
	item, err := s.queueItem(ctx, topicID, queueID)
	if err != nil {
		return err
	}
	if err := s.store.CancelQueueItem(ctx, queueID); err != nil {
		return fmt.Errorf("cancel queue item: %w", err)
	}

	art, artErr := s.store.GetArticle(ctx, item.ArticleID)
	if artErr != nil {
		s.logger.Warn("reload article after cancel failed", "article_id", item.ArticleID, "error", artErr)
	}
	s.patch(topicID, func(pc *PipelineContent) {
		pc.QueueItems = dropQueueItem(pc.QueueItems, queueID)
		if pc.Counts.Pending > 0 {
			pc.Counts.Pending--
		}
		if artErr == nil {
			pc.Articles = append([]*models.Article{art}, pc.Articles...)
		}
	})
	return nil
}

// RetryQueueItem puts a failed job back in the pending queue.
func (s *PipelineService) RetryQueueItem(ctx context.Context, topicID, queueID string) (*models.QueueItem, error) {
	if _, err := s.queueItem(ctx, topicID, queueID); err != nil {
		return nil, err
	}
	if err := s.store.RetryQueueItem(ctx, queueID); err != nil {
		return nil, fmt.Errorf("retry queue item: %w", err)
	}
	item, err := s.store.GetQueueItem(ctx, queueID)
	if err != nil {
		return nil, fmt.Errorf("reload queue item: %w", err)
	}

	s.patch(topicID, func(pc *PipelineContent) {
		pc.QueueItems = append(dropQueueItem(pc.QueueItems, queueID), item)
		pc.Counts.Pending++
	})

	s.kick(ctx)
	return item, nil
}

// ApproveStory publishes a ready story.
func (s *PipelineService) ApproveStory(ctx context.Context, topicID, storyID string) error {
	st, err := s.story(ctx, topicID, storyID)
	if err != nil {
		return err
	}
	if st.Status != models.StoryReady {
		return invalidf("story is %s, only ready stories can be published", st.Status)
	}
	if err := s.store.PublishStory(ctx, storyID); err != nil {
		return fmt.Errorf("publish story: %w", err)
	}
	s.patch(topicID, func(pc *PipelineContent) {
		pc.Stories = dropStory(pc.Stories, storyID)
		if pc.Counts.Ready > 0 {
			pc.Counts.Ready--
		}
		pc.Counts.Published++
	})
	return nil
}

// ReturnStoryToReview pulls a published story back onto the board.
func (s *PipelineService) ReturnStoryToReview(ctx context.Context, topicID, storyID string) error {
	if _, err := s.story(ctx, topicID, storyID); err != nil {
		return err
	}
	if err := s.store.ReturnStoryToReview(ctx, storyID); err != nil {
		return fmt.Errorf("return story to review: %w", err)
	}

	st, stErr := s.store.GetStory(ctx, storyID)
	if stErr != nil {
		s.logger.Warn("reload story after return failed", "story_id", storyID, "error", stErr)
	}
	s.patch(topicID, func(pc *PipelineContent) {
		if pc.Counts.Published > 0 {
			pc.Counts.Published--
		}
		pc.Counts.Ready++
		if stErr == nil {
			pc.Stories = append(pc.Stories, st)
		}
	})
	return nil
}

// RejectStory deletes a story with its slides and loops the source article
// back to the review pile.
func (s *PipelineService) RejectStory(ctx context.Context, topicID, storyID string) error {
	st, err := s.story(ctx, topicID, storyID)
	if err != nil {
		return err
	}
	articleID, err := s.store.DeleteStory(ctx, storyID)
	if err != nil {
		return fmt.Errorf("delete story: %w", err)
	}

	art, artErr := s.store.GetArticle(ctx, articleID)
	if artErr != nil {
		s.logger.Warn("reload article after reject failed", "article_id", articleID, "error", artErr)
	}
	s.patch(topicID, func(pc *PipelineContent) {
		pc.Stories = dropStory(pc.Stories, storyID)
		if st.Status == models.StoryReady && pc.Counts.Ready > 0 {
			pc.Counts.Ready--
		}
		if artErr == nil {
			pc.Articles = append([]*models.Article{art}, pc.Articles...)
		}
	})
	return nil
}

// EditSlide rewrites one slide's text and recounts its words.
func (s *PipelineService) EditSlide(ctx context.Context, topicID, storyID, slideID, text string) (*models.Slide, error) {
	st, err := s.story(ctx, topicID, storyID)
	if err != nil {
		return nil, err
	}

	var slide *models.Slide
	for i := range st.Slides {
		if st.Slides[i].ID == slideID {
			slide = &st.Slides[i]
			break
		}
	}
	if slide == nil {
		return nil, store.ErrNotFound
	}

	wc := content.WordCount(text)
	if err := s.store.UpdateSlideContent(ctx, slideID, text, wc); err != nil {
		return nil, fmt.Errorf("update slide: %w", err)
	}
	slide.Content = text
	slide.WordCount = wc

	s.patch(topicID, func(pc *PipelineContent) {
		for _, ps := range pc.Stories {
			if ps.ID != storyID {
				continue
			}
			for i := range ps.Slides {
				if ps.Slides[i].ID == slideID {
					ps.Slides[i].Content = text
					ps.Slides[i].WordCount = wc
				}
			}
		}
	})
	return slide, nil
}

// Covers lists a story's cover options.
func (s *PipelineService) Covers(ctx context.Context, topicID, storyID string) ([]*models.CoverOption, error) {
	if _, err := s.story(ctx, topicID, storyID); err != nil {
		return nil, err
	}
	return s.store.ListCoverOptions(ctx, storyID)
}

// SelectCover makes one option the story's cover.
func (s *PipelineService) SelectCover(ctx context.Context, topicID, storyID, optionID string) error {
	if _, err := s.story(ctx, topicID, storyID); err != nil {
		return err
	}
	if err := s.store.SelectCoverOption(ctx, storyID, optionID); err != nil {
		return fmt.Errorf("select cover: %w", err)
	}
	return nil
}

// DeleteCover removes one cover option. The check runs before the write so a
// story can never lose its last option, even transiently.
func (s *PipelineService) DeleteCover(ctx context.Context, topicID, storyID, optionID string) error {
	if _, err := s.story(ctx, topicID, storyID); err != nil {
		return err
	}
	opts, err := s.store.ListCoverOptions(ctx, storyID)
	if err != nil {
		return fmt.Errorf("list cover options: %w", err)
	}
	if len(opts) <= 1 {
		return store.ErrLastCoverOption
	}
	if err := s.store.DeleteCoverOption(ctx, storyID, optionID); err != nil {
		return fmt.Errorf("delete cover option: %w", err)
	}
	return nil
}

// GenerateCover renders one more cover option through the illustration
// function and saves it.
func (s *PipelineService) GenerateCover(ctx context.Context, topicID, storyID, prompt string) (*models.CoverOption, error) {
	if _, err := s.story(ctx, topicID, storyID); err != nil {
		return nil, err
	}
	if s.covers == nil {
		return nil, fmt.Errorf("cover generation not configured")
	}

	res, _, err := s.covers.GenerateCover(ctx, storyID, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate cover: %w", err)
	}
	opt := &models.CoverOption{StoryID: storyID, ImageURL: res.ImageURL, Prompt: res.Prompt}
	if err := s.store.AddCoverOption(ctx, opt); err != nil {
		return nil, fmt.Errorf("save cover option: %w", err)
	}
	return opt, nil
}

// kick asks the remote processor for an immediate pass. Failures are logged
// and swallowed; the processor runs on its own schedule anyway.
func (s *PipelineService) kick(ctx context.Context) {
	if s.kicker == nil {
		return
	}
	if _, err := s.kicker.ProcessQueue(ctx); err != nil {
		s.logger.Warn("queue processor kick failed", "error", err)
	}
}

func (s *PipelineService) patch(topicID string, fn func(*PipelineContent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pc, ok := s.snapshots[topicID]; ok {
		fn(pc)
	}
}

func (s *PipelineService) article(ctx context.Context, topicID, articleID string) (*models.Article, error) {
	art, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if art.TopicID != topicID {
		return nil, store.ErrNotFound
	}
	return art, nil
}

func (s *PipelineService) story(ctx context.Context, topicID, storyID string) (*models.Story, error) {
	st, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if st.TopicID != topicID {
		return nil, store.ErrNotFound
	}
	return st, nil
}

func (s *PipelineService) queueItem(ctx context.Context, topicID, queueID string) (*models.QueueItem, error) {
	item, err := s.store.GetQueueItem(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if item.TopicID != topicID {
		return nil, store.ErrNotFound
	}
	return item, nil
}

func dropArticle(list []*models.Article, id string) []*models.Article {
	out := list[:0]
	for _, a := range list {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

func dropQueueItem(list []*models.QueueItem, id string) []*models.QueueItem {
	out := list[:0]
	for _, q := range list {
		if q.ID != id {
			out = append(out, q)
		}
	}
	return out
}

func dropStory(list []*models.Story, id string) []*models.Story {
	out := list[:0]
	for _, st := range list {
		if st.ID != id {
			out = append(out, st)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
