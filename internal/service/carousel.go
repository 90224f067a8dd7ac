package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	dbtypes "github.com/adamonsea/narrative-forge/internal/db"
	"github.com/adamonsea/narrative-forge/internal/exports"
	"github.com/adamonsea/narrative-forge/internal/store"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

// CarouselStore is the slice of the store the export preview uses.
type CarouselStore interface {
	GetStory(ctx context.Context, id string) (*models.Story, error)
	CreateExport(ctx context.Context, e *models.CarouselExport) error
	GetExport(ctx context.Context, id string) (*models.CarouselExport, error)
	LatestExportForStory(ctx context.Context, storyID string) (*models.CarouselExport, error)
	MarkExportGenerating(ctx context.Context, id string) error
	CompleteExport(ctx context.Context, id string, paths dbtypes.StringSlice, zipURL string) error
	FailExport(ctx context.Context, id, msg string) error
}

// Signer mints a time-limited URL for one stored object.
type Signer interface {
	SignURL(path string) string
}

// PreviewImage is one slide image of an export, ready for the dashboard to
// show: the stored path, the filename it downloads under, and a signed URL.
type PreviewImage struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	SignedURL string `json:"signed_url"`
}

// Preview is a story's newest export with per-image signed URLs.
type Preview struct {
	Export *models.CarouselExport `json:"export"`
	Images []PreviewImage         `json:"images"`
}

// BundleReport summarizes one zip assembly: how many images were requested,
// how many failed to fetch, and which paths those were.
type BundleReport struct {
	Total       int      `json:"total"`
	Failed      int      `json:"failed"`
	FailedPaths []string `json:"failed_paths,omitempty"`
}

// CarouselService serves export previews and downloads for published story
// carousels. Image bytes are fetched on demand through signed URLs and
// released as soon as the response is written; nothing is held between
// requests.
type CarouselService struct {
	store   CarouselStore
	signer  Signer
	fetcher exports.Fetcher
	logger  *slog.Logger
}

func NewCarouselService(st CarouselStore, signer Signer, fetcher exports.Fetcher, logger *slog.Logger) *CarouselService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CarouselService{store: st, signer: signer, fetcher: fetcher, logger: logger}
}

// Request creates a pending export row for a story. The remote renderer picks
// it up from the change feed and reports back through Started/Complete/Fail.
func (s *CarouselService) Request(ctx context.Context, storyID string, formats dbtypes.JSONMap) (*models.CarouselExport, error) {
	st, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if st.Status != models.StoryReady && st.Status != models.StoryPublished {
		return nil, invalidf("story is %s, only ready or published stories export", st.Status)
	}

	exp := &models.CarouselExport{StoryID: storyID, FormatsJSON: formats}
	if err := s.store.CreateExport(ctx, exp); err != nil {
		return nil, fmt.Errorf("create export: %w", err)
	}
	return exp, nil
}

// Preview returns the story's newest export with a signed URL per image.
func (s *CarouselService) Preview(ctx context.Context, storyID string) (*Preview, error) {
	exp, err := s.store.LatestExportForStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if s.signer == nil {
		return nil, fmt.Errorf("carousel bucket not configured")
	}

	pv := &Preview{Export: exp, Images: make([]PreviewImage, 0, len(exp.FilePaths))}
	for i, path := range exp.FilePaths {
		pv.Images = append(pv.Images, PreviewImage{
			Path:      path,
			Name:      exports.SlideName(i+1, path),
			SignedURL: s.signer.SignURL(path),
		})
	}
	return pv, nil
}

// Zip streams the export's images as one archive. Images that fail to fetch
// are skipped and reported; the archive still carries everything that loaded.
// A bundle where nothing loaded is an error.
func (s *CarouselService) Zip(ctx context.Context, storyID string, w io.Writer) (*BundleReport, error) {
	exp, err := s.completedExport(ctx, storyID)
	if err != nil {
		return nil, err
	}

	b := exports.NewBundle(s.fetcher, s.logger)
	defer b.Close()
	for i, path := range exp.FilePaths {
		b.Add(path, exports.SlideName(i+1, path))
	}

	failed := b.Load(ctx)
	if failed == len(exp.FilePaths) && len(exp.FilePaths) > 0 {
		return nil, fmt.Errorf("no export image could be fetched")
	}
	if err := b.Zip(w); err != nil {
		return nil, fmt.Errorf("assemble zip: %w", err)
	}

	rep := &BundleReport{Total: len(exp.FilePaths), Failed: failed}
	for _, it := range b.Failed() {
		rep.FailedPaths = append(rep.FailedPaths, it.Path)
	}
	return rep, nil
}

// Image fetches a single slide image by its position in the export.
func (s *CarouselService) Image(ctx context.Context, storyID string, index int) (string, []byte, error) {
	exp, err := s.completedExport(ctx, storyID)
	if err != nil {
		return "", nil, err
	}
	if index < 0 || index >= len(exp.FilePaths) {
		return "", nil, invalidf("export has %d images, index %d out of range", len(exp.FilePaths), index)
	}

	path := exp.FilePaths[index]
	data, err := s.fetcher.Fetch(ctx, path)
	if err != nil {
		return "", nil, fmt.Errorf("fetch export image: %w", err)
	}
	return exports.SlideName(index+1, path), data, nil
}

// Started records that the remote renderer picked an export up.
func (s *CarouselService) Started(ctx context.Context, exportID string) error {
	if err := s.store.MarkExportGenerating(ctx, exportID); err != nil {
		return fmt.Errorf("mark export generating: %w", err)
	}
	return nil
}

// Complete records the rendered file paths and optional bundled zip location.
func (s *CarouselService) Complete(ctx context.Context, exportID string, paths []string, zipURL string) error {
	if len(paths) == 0 {
		return invalidf("completed export needs at least one file path")
	}
	if err := s.store.CompleteExport(ctx, exportID, dbtypes.StringSlice(paths), zipURL); err != nil {
		return fmt.Errorf("complete export: %w", err)
	}
	return nil
}

// Fail records a render failure.
func (s *CarouselService) Fail(ctx context.Context, exportID, msg string) error {
	if msg == "" {
		msg = "render failed"
	}
	if err := s.store.FailExport(ctx, exportID, msg); err != nil {
		return fmt.Errorf("fail export: %w", err)
	}
	return nil
}

func (s *CarouselService) completedExport(ctx context.Context, storyID string) (*models.CarouselExport, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("carousel bucket not configured")
	}
	exp, err := s.store.LatestExportForStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if exp.Status != models.ExportCompleted {
		return nil, invalidf("export is %s, wait for it to complete", exp.Status)
	}
	if len(exp.FilePaths) == 0 {
		return nil, store.ErrNotFound
	}
	return exp, nil
}
