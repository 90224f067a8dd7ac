package exports

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
)

// Fetcher downloads one stored object by its bucket path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Item is one image inside a carousel bundle. After Load either Data or Err
// is set; a failed item stays in the bundle so callers can report it.
type Item struct {
	Path string
	Name string
	Data []byte
	Err  error
}

// Bundle collects the images of one story and turns them into a zip. Images
// are fetched one at a time; a single bad image never sinks the bundle.
type Bundle struct {
	fetcher Fetcher
	logger  *slog.Logger
	items   []Item
	loaded  bool
}

func NewBundle(fetcher Fetcher, logger *slog.Logger) *Bundle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bundle{fetcher: fetcher, logger: logger}
}

// Add registers one object path under the filename it will carry in the zip.
func (b *Bundle) Add(objectPath, name string) {
	b.items = append(b.items, Item{Path: objectPath, Name: name})
}

// Load fetches every registered item in order and returns how many failed.
func (b *Bundle) Load(ctx context.Context) int {
	failed := 0
	for i := range b.items {
		it := &b.items[i]
		data, err := b.fetcher.Fetch(ctx, it.Path)
		if err != nil {
			it.Err = err
			failed++
			b.logger.Warn("bundle item failed", "path", it.Path, "error", err)
			continue
		}
		it.Data = data
	}
	b.loaded = true
	return failed
}

// Items returns every registered item, including failed ones.
func (b *Bundle) Items() []Item {
	return b.items
}

// Failed returns just the items whose fetch failed.
func (b *Bundle) Failed() []Item {
	var out []Item
	for _, it := range b.items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// Zip writes the successfully fetched items to w. Each entry carries exactly
// the name it was added under and exactly the bytes that came back from
// storage.
func (b *Bundle) Zip(w io.Writer) error {
	if !b.loaded {
		return fmt.Errorf("bundle not loaded")
	}
	zw := zip.NewWriter(w)
	for _, it := range b.items {
		if it.Err != nil {
			continue
		}
		f, err := zw.Create(it.Name)
		if err != nil {
			return fmt.Errorf("zip entry %s: %w", it.Name, err)
		}
		if _, err := f.Write(it.Data); err != nil {
			return fmt.Errorf("zip entry %s: %w", it.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

// Close drops the fetched image buffers. The bundle cannot be zipped after.
func (b *Bundle) Close() {
	for i := range b.items {
		b.items[i].Data = nil
	}
	b.loaded = false
}

// SlideName builds the zip filename for a slide, keeping the extension of
// the stored object. Orders start at 1.
func SlideName(order int, objectPath string) string {
	return fmt.Sprintf("slide_%02d%s", order, extOf(objectPath))
}

// CoverName builds the zip filename for the cover image.
func CoverName(objectPath string) string {
	return "cover" + extOf(objectPath)
}

func extOf(objectPath string) string {
	ext := path.Ext(objectPath)
	if i := strings.IndexByte(ext, '?'); i >= 0 {
		ext = ext[:i]
	}
	if ext == "" {
		ext = ".png"
	}
	return strings.ToLower(ext)
}
