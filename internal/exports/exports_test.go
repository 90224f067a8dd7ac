package exports

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/adamonsea/narrative-forge/pkg/models"
)

func TestWriteSubscribersCSV(t *testing.T) {
	verified := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	subs := []models.EmailSubscriber{
		{
			Email:      "jo@example.com",
			Name:       `Jo "JJ" Smith, Esq.`,
			Status:     models.SubscriberActive,
			VerifiedAt: &verified,
			CreatedAt:  time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC),
		},
		{
			Email:     "sam@example.com",
			Status:    models.SubscriberUnsubscribed,
			CreatedAt: time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := WriteSubscribersCSV(&buf, subs); err != nil {
		t.Fatalf("WriteSubscribersCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("re-read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if got := strings.Join(rows[0], ","); got != "email,name,status,verified_at,subscribed_at" {
		t.Errorf("header = %q", got)
	}
	if rows[1][1] != `Jo "JJ" Smith, Esq.` {
		t.Errorf("quoted name did not round-trip: %q", rows[1][1])
	}
	if rows[1][3] != "2026-02-01T09:30:00Z" {
		t.Errorf("verified_at = %q", rows[1][3])
	}
	if rows[2][3] != "" {
		t.Errorf("unverified subscriber should have empty verified_at, got %q", rows[2][3])
	}
}

func TestWriteSubscribersCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSubscribersCSV(&buf, nil); err != nil {
		t.Fatalf("WriteSubscribersCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("re-read csv: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("empty export should still carry the header, got %d rows", len(rows))
	}
}

type fakeFetcher struct {
	objects map[string][]byte
	calls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, path string) ([]byte, error) {
	f.calls = append(f.calls, path)
	data, ok := f.objects[path]
	if !ok {
		return nil, fmt.Errorf("object %s missing", path)
	}
	return data, nil
}

func TestBundleZip(t *testing.T) {
	fetcher := &fakeFetcher{objects: map[string][]byte{
		"stories/s1/cover.png":    []byte("cover-bytes"),
		"stories/s1/slide_a.png":  []byte("first"),
		"stories/s1/slide_b.jpeg": []byte("second"),
	}}

	b := NewBundle(fetcher, nil)
	b.Add("stories/s1/cover.png", "cover.png")
	b.Add("stories/s1/slide_a.png", "slide_01.png")
	b.Add("stories/s1/slide_b.jpeg", "slide_02.jpeg")
	defer b.Close()

	if failed := b.Load(context.Background()); failed != 0 {
		t.Fatalf("Load reported %d failures", failed)
	}
	if want := []string{"stories/s1/cover.png", "stories/s1/slide_a.png", "stories/s1/slide_b.jpeg"}; strings.Join(fetcher.calls, "|") != strings.Join(want, "|") {
		t.Errorf("fetch order = %v", fetcher.calls)
	}

	var buf bytes.Buffer
	if err := b.Zip(&buf); err != nil {
		t.Fatalf("Zip: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	want := map[string]string{
		"cover.png":     "cover-bytes",
		"slide_01.png":  "first",
		"slide_02.jpeg": "second",
	}
	if len(zr.File) != len(want) {
		t.Fatalf("zip holds %d entries, want %d", len(zr.File), len(want))
	}
	for _, f := range zr.File {
		body, ok := want[f.Name]
		if !ok {
			t.Errorf("unexpected zip entry %q", f.Name)
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		var got bytes.Buffer
		if _, err := got.ReadFrom(rc); err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		rc.Close()
		if got.String() != body {
			t.Errorf("entry %s = %q, want %q", f.Name, got.String(), body)
		}
	}
}

func TestBundlePartialFailure(t *testing.T) {
	fetcher := &fakeFetcher{objects: map[string][]byte{
		"stories/s1/slide_a.png": []byte("first"),
	}}

	b := NewBundle(fetcher, nil)
	b.Add("stories/s1/slide_a.png", "slide_01.png")
	b.Add("stories/s1/slide_gone.png", "slide_02.png")
	defer b.Close()

	if failed := b.Load(context.Background()); failed != 1 {
		t.Fatalf("Load reported %d failures, want 1", failed)
	}
	if got := b.Failed(); len(got) != 1 || got[0].Name != "slide_02.png" || got[0].Err == nil {
		t.Fatalf("Failed() = %+v", got)
	}

	var buf bytes.Buffer
	if err := b.Zip(&buf); err != nil {
		t.Fatalf("Zip after partial failure: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "slide_01.png" {
		t.Errorf("zip should hold only the fetched slide, got %v", zr.File)
	}
}

func TestBundleZipBeforeLoad(t *testing.T) {
	b := NewBundle(&fakeFetcher{}, nil)
	b.Add("a.png", "slide_01.png")
	var buf bytes.Buffer
	if err := b.Zip(&buf); err == nil {
		t.Fatal("Zip before Load should fail")
	}
}

func TestSlideAndCoverNames(t *testing.T) {
	tests := []struct {
		order int
		path  string
		want  string
	}{
		{1, "stories/s1/abc.png", "slide_01.png"},
		{2, "stories/s1/def.JPEG", "slide_02.jpeg"},
		{11, "stories/s1/noext", "slide_11.png"},
		{3, "stories/s1/img.webp?rev=2", "slide_03.webp"},
	}
	for _, tt := range tests {
		if got := SlideName(tt.order, tt.path); got != tt.want {
			t.Errorf("SlideName(%d, %q) = %q, want %q", tt.order, tt.path, got, tt.want)
		}
	}
	if got := CoverName("stories/s1/cover-final.jpg"); got != "cover.jpg" {
		t.Errorf("CoverName = %q", got)
	}
}
