package service

import (
	"context"
	"testing"
	"time"

	"github.com/adamonsea/narrative-forge/pkg/models"
)

type fakeUsageStore struct {
	summaryCalls int
	inserted     []*models.ApiUsage
}

func (f *fakeUsageStore) InsertUsage(_ context.Context, u *models.ApiUsage) error {
	f.inserted = append(f.inserted, u)
	return nil
}

func (f *fakeUsageStore) SummarizeCosts(_ context.Context, _ time.Time) ([]*models.CostSummary, error) {
	f.summaryCalls++
	return []*models.CostSummary{
		{Provider: "openai", Calls: 12, Tokens: 90000, CostUSD: 1.25},
		{Provider: "replicate", Calls: 3, CostUSD: 0.75},
	}, nil
}

func (f *fakeUsageStore) SummarizeCostsByDay(_ context.Context, _ time.Time) ([]*models.DailyCost, error) {
	return []*models.DailyCost{{Calls: 15, CostUSD: 2.0}}, nil
}

// mapCache is an in-memory CostCache without TTL handling.
type mapCache struct {
	vals map[string]string
	dels []string
}

func newMapCache() *mapCache { return &mapCache{vals: map[string]string{}} }

func (m *mapCache) Get(_ context.Context, key string) (string, error) { return m.vals[key], nil }

func (m *mapCache) Set(_ context.Context, key, val string, _ time.Duration) error {
	m.vals[key] = val
	return nil
}

func (m *mapCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.vals, k)
		m.dels = append(m.dels, k)
	}
	return nil
}

func TestCostReportAggregatesAndCaches(t *testing.T) {
	fs := &fakeUsageStore{}
	cache := newMapCache()
	svc := NewCostService(fs, cache, time.Minute, nil)

	rep, err := svc.Report(context.Background(), 30)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if rep.TotalUSD != 2.0 {
		t.Errorf("total = %g, want 2.0", rep.TotalUSD)
	}
	if fs.summaryCalls != 1 {
		t.Fatalf("store hit %d times, want 1", fs.summaryCalls)
	}

	// Second read is served from the cache.
	if _, err := svc.Report(context.Background(), 30); err != nil {
		t.Fatalf("cached Report: %v", err)
	}
	if fs.summaryCalls != 1 {
		t.Errorf("cached read still hit the store (%d calls)", fs.summaryCalls)
	}
}

func TestCostWindowClamping(t *testing.T) {
	fs := &fakeUsageStore{}
	svc := NewCostService(fs, nil, time.Minute, nil)

	cases := []struct{ in, want int }{
		{0, 30}, {-5, 30}, {3, 7}, {7, 7}, {10, 30}, {45, 90}, {400, 90},
	}
	for _, tc := range cases {
		rep, err := svc.Report(context.Background(), tc.in)
		if err != nil {
			t.Fatalf("Report(%d): %v", tc.in, err)
		}
		if rep.Days != tc.want {
			t.Errorf("Report(%d).Days = %d, want %d", tc.in, rep.Days, tc.want)
		}
	}
}

func TestRecordInvalidatesEveryWindow(t *testing.T) {
	fs := &fakeUsageStore{}
	cache := newMapCache()
	svc := NewCostService(fs, cache, time.Minute, nil)

	for _, days := range []int{7, 30, 90} {
		if _, err := svc.Report(context.Background(), days); err != nil {
			t.Fatalf("warm cache for %d: %v", days, err)
		}
	}

	err := svc.Record(context.Background(), &models.ApiUsage{Provider: "openai", Operation: "chat", CostUSD: 0.01})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(fs.inserted) != 1 {
		t.Fatalf("usage not stored")
	}
	if len(cache.vals) != 0 {
		t.Errorf("cache still holds %d reports after a usage write", len(cache.vals))
	}
}

func TestRecordValidation(t *testing.T) {
	svc := NewCostService(&fakeUsageStore{}, nil, time.Minute, nil)

	if err := svc.Record(context.Background(), &models.ApiUsage{Provider: "openai"}); err == nil {
		t.Fatal("usage without operation must be rejected")
	}
	if err := svc.Record(context.Background(), &models.ApiUsage{Operation: "chat"}); err == nil {
		t.Fatal("usage without provider must be rejected")
	}
}
