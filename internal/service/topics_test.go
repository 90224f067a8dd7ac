package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	dbtypes "github.com/adamonsea/narrative-forge/internal/db"
	"github.com/adamonsea/narrative-forge/internal/functions"
	"github.com/adamonsea/narrative-forge/internal/store"
	"github.com/adamonsea/narrative-forge/pkg/models"
)

type fakeTopicStore struct {
	topic     *models.Topic
	updateErr error

	savedField  string
	savedValues []string
	savedDrip   *models.DripSettings
	updateCalls int
}

func (f *fakeTopicStore) ListTopics(context.Context, bool) ([]*models.Topic, error) {
	return []*models.Topic{f.topic}, nil
}

func (f *fakeTopicStore) GetTopic(_ context.Context, id string) (*models.Topic, error) {
	if f.topic == nil || f.topic.ID != id {
		return nil, store.ErrNotFound
	}
	cp := *f.topic
	return &cp, nil
}

func (f *fakeTopicStore) GetTopicBySlug(_ context.Context, slug string) (*models.Topic, error) {
	if f.topic == nil || f.topic.Slug != slug {
		return nil, store.ErrNotFound
	}
	return f.topic, nil
}

func (f *fakeTopicStore) CreateTopic(_ context.Context, t *models.Topic) error {
	f.topic = t
	return nil
}

func (f *fakeTopicStore) UpdateTopicList(_ context.Context, _, field string, values dbtypes.StringSlice) error {
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.savedField = field
	f.savedValues = values
	switch field {
	case ListKeywords:
		f.topic.Keywords = values
	case ListLandmarks:
		f.topic.LandmarkNames = values
	}
	return nil
}

func (f *fakeTopicStore) UpdateTopicDrip(_ context.Context, id string, d models.DripSettings) error {
	if f.topic == nil || f.topic.ID != id {
		return store.ErrNotFound
	}
	if f.updateErr != nil {
		return f.updateErr
	}
	f.savedDrip = &d
	f.topic.Drip = d
	return nil
}

func (f *fakeTopicStore) SetTopicActive(_ context.Context, _ string, active bool) error {
	f.topic.IsActive = active
	return nil
}

type fakeRescorer struct {
	calls  int
	topics []string
}

func (r *fakeRescorer) RescoreTopic(_ context.Context, topicID string) (*functions.Result, error) {
	r.calls++
	r.topics = append(r.topics, topicID)
	return &functions.Result{Success: true}, nil
}

func seasideTopic() *models.Topic {
	return &models.Topic{
		ID:       "t1",
		Name:     "Seaside Gazette",
		Slug:     "seaside",
		Keywords: dbtypes.StringSlice{"pier", "harbour"},
		IsActive: true,
	}
}

func TestAddKeywordPersistsAndRescores(t *testing.T) {
	fs := &fakeTopicStore{topic: seasideTopic()}
	rescorer := &fakeRescorer{}
	svc := NewTopicService(fs, rescorer, nil)

	var observed []string
	svc.OnListChange(func(_, field string, values []string) {
		observed = values
		if field != ListKeywords {
			t.Errorf("observer saw field %q", field)
		}
	})

	list, err := svc.AddListEntry(context.Background(), "t1", ListKeywords, "  lighthouse ")
	if err != nil {
		t.Fatalf("AddListEntry: %v", err)
	}

	want := []string{"pier", "harbour", "lighthouse"}
	if !reflect.DeepEqual(list, want) {
		t.Errorf("returned list = %v, want %v", list, want)
	}
	if !reflect.DeepEqual(fs.savedValues, want) {
		t.Errorf("persisted list = %v, want %v", fs.savedValues, want)
	}
	if rescorer.calls != 1 || rescorer.topics[0] != "t1" {
		t.Errorf("rescore calls = %d for %v, want one for t1", rescorer.calls, rescorer.topics)
	}
	if !reflect.DeepEqual(observed, want) {
		t.Errorf("observer saw %v, want %v", observed, want)
	}
}

func TestAddDuplicateKeywordIsNoOp(t *testing.T) {
	fs := &fakeTopicStore{topic: seasideTopic()}
	rescorer := &fakeRescorer{}
	svc := NewTopicService(fs, rescorer, nil)

	list, err := svc.AddListEntry(context.Background(), "t1", ListKeywords, "PIER")
	if err != nil {
		t.Fatalf("AddListEntry: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("duplicate add grew the list to %v", list)
	}
	if fs.updateCalls != 0 {
		t.Error("duplicate add must not hit the store")
	}
	if rescorer.calls != 0 {
		t.Error("duplicate add must not trigger a rescore")
	}
}

func TestAddKeywordFailureReturnsPreAttemptList(t *testing.T) {
	fs := &fakeTopicStore{topic: seasideTopic(), updateErr: errors.New("write refused")}
	rescorer := &fakeRescorer{}
	svc := NewTopicService(fs, rescorer, nil)

	list, err := svc.AddListEntry(context.Background(), "t1", ListKeywords, "lighthouse")
	if err == nil {
		t.Fatal("expected the add to fail")
	}

	want := []string{"pier", "harbour"}
	if !reflect.DeepEqual(list, want) {
		t.Errorf("after failure the visible list = %v, want the pre-attempt %v", list, want)
	}
	if !reflect.DeepEqual([]string(fs.topic.Keywords), want) {
		t.Errorf("stored list changed on failure: %v", fs.topic.Keywords)
	}
	if rescorer.calls != 0 {
		t.Error("failed write must not trigger a rescore")
	}
}

func TestRemoveKeywordMatchesCaseInsensitively(t *testing.T) {
	fs := &fakeTopicStore{topic: seasideTopic()}
	svc := NewTopicService(fs, &fakeRescorer{}, nil)

	list, err := svc.RemoveListEntry(context.Background(), "t1", ListKeywords, "Harbour")
	if err != nil {
		t.Fatalf("RemoveListEntry: %v", err)
	}
	if !reflect.DeepEqual(list, []string{"pier"}) {
		t.Errorf("list = %v, want [pier]", list)
	}
}

func TestRemoveAbsentKeywordIsNoOp(t *testing.T) {
	fs := &fakeTopicStore{topic: seasideTopic()}
	rescorer := &fakeRescorer{}
	svc := NewTopicService(fs, rescorer, nil)

	list, err := svc.RemoveListEntry(context.Background(), "t1", ListKeywords, "castle")
	if err != nil {
		t.Fatalf("RemoveListEntry: %v", err)
	}
	if len(list) != 2 || fs.updateCalls != 0 || rescorer.calls != 0 {
		t.Errorf("removing an absent value must change nothing: list=%v calls=%d rescores=%d",
			list, fs.updateCalls, rescorer.calls)
	}
}

func TestUnknownListField(t *testing.T) {
	svc := NewTopicService(&fakeTopicStore{topic: seasideTopic()}, nil, nil)

	_, err := svc.AddListEntry(context.Background(), "t1", "colours", "blue")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestCreateTopicValidation(t *testing.T) {
	svc := NewTopicService(&fakeTopicStore{}, nil, nil)

	cases := []struct {
		name  string
		topic models.Topic
	}{
		{"missing name", models.Topic{Slug: "x"}},
		{"missing slug", models.Topic{Name: "X"}},
		{"slug with spaces", models.Topic{Name: "X", Slug: "bad slug"}},
		{"slug with slash", models.Topic{Name: "X", Slug: "bad/slug"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			topic := tc.topic
			if err := svc.CreateTopic(context.Background(), &topic); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}

	good := models.Topic{Name: "Seaside", Slug: "SEASIDE"}
	if err := svc.CreateTopic(context.Background(), &good); err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	if good.Slug != "seaside" {
		t.Errorf("slug not normalized: %q", good.Slug)
	}
	if good.Drip != models.DefaultDripSettings() {
		t.Errorf("new topic drip = %+v, want defaults", good.Drip)
	}
}

func TestSetDripValidatesAndPersists(t *testing.T) {
	fs := &fakeTopicStore{topic: seasideTopic()}
	svc := NewTopicService(fs, nil, nil)
	ctx := context.Background()

	bad := []models.DripSettings{
		{Enabled: true, PerDay: 0, WindowStart: 7, WindowEnd: 21},
		{Enabled: true, PerDay: -1, WindowStart: 7, WindowEnd: 21},
		{Enabled: true, PerDay: 3, WindowStart: 24, WindowEnd: 21},
		{Enabled: true, PerDay: 3, WindowStart: 7, WindowEnd: -1},
	}
	for i, d := range bad {
		if err := svc.SetDrip(ctx, "t1", d); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("case %d err = %v, want ErrInvalidInput", i, err)
		}
	}
	if fs.savedDrip != nil {
		t.Fatal("invalid drip settings must not be persisted")
	}

	want := models.DripSettings{Enabled: true, PerDay: 5, WindowStart: 9, WindowEnd: 17}
	if err := svc.SetDrip(ctx, "t1", want); err != nil {
		t.Fatalf("SetDrip: %v", err)
	}
	if fs.savedDrip == nil || *fs.savedDrip != want {
		t.Errorf("persisted drip = %+v, want %+v", fs.savedDrip, want)
	}

	if err := svc.SetDrip(ctx, "missing", want); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown topic err = %v, want ErrNotFound", err)
	}
}
