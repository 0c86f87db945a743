package core_test

import (
	"context"
	"errors"
	"sync"

	"tagarr/internal/clients/arr"
)

// fakeAPI is an in-memory MediaAPI.
type fakeAPI struct {
	mu sync.Mutex

	tags     []arr.Tag
	entities []arr.Entity
	files    map[int][]arr.FileRecord

	listTagsErr error
	createErr   error
	fileErr     map[int]error
	updateErr   map[int]error

	created []arr.Tag
	updates map[int][]int
	listed  int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		files:     make(map[int][]arr.FileRecord),
		fileErr:   make(map[int]error),
		updateErr: make(map[int]error),
		updates:   make(map[int][]int),
	}
}

func (f *fakeAPI) ListTags(ctx context.Context) ([]arr.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listTagsErr != nil {
		return nil, f.listTagsErr
	}
	return append([]arr.Tag(nil), f.tags...), nil
}

func (f *fakeAPI) CreateTag(ctx context.Context, label, color string) (arr.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return arr.Tag{}, f.createErr
	}
	t := arr.Tag{ID: 100 + len(f.tags), Label: label, Color: color}
	f.tags = append(f.tags, t)
	f.created = append(f.created, t)
	return t, nil
}

func (f *fakeAPI) ListEntities(ctx context.Context) ([]arr.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed++
	return append([]arr.Entity(nil), f.entities...), nil
}

func (f *fakeAPI) FetchFiles(ctx context.Context, e arr.Entity) ([]arr.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fileErr[e.ID]; err != nil {
		return nil, err
	}
	return f.files[e.ID], nil
}

func (f *fakeAPI) UpdateEntity(ctx context.Context, e arr.Entity, tagIDs []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[e.ID]; err != nil {
		return err
	}
	f.updates[e.ID] = append([]int(nil), tagIDs...)
	for i := range f.entities {
		if f.entities[i].ID == e.ID {
			f.entities[i].Tags = append([]int(nil), tagIDs...)
		}
	}
	return nil
}

func (f *fakeAPI) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

var errBoom = errors.New("boom")

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

// managedTags returns the five managed tags with fixed ids 11..15 plus an
// unmanaged "favorite" tag with id 1.
func managedTags() []arr.Tag {
	return []arr.Tag{
		{ID: 1, Label: "favorite"},
		{ID: 11, Label: "negative_score"},
		{ID: 12, Label: "positive_score"},
		{ID: 13, Label: "no_score"},
		{ID: 14, Label: "motong"},
		{ID: 15, Label: "4k"},
	}
}
