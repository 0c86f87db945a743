package models_test

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"tagarr/internal/database"
	"tagarr/internal/database/models"
	"tagarr/internal/utils"
)

func newRepository(t *testing.T) *models.RunRepository {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "data", "tagarr.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.RunMigrations(db, utils.NopLogger()); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	// Migrations are idempotent.
	if err := database.RunMigrations(db, utils.NopLogger()); err != nil {
		t.Fatalf("RunMigrations twice: %v", err)
	}
	return models.NewRunRepository(db)
}

func sampleRun(id string, started time.Time) *models.Run {
	score := -20
	return &models.Run{
		ID:          id,
		Kind:        "movie",
		Status:      models.RunCompleted,
		StartedAt:   started,
		FinishedAt:  started.Add(90 * time.Second),
		Total:       3,
		Updated:     1,
		Failed:      1,
		ResultsFile: "results/updates_20250101_000000.json",
		Records: []models.AuditRecord{
			{ID: 1, Title: "Heat", OldTags: []string{"favorite"}, NewTags: []string{"favorite", "negative_score"}, Score: &score, Threshold: 100, Success: true},
			{ID: 2, Title: "Alien", OldTags: []string{}, NewTags: []string{"no_score"}, Threshold: 100, Success: false},
		},
	}
}

func TestCreateAndGetByID(t *testing.T) {
	t.Parallel()

	repo := newRepository(t)
	started := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	run := sampleRun("run-1", started)
	if err := repo.Create(run); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID("run-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("expected the run")
	}
	if got.Kind != "movie" || got.Status != models.RunCompleted || got.Updated != 1 || got.Failed != 1 {
		t.Fatalf("unexpected run %+v", got)
	}
	if !got.StartedAt.Equal(started) || got.Duration() != 90*time.Second {
		t.Fatalf("unexpected times %s / %s", got.StartedAt, got.Duration())
	}
	if !reflect.DeepEqual(got.Records, run.Records) {
		t.Fatalf("records differ:\n got %+v\nwant %+v", got.Records, run.Records)
	}

	missing, err := repo.GetByID("nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for a missing run, got %v, %v", missing, err)
	}
}

func TestGetRecentAndPrune(t *testing.T) {
	t.Parallel()

	repo := newRepository(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d"} {
		if err := repo.Create(sampleRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	recent, err := repo.GetRecent(2)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "d" || recent[1].ID != "c" {
		t.Fatalf("unexpected recent runs %+v", recent)
	}
	if recent[0].Records != nil {
		t.Fatal("GetRecent must not load records")
	}

	n, err := repo.Prune(2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 runs pruned, got %d", n)
	}
	if run, err := repo.GetByID("a"); err != nil || run != nil {
		t.Fatalf("expected run a to be gone, got %v, %v", run, err)
	}
	kept, err := repo.GetByID("d")
	if err != nil || kept == nil || len(kept.Records) != 2 {
		t.Fatalf("expected run d with records, got %+v, %v", kept, err)
	}
}
