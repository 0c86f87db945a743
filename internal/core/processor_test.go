package core_test

import (
	"context"
	"reflect"
	"testing"

	"tagarr/internal/clients/arr"
	"tagarr/internal/core"
	"tagarr/internal/utils"
)

func TestProcessorMovieScenario(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.tags = managedTags()
	movie := arr.Entity{ID: 7, Title: "Heat", Tags: []int{11, 1}, FileID: 70}
	api.entities = []arr.Entity{movie}
	api.files[7] = []arr.FileRecord{{Score: intPtr(150), Resolution: intPtr(2160), ReleaseGroup: strPtr("MOTONG")}}
	vocab := mustVocabulary(t, api)

	p := core.NewProcessor(api, utils.NopLogger(), "movie", false)
	opts := core.Options{Threshold: 100, MotongEnabled: true, MotongGroup: "motong", K4Enabled: true}
	rec := p.Process(context.Background(), movie, vocab, opts)
	if rec == nil {
		t.Fatal("expected an audit record")
	}
	if !rec.Success {
		t.Fatal("expected successful write")
	}
	if got := sorted(api.updates[7]); !reflect.DeepEqual(got, []int{1, 12, 14, 15}) {
		t.Fatalf("unexpected written tags %v", got)
	}
	if !reflect.DeepEqual(rec.OldTags, []string{"negative_score", "favorite"}) {
		t.Fatalf("unexpected old tags %v", rec.OldTags)
	}
	if !reflect.DeepEqual(rec.NewTags, []string{"favorite", "positive_score", "motong", "4k"}) {
		t.Fatalf("unexpected new tags %v", rec.NewTags)
	}
	if rec.Score == nil || *rec.Score != 150 || rec.Threshold != 100 {
		t.Fatalf("unexpected score/threshold %v/%d", rec.Score, rec.Threshold)
	}
}

func TestProcessorSkipsUnchangedEntity(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.tags = managedTags()
	vocab := mustVocabulary(t, api)

	movie := arr.Entity{ID: 3, Title: "Alien", Tags: []int{13, 1}}
	p := core.NewProcessor(api, utils.NopLogger(), "movie", false)
	if rec := p.Process(context.Background(), movie, vocab, core.Options{Threshold: 100}); rec != nil {
		t.Fatalf("expected no record, got %+v", rec)
	}
	if api.updateCount() != 0 {
		t.Fatal("expected no write for an unchanged entity")
	}
}

func TestProcessorMissingFileIsNoScore(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.tags = managedTags()
	vocab := mustVocabulary(t, api)

	movie := arr.Entity{ID: 4, Title: "Dune", Tags: []int{12}}
	p := core.NewProcessor(api, utils.NopLogger(), "movie", false)
	rec := p.Process(context.Background(), movie, vocab, core.Options{Threshold: 100})
	if rec == nil || !rec.Success {
		t.Fatalf("expected successful record, got %+v", rec)
	}
	if rec.Score != nil {
		t.Fatalf("expected absent score, got %d", *rec.Score)
	}
	if !reflect.DeepEqual(api.updates[4], []int{13}) {
		t.Fatalf("expected no_score only, got %v", api.updates[4])
	}
}

func TestProcessorFetchFailureTreatedAsNoFiles(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.tags = managedTags()
	api.fileErr[5] = errBoom
	vocab := mustVocabulary(t, api)

	series := arr.Entity{ID: 5, Title: "Severance", Tags: []int{11}}
	p := core.NewProcessor(api, utils.NopLogger(), "series", false)
	rec := p.Process(context.Background(), series, vocab, core.Options{Threshold: 100})
	if rec == nil || !rec.Success {
		t.Fatalf("expected successful record, got %+v", rec)
	}
	if !reflect.DeepEqual(rec.NewTags, []string{"no_score"}) {
		t.Fatalf("unexpected new tags %v", rec.NewTags)
	}
}

func TestProcessorWriteFailureIsAudited(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.tags = managedTags()
	api.updateErr[6] = errBoom
	vocab := mustVocabulary(t, api)

	movie := arr.Entity{ID: 6, Title: "Moon"}
	p := core.NewProcessor(api, utils.NopLogger(), "movie", false)
	rec := p.Process(context.Background(), movie, vocab, core.Options{Threshold: 100})
	if rec == nil {
		t.Fatal("expected a record for the failed write")
	}
	if rec.Success {
		t.Fatal("expected Success=false")
	}
}

func TestProcessorDryRunDoesNotWrite(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.tags = managedTags()
	vocab := mustVocabulary(t, api)

	movie := arr.Entity{ID: 8, Title: "Ran"}
	p := core.NewProcessor(api, utils.NopLogger(), "movie", true)
	rec := p.Process(context.Background(), movie, vocab, core.Options{Threshold: 100})
	if rec == nil {
		t.Fatal("expected a planned record")
	}
	if rec.Success {
		t.Fatal("expected Success=false for a dry run")
	}
	if api.updateCount() != 0 {
		t.Fatal("dry run must not write")
	}
}
