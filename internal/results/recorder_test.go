package results_test

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"tagarr/internal/database/models"
	"tagarr/internal/results"
	"tagarr/internal/utils"
)

func sampleRecords() []models.AuditRecord {
	score := 150
	return []models.AuditRecord{
		{ID: 1, Title: "Heat", OldTags: []string{"negative_score", "favorite"}, NewTags: []string{"favorite", "positive_score", "4k"}, Score: &score, Threshold: 100, Success: true},
		{ID: 2, Title: "Alien, The Director's Cut", OldTags: []string{}, NewTags: []string{"no_score"}, Threshold: 100, Success: false},
	}
}

func TestFlushJSON(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	r := results.NewRecorder("JSON", dir, 5, 0, utils.NopLogger())

	path, err := r.Flush(sampleRecords())
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "updates_") || !strings.HasSuffix(base, ".json") {
		t.Fatalf("unexpected file name %s", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	var got []map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	for _, key := range []string{"id", "title", "old_tags", "new_tags", "score", "threshold", "success"} {
		if _, ok := got[0][key]; !ok {
			t.Fatalf("missing key %s in %v", key, got[0])
		}
	}
	if got[1]["score"] != nil {
		t.Fatalf("expected null score, got %v", got[1]["score"])
	}
}

func TestFlushCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := results.NewRecorder("csv", dir, 5, 0, utils.NopLogger())

	path, err := r.Flush(sampleRecords())
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if filepath.Ext(path) != ".csv" {
		t.Fatalf("expected csv file, got %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open results: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if !reflect.DeepEqual(rows[0], results.Columns) {
		t.Fatalf("unexpected header %v", rows[0])
	}
	want := []string{"1", "Heat", "negative_score; favorite", "favorite; positive_score; 4k", "150", "100", "true"}
	if !reflect.DeepEqual(rows[1], want) {
		t.Fatalf("unexpected row %v", rows[1])
	}
	if rows[2][1] != "Alien, The Director's Cut" || rows[2][4] != "" || rows[2][6] != "false" {
		t.Fatalf("unexpected row %v", rows[2])
	}
}

func TestFlushEmptyBatchWritesNothing(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "never")
	r := results.NewRecorder("json", dir, 5, 0, utils.NopLogger())

	path, err := r.Flush(nil)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if path != "" {
		t.Fatalf("expected no path, got %s", path)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected directory to stay absent, got %v", err)
	}
}

func TestFlushKeepsNewestFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		name := filepath.Join(dir, "updates_2024010"+string(rune('1'+i))+"_000000.json")
		if err := os.WriteFile(name, []byte("[]"), 0644); err != nil {
			t.Fatalf("seed: %v", err)
		}
		mtime := old.Add(time.Duration(i) * time.Hour)
		if err := os.Chtimes(name, mtime, mtime); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	// Files of the other format and unrelated files are left alone.
	other := filepath.Join(dir, "updates_20240101_000000.csv")
	unrelated := filepath.Join(dir, "notes.txt")
	for _, p := range []string{other, unrelated} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	r := results.NewRecorder("json", dir, 3, 0, utils.NopLogger())
	path, err := r.Flush(sampleRecords())
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "updates_*.json"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 json files kept, got %v", matches)
	}
	kept := map[string]bool{}
	for _, m := range matches {
		kept[filepath.Base(m)] = true
	}
	for _, want := range []string{filepath.Base(path), "updates_20240106_000000.json", "updates_20240105_000000.json"} {
		if !kept[want] {
			t.Fatalf("expected %s to be kept, have %v", want, matches)
		}
	}
	for _, p := range []string{other, unrelated} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s to survive: %v", p, err)
		}
	}
}

func TestFlushRefusesWhenDiskIsFull(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := results.NewRecorder("json", dir, 5, 1<<50, utils.NopLogger())
	if _, err := r.Flush(sampleRecords()); err == nil {
		t.Fatal("expected an error when the free space requirement cannot be met")
	}
}
