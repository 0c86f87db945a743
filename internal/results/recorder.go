package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/disk"

	"tagarr/internal/database/models"
	"tagarr/internal/utils"
)

const filePrefix = "updates_"

// Columns is the header of the CSV form.
var Columns = []string{"id", "title", "old_tags", "new_tags", "score", "threshold", "success"}

// Recorder writes one results file per cycle and keeps a bounded history.
type Recorder struct {
	Format    string
	Directory string
	Keep      int
	MinFreeMB uint64

	logger *utils.Logger
	now    func() time.Time
}

func NewRecorder(format, directory string, keep int, minFreeMB uint64, logger *utils.Logger) *Recorder {
	return &Recorder{
		Format:    strings.ToLower(format),
		Directory: directory,
		Keep:      keep,
		MinFreeMB: minFreeMB,
		logger:    logger,
		now:       time.Now,
	}
}

// Flush writes records and returns the path of the new file. Nothing is
// written for an empty batch and the returned path is empty.
func (r *Recorder) Flush(records []models.AuditRecord) (string, error) {
	if len(records) == 0 {
		r.logger.Info("No updates to write - skipping results file")
		return "", nil
	}

	if err := os.MkdirAll(r.Directory, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}
	if err := r.checkFreeSpace(); err != nil {
		return "", err
	}

	ext := r.extension()
	path := filepath.Join(r.Directory, fmt.Sprintf("%s%s.%s", filePrefix, r.now().Format("20060102_150405"), ext))

	var err error
	if ext == "csv" {
		err = writeCSV(path, records)
	} else {
		err = writeJSON(path, records)
	}
	if err != nil {
		return "", fmt.Errorf("failed to write results to %s: %w", path, err)
	}
	r.logger.Info("Wrote update results to", path)

	r.cleanup(filePrefix + "*." + ext)
	return path, nil
}

func (r *Recorder) extension() string {
	if r.Format == "csv" {
		return "csv"
	}
	return "json"
}

func (r *Recorder) checkFreeSpace() error {
	if r.MinFreeMB == 0 {
		return nil
	}
	usage, err := disk.Usage(r.Directory)
	if err != nil {
		r.logger.Warn("Could not determine free space for", r.Directory, ":", err)
		return nil
	}
	if free := usage.Free / (1024 * 1024); free < r.MinFreeMB {
		return fmt.Errorf("not enough space in %s: %d MB free, %d MB required", r.Directory, free, r.MinFreeMB)
	}
	return nil
}

// cleanup keeps only the newest Keep files matching pattern.
func (r *Recorder) cleanup(pattern string) {
	matches, err := filepath.Glob(filepath.Join(r.Directory, pattern))
	if err != nil {
		r.logger.Warn("Failed to list old results:", err)
		return
	}

	type entry struct {
		path  string
		mtime time.Time
	}
	entries := make([]entry, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		entries = append(entries, entry{m, info.ModTime()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].mtime.Equal(entries[j].mtime) {
			return entries[i].path > entries[j].path
		}
		return entries[i].mtime.After(entries[j].mtime)
	})

	keep := r.Keep
	if keep <= 0 {
		keep = 5
	}
	for i := keep; i < len(entries); i++ {
		if err := os.Remove(entries[i].path); err != nil {
			r.logger.Warn("Failed to remove", entries[i].path, ":", err)
			continue
		}
		r.logger.Debug("Removed old file:", entries[i].path)
	}
}

func writeJSON(path string, records []models.AuditRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func writeCSV(path string, records []models.AuditRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(Row(rec)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// Row renders rec in column order. Tag lists are joined with "; " and a
// missing score is left empty.
func Row(rec models.AuditRecord) []string {
	score := ""
	if rec.Score != nil {
		score = strconv.Itoa(*rec.Score)
	}
	return []string{
		strconv.Itoa(rec.ID),
		rec.Title,
		strings.Join(rec.OldTags, "; "),
		strings.Join(rec.NewTags, "; "),
		score,
		strconv.Itoa(rec.Threshold),
		strconv.FormatBool(rec.Success),
	}
}
