package core

import (
	"strings"

	"tagarr/internal/clients/arr"
)

const resolution4K = 2160

// Aggregation is what the tagger needs to know about an entity's files.
type Aggregation struct {
	// Score is the lowest score reported by any file, nil when none reported one.
	Score     *int
	Has4K     bool
	HasMotong bool
}

// Aggregate folds file records into a single judgment. A series is only as
// good as its worst episode, so the minimum score wins.
func Aggregate(files []arr.FileRecord, group string) Aggregation {
	var agg Aggregation
	for _, f := range files {
		if f.Score != nil && (agg.Score == nil || *f.Score < *agg.Score) {
			s := *f.Score
			agg.Score = &s
		}
		if f.Resolution != nil && *f.Resolution == resolution4K {
			agg.Has4K = true
		}
		if f.ReleaseGroup != nil && group != "" && strings.EqualFold(*f.ReleaseGroup, group) {
			agg.HasMotong = true
		}
	}
	return agg
}

// Classification is the full tagging decision input for one entity.
type Classification struct {
	Label     Label
	Has4K     bool
	HasMotong bool
}

func Classified(agg Aggregation, threshold int) Classification {
	return Classification{
		Label:     Classify(agg.Score, threshold),
		Has4K:     agg.Has4K,
		HasMotong: agg.HasMotong,
	}
}
