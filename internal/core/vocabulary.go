package core

import (
	"context"
	"fmt"
	"strconv"

	"tagarr/internal/clients/arr"
	"tagarr/internal/utils"
)

// TagCreator is the part of the API needed to complete the vocabulary.
type TagCreator interface {
	CreateTag(ctx context.Context, label, color string) (arr.Tag, error)
}

// Vocabulary resolves managed labels to tag ids and any tag id back to its
// label. It is built once per cycle from a single tag list fetch.
type Vocabulary struct {
	ids    map[Label]int
	labels map[int]string
}

// EnsureVocabulary creates every managed tag missing from existing and
// returns the complete mapping. Existing tags are never modified. A create
// failure aborts: reconciliation cannot run without every id.
func EnsureVocabulary(ctx context.Context, api TagCreator, existing []arr.Tag, logger *utils.Logger) (*Vocabulary, error) {
	v := &Vocabulary{
		ids:    make(map[Label]int, len(ManagedTags)),
		labels: make(map[int]string, len(existing)+len(ManagedTags)),
	}
	for _, t := range existing {
		v.labels[t.ID] = t.Label
		if IsManaged(t.Label) {
			v.ids[Label(t.Label)] = t.ID
		}
	}

	for _, mt := range ManagedTags {
		if _, ok := v.ids[mt.Label]; ok {
			continue
		}
		logger.Info("Creating missing tag:", mt.Label)
		created, err := api.CreateTag(ctx, string(mt.Label), mt.Color)
		if err != nil {
			return nil, fmt.Errorf("vocabulary incomplete: %w", err)
		}
		v.ids[mt.Label] = created.ID
		v.labels[created.ID] = string(mt.Label)
	}
	return v, nil
}

func (v *Vocabulary) ID(label Label) int {
	return v.ids[label]
}

// IsManagedID reports whether id belongs to one of the managed labels.
func (v *Vocabulary) IsManagedID(id int) bool {
	label, ok := v.labels[id]
	return ok && IsManaged(label)
}

// Names renders tag ids as labels. Ids unknown to the tag list are rendered
// as their number.
func (v *Vocabulary) Names(ids []int) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if label, ok := v.labels[id]; ok {
			names = append(names, label)
		} else {
			names = append(names, strconv.Itoa(id))
		}
	}
	return names
}
