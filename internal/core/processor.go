package core

import (
	"context"

	"tagarr/internal/clients/arr"
	"tagarr/internal/database/models"
	"tagarr/internal/utils"
)

// MediaAPI is everything the engine needs from Radarr or Sonarr.
type MediaAPI interface {
	TagCreator
	ListEntities(ctx context.Context) ([]arr.Entity, error)
	ListTags(ctx context.Context) ([]arr.Tag, error)
	FetchFiles(ctx context.Context, e arr.Entity) ([]arr.FileRecord, error)
	UpdateEntity(ctx context.Context, e arr.Entity, tagIDs []int) error
}

// Processor runs fetch, aggregate, classify, reconcile and write for one entity.
type Processor struct {
	api    MediaAPI
	logger *utils.Logger
	noun   string
	dryRun bool
}

func NewProcessor(api MediaAPI, logger *utils.Logger, noun string, dryRun bool) *Processor {
	if noun == "" {
		noun = "entity"
	}
	return &Processor{api: api, logger: logger, noun: noun, dryRun: dryRun}
}

// Process returns nil when the entity's tags are already correct. Otherwise
// it writes the new tags and returns an audit record, also when the write
// failed.
func (p *Processor) Process(ctx context.Context, e arr.Entity, vocab *Vocabulary, opts Options) *models.AuditRecord {
	files, err := p.api.FetchFiles(ctx, e)
	if err != nil {
		p.logger.Warn("Failed to get files for", e.Title, ":", err)
		files = nil
	}

	agg := Aggregate(files, opts.MotongGroup)
	c := Classified(agg, opts.Threshold)
	p.logger.Debug(p.noun+":", e.Title, "- Score:", formatScore(agg.Score), "- Tag:", c.Label)

	next, changed := Reconcile(e.Tags, vocab, c, opts)
	if !changed {
		return nil
	}

	rec := &models.AuditRecord{
		ID:        e.ID,
		Title:     e.Title,
		OldTags:   vocab.Names(e.Tags),
		NewTags:   vocab.Names(next),
		Score:     agg.Score,
		Threshold: opts.Threshold,
	}

	if p.dryRun {
		p.logger.Info("Dry run, would update tags for", e.Title)
		return rec
	}

	if err := p.api.UpdateEntity(ctx, e, next); err != nil {
		p.logger.Error("Failed to update", p.noun, e.ID, ":", err)
		return rec
	}
	rec.Success = true
	p.logger.Debug("Updated tags for", e.Title)
	return rec
}

func formatScore(score *int) interface{} {
	if score == nil {
		return "none"
	}
	return *score
}
