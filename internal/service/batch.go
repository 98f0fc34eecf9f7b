package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dpshade/pocket-meta/internal/errors"
	"github.com/dpshade/pocket-meta/internal/logger"
	"github.com/dpshade/pocket-meta/internal/metrics"
	"github.com/dpshade/pocket-meta/internal/models"
)

// DefaultMaxConcurrent is the batch window size when none is given
const DefaultMaxConcurrent = 3

// BatchOptions controls a batch run
type BatchOptions struct {
	ReplaceExisting bool
	MaxConcurrent   int
	// SkipUnchanged skips documents whose body matches the generation index
	SkipUnchanged bool
	// OnProgress is called before each document starts, never concurrently
	OnProgress func(current, total int, label string)
}

type batchStatus int

const (
	batchSucceeded batchStatus = iota
	batchFailed
	batchSkipped
)

type batchSlot struct {
	status  batchStatus
	message string
}

// pathed documents are keyed by their full path in the generation index
type pathed interface {
	Path() string
}

// BatchGenerate applies one template to every document. Documents run in
// fixed windows of MaxConcurrent; the next window starts once the previous
// one has finished. A failing document is recorded and never stops the run.
func (s *Service) BatchGenerate(ctx context.Context, docs []Document, templateID string, opts BatchOptions) (models.BatchResult, error) {
	tmpl, ok := s.templates.Get(templateID)
	if !ok {
		return models.BatchResult{}, errors.TemplateNotFoundError(templateID)
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}

	log := logger.With("template", tmpl.ID, "documents", len(docs), "window", opts.MaxConcurrent)
	log.Info("batch started")

	slots := make([]batchSlot, len(docs))
	total := len(docs)

	for start := 0; start < total; start += opts.MaxConcurrent {
		end := min(start+opts.MaxConcurrent, total)

		if err := ctx.Err(); err != nil {
			for i := start; i < total; i++ {
				slots[i] = batchSlot{status: batchFailed, message: errors.UserMessage(errors.Wrap(err, errors.ErrCodeTimeout, "batch cancelled"))}
			}
			break
		}

		eg, ectx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			idx := i
			doc := docs[i]
			if opts.OnProgress != nil {
				opts.OnProgress(idx+1, total, doc.Name())
			}
			eg.Go(func() error {
				slots[idx] = s.batchOne(ectx, doc, tmpl, opts)
				return nil
			})
		}
		_ = eg.Wait()
	}

	var result models.BatchResult
	for i, slot := range slots {
		switch slot.status {
		case batchSucceeded:
			result.Success++
			metrics.BatchDocuments.WithLabelValues(metrics.StatusSuccess).Inc()
		case batchSkipped:
			result.Skipped++
			metrics.BatchDocuments.WithLabelValues(metrics.StatusSkipped).Inc()
		default:
			result.Failed++
			result.Errors = append(result.Errors, models.BatchError{Document: indexKey(docs[i]), Message: slot.message})
			metrics.BatchDocuments.WithLabelValues(metrics.StatusFailure).Inc()
		}
	}

	if s.index != nil && result.Success > 0 {
		if err := s.index.Save(); err != nil {
			log.Warn("failed to save generation index", "error", err)
		}
	}

	log.Info("batch finished", "success", result.Success, "failed", result.Failed, "skipped", result.Skipped)
	return result, nil
}

func (s *Service) batchOne(ctx context.Context, doc Document, tmpl models.Template, opts BatchOptions) batchSlot {
	key := indexKey(doc)

	if opts.SkipUnchanged && s.index != nil {
		text, err := doc.Read(ctx)
		if err == nil && s.index.Unchanged(key, text) {
			logger.Debug("document unchanged, skipping", "document", doc.Name())
			return batchSlot{status: batchSkipped}
		}
	}

	outcome, err := s.generateWithTemplate(ctx, doc, tmpl, "", false, opts.ReplaceExisting)
	if err != nil {
		msg := outcome.Message
		if msg == "" {
			msg = errors.UserMessage(err)
		}
		return batchSlot{status: batchFailed, message: msg}
	}

	if s.index != nil {
		if text, err := doc.Read(ctx); err == nil {
			s.index.Record(key, text, tmpl.ID)
		}
	}
	return batchSlot{status: batchSucceeded}
}

func indexKey(doc Document) string {
	if p, ok := doc.(pathed); ok {
		return p.Path()
	}
	return doc.Name()
}
