package service

import (
	"context"

	"github.com/dpshade/pocket-meta/internal/config"
	"github.com/dpshade/pocket-meta/internal/errors"
	"github.com/dpshade/pocket-meta/internal/generation"
	"github.com/dpshade/pocket-meta/internal/logger"
	"github.com/dpshade/pocket-meta/internal/storage"
	"github.com/dpshade/pocket-meta/internal/templates"
	"github.com/dpshade/pocket-meta/internal/usage"
)

const usageDBFile = "usage.db"

// NewFromConfig builds a service backed by the library directory in cfg:
// custom templates, the SQLite usage log and the generation index
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Service, error) {
	store, err := storage.NewStorage(cfg.Dir)
	if err != nil {
		return nil, errors.StorageError("open library", err)
	}
	if err := store.InitLibrary(); err != nil {
		return nil, errors.StorageError("initialize library", err)
	}

	usageLog, err := usage.NewStore(store.Path(usageDBFile))
	if err != nil {
		return nil, errors.StorageError("open usage log", err)
	}

	index := storage.NewGenerationIndex(store.GetBaseDir())
	if err := index.Load(); err != nil {
		logger.Warn("failed to load generation index", "error", err)
	}

	svc, err := New(ctx, Options{
		Templates:       templates.NewStore(),
		Generator:       generation.NewClient(cfg.API),
		Storage:         store,
		Usage:           usageLog,
		Index:           index,
		ReplaceExisting: cfg.Generation.ReplaceExisting,
		StrictYAML:      cfg.Generation.StrictYAML,
		Metrics:         cfg.Metrics.Enabled,
	})
	if err != nil {
		usageLog.Close()
		return nil, err
	}
	svc.closers = append(svc.closers, usageLog.Close)

	logger.Debug("service ready", "dir", store.GetBaseDir(), "model", cfg.API.Model, "templates", len(svc.ListTemplates()))
	return svc, nil
}

// Close releases the usage log
func (s *Service) Close() error {
	var first error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}
