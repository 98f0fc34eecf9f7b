package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dpshade/pocket-meta/internal/errors"
	"github.com/dpshade/pocket-meta/internal/frontmatter"
	"github.com/dpshade/pocket-meta/internal/logger"
	"github.com/dpshade/pocket-meta/internal/metrics"
	"github.com/dpshade/pocket-meta/internal/models"
	"github.com/dpshade/pocket-meta/internal/storage"
	"github.com/dpshade/pocket-meta/internal/templates"
	"github.com/dpshade/pocket-meta/internal/usage"
)

// Document is a note the service can read and rewrite
type Document interface {
	Name() string
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, content string) error
}

// Generator performs one generation request
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) models.GenerationResult
	Config() models.APIConfig
}

// UsageLog persists completed requests
type UsageLog interface {
	Record(ctx context.Context, rec usage.Record) error
	Reset(ctx context.Context, at time.Time) error
	Stats(ctx context.Context) (models.UsageStats, error)
}

// State is a step of a single generation request
type State string

const (
	StateIdle                  State = "idle"
	StateExtractingBody        State = "extracting_body"
	StateSelectingTemplate     State = "selecting_template"
	StateAutoTemplateChosen    State = "auto_template_chosen"
	StateAwaitingModelResponse State = "awaiting_model_response"
	StatePreviewing            State = "previewing"
	StateInserting             State = "inserting"
	StateDone                  State = "done"
	StateErrored               State = "errored"
)

// GenerationOutcome is where a request stopped and what it produced.
// Previewing outcomes carry Metadata for the caller to confirm and pass to
// InsertMetadata; SelectingTemplate outcomes carry Suggestions.
type GenerationOutcome struct {
	State       State                       `json:"state"`
	Document    string                      `json:"document"`
	Template    *models.Template            `json:"template,omitempty"`
	Suggestions []models.TemplateSuggestion `json:"suggestions,omitempty"`
	Result      models.GenerationResult     `json:"result"`
	Metadata    string                      `json:"metadata,omitempty"`
	Inserted    bool                        `json:"inserted"`
	Message     string                      `json:"message,omitempty"`
}

// Options wires the service. Templates and Generator are required.
type Options struct {
	Templates       *templates.Store
	Generator       Generator
	Storage         *storage.Storage
	Usage           UsageLog
	Index           *storage.GenerationIndex
	ReplaceExisting bool
	StrictYAML      bool
	Metrics         bool
	Now             func() time.Time
}

// Service orchestrates metadata generation for documents
type Service struct {
	templates       *templates.Store
	generator       Generator
	storage         *storage.Storage
	usage           UsageLog
	index           *storage.GenerationIndex
	replaceExisting bool
	strictYAML      bool
	metrics         bool
	now             func() time.Time

	statsMu sync.Mutex
	stats   models.UsageStats

	closers []func() error
}

// New creates a service. Custom templates are loaded from Storage and usage
// statistics are seeded from the usage log when those are configured.
func New(ctx context.Context, opts Options) (*Service, error) {
	if opts.Templates == nil {
		opts.Templates = templates.NewStore()
	}
	if opts.Generator == nil {
		return nil, errors.InternalError("service requires a generator")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Service{
		templates:       opts.Templates,
		generator:       opts.Generator,
		storage:         opts.Storage,
		usage:           opts.Usage,
		index:           opts.Index,
		replaceExisting: opts.ReplaceExisting,
		strictYAML:      opts.StrictYAML,
		metrics:         opts.Metrics,
		now:             opts.Now,
	}
	s.stats.LastResetAt = s.now()

	if s.storage != nil {
		custom, err := s.storage.ListTemplates()
		if err != nil {
			return nil, errors.StorageError("load templates", err)
		}
		s.templates.LoadSerialized(custom)
	}

	if s.usage != nil {
		stats, err := s.usage.Stats(ctx)
		if err != nil {
			logger.Warn("failed to load usage statistics", "error", err)
		} else {
			if stats.LastResetAt.IsZero() {
				stats.LastResetAt = s.stats.LastResetAt
			}
			s.stats = stats
		}
	}

	return s, nil
}

// Templates returns the template store
func (s *Service) Templates() *templates.Store {
	return s.templates
}

// GenerateForDocument runs the full flow for doc. With autoSelect the best
// suggestion is used; otherwise the outcome stops in SelectingTemplate and
// the caller continues with GenerateWithTemplate. With preview the outcome
// stops in Previewing and nothing is written.
func (s *Service) GenerateForDocument(ctx context.Context, doc Document, autoSelect, preview bool) (GenerationOutcome, error) {
	start := time.Now()
	outcome := GenerationOutcome{State: StateExtractingBody, Document: doc.Name()}

	text, err := doc.Read(ctx)
	if err != nil {
		return s.fail(ctx, outcome, errors.StorageError("read document", err), "", start)
	}
	existing, body := splitDocument(text)
	if strings.TrimSpace(body) == "" {
		return s.fail(ctx, outcome, errors.DocumentEmptyError(doc.Name()), "", start)
	}

	outcome.Suggestions = s.templates.Suggest(body, doc.Name())
	if !autoSelect || len(outcome.Suggestions) == 0 {
		outcome.State = StateSelectingTemplate
		return outcome, nil
	}

	tmpl := outcome.Suggestions[0].Template
	outcome.State = StateAutoTemplateChosen
	outcome.Template = &tmpl
	logger.Debug("template chosen automatically", "document", doc.Name(), "template", tmpl.ID, "confidence", outcome.Suggestions[0].Confidence)

	return s.generate(ctx, doc, outcome, tmpl, body, existing, preview, s.replaceExisting, start)
}

// GenerateWithTemplate generates metadata for doc with an explicit template.
// An empty body is read from the document.
func (s *Service) GenerateWithTemplate(ctx context.Context, doc Document, tmpl models.Template, body string, preview bool) (GenerationOutcome, error) {
	return s.generateWithTemplate(ctx, doc, tmpl, body, preview, s.replaceExisting)
}

func (s *Service) generateWithTemplate(ctx context.Context, doc Document, tmpl models.Template, body string, preview, replace bool) (GenerationOutcome, error) {
	start := time.Now()
	outcome := GenerationOutcome{State: StateExtractingBody, Document: doc.Name(), Template: &tmpl}

	text, err := doc.Read(ctx)
	if err != nil {
		return s.fail(ctx, outcome, errors.StorageError("read document", err), tmpl.ID, start)
	}
	existing, docBody := splitDocument(text)
	if strings.TrimSpace(body) == "" {
		body = docBody
	}
	if strings.TrimSpace(body) == "" {
		return s.fail(ctx, outcome, errors.DocumentEmptyError(doc.Name()), tmpl.ID, start)
	}

	return s.generate(ctx, doc, outcome, tmpl, body, existing, preview, replace, start)
}

// Regenerate is a fresh request with the same template
func (s *Service) Regenerate(ctx context.Context, doc Document, tmpl models.Template, preview bool) (GenerationOutcome, error) {
	return s.GenerateWithTemplate(ctx, doc, tmpl, "", preview)
}

func (s *Service) generate(ctx context.Context, doc Document, outcome GenerationOutcome, tmpl models.Template, body, existing string, preview, replace bool, start time.Time) (GenerationOutcome, error) {
	outcome.State = StateAwaitingModelResponse
	result := s.generator.Generate(ctx, models.GenerationRequest{
		DocumentBody:     body,
		FileName:         doc.Name(),
		Template:         tmpl,
		ExistingMetadata: existing,
	})
	outcome.Result = result

	if !result.Success {
		s.recordRequest(ctx, doc.Name(), tmpl.ID, result)
		appErr := errors.NewAppError(errors.ErrorCode(result.Error), result.Message)
		outcome.State = StateErrored
		outcome.Message = errors.UserMessage(appErr)
		return outcome, appErr
	}

	if s.strictYAML {
		if err := frontmatter.ValidateStrict(result.Metadata); err != nil {
			logger.Warn("generated metadata failed strict YAML check", "document", doc.Name(), "error", err)
		}
	}

	outcome.Metadata = result.Metadata
	if preview {
		s.recordRequest(ctx, doc.Name(), tmpl.ID, result)
		outcome.State = StatePreviewing
		return outcome, nil
	}

	// The request only counts as successful once the metadata is on disk
	outcome.State = StateInserting
	if err := s.InsertMetadata(ctx, doc, result.Metadata, replace); err != nil {
		appErr := errors.GetAppError(err)
		result.Success = false
		result.Error = string(appErr.Code)
		result.Message = appErr.Message
		outcome.Result = result
		s.recordRequest(ctx, doc.Name(), tmpl.ID, result)

		outcome.State = StateErrored
		outcome.Message = errors.UserMessage(err)
		logger.Warn("metadata insert failed", "document", doc.Name(), "code", appErr.Code, "error", appErr.Message)
		return outcome, err
	}
	s.recordRequest(ctx, doc.Name(), tmpl.ID, result)

	outcome.State = StateDone
	outcome.Inserted = true
	logger.Info("metadata inserted", "document", doc.Name(), "template", tmpl.ID, "duration", time.Since(start))
	return outcome, nil
}

// fail handles errors raised before the model is called. They still count
// as failed requests.
func (s *Service) fail(ctx context.Context, outcome GenerationOutcome, appErr *errors.AppError, templateID string, start time.Time) (GenerationOutcome, error) {
	outcome.State = StateErrored
	outcome.Message = errors.UserMessage(appErr)
	outcome.Result = models.GenerationResult{
		Error:            string(appErr.Code),
		Message:          appErr.Message,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	s.recordRequest(ctx, outcome.Document, templateID, outcome.Result)
	logger.Warn("generation failed", "document", outcome.Document, "code", appErr.Code, "error", appErr.Message)
	return outcome, appErr
}

// InsertMetadata writes yamlText into doc, replacing or merging with any
// existing front matter. The document is left untouched on failure.
func (s *Service) InsertMetadata(ctx context.Context, doc Document, yamlText string, replaceExisting bool) error {
	if strings.TrimSpace(yamlText) == "" {
		return errors.ValidationError("metadata is empty")
	}

	text, err := doc.Read(ctx)
	if err != nil {
		return errors.StorageError("read document", err)
	}
	if err := doc.Write(ctx, frontmatter.Insert(text, yamlText, replaceExisting)); err != nil {
		return errors.StorageError("write document", err)
	}
	return nil
}

// EstimateCost projects the spend for sending text once
func (s *Service) EstimateCost(text string) models.CostEstimate {
	return EstimateCost(text)
}

func splitDocument(text string) (existing, body string) {
	fm, _, ok := frontmatter.Split(text)
	if !ok {
		return "", text
	}
	return fm, frontmatter.ExtractBody(text)
}

func (s *Service) observe(templateID string, result models.GenerationResult) {
	if !s.metrics {
		return
	}
	cfg := s.generator.Config()
	metrics.ObserveGeneration(templateID, cfg.Provider, cfg.Model, result.Success, result.TokensUsed, result.ProcessingTimeMs)
}
