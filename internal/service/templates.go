package service

import (
	"context"
	"strings"

	"github.com/dpshade/pocket-meta/internal/errors"
	"github.com/dpshade/pocket-meta/internal/logger"
	"github.com/dpshade/pocket-meta/internal/models"
	"github.com/dpshade/pocket-meta/internal/templates"
)

// ListTemplates returns built-in templates followed by custom ones
func (s *Service) ListTemplates() []models.Template {
	return s.templates.All()
}

// GetTemplate returns the template with the given ID
func (s *Service) GetTemplate(id string) (models.Template, error) {
	tmpl, ok := s.templates.Get(id)
	if !ok {
		return models.Template{}, errors.TemplateNotFoundError(id)
	}
	return tmpl, nil
}

// ResolveTemplate looks a template up by ID, name or fuzzy match
func (s *Service) ResolveTemplate(idOrName string) (models.Template, error) {
	tmpl, ok := s.templates.Resolve(idOrName)
	if !ok {
		return models.Template{}, errors.TemplateNotFoundError(idOrName)
	}
	return tmpl, nil
}

// SearchTemplates fuzzy-matches templates
func (s *Service) SearchTemplates(query string) []models.Template {
	return s.templates.Search(query)
}

// SuggestTemplates ranks templates for a document body
func (s *Service) SuggestTemplates(body, fileName string) []models.TemplateSuggestion {
	return s.templates.Suggest(body, fileName)
}

// CreateTemplate validates input and stores it as a custom template
func (s *Service) CreateTemplate(input models.TemplateInput) (models.Template, error) {
	if problems := templates.Validate(input); len(problems) > 0 {
		return models.Template{}, validationFailed(problems)
	}
	tmpl := s.templates.Add(input)
	if err := s.persistTemplates(); err != nil {
		s.templates.Delete(tmpl.ID)
		return models.Template{}, err
	}
	logger.Info("template created", "id", tmpl.ID, "name", tmpl.Name)
	return tmpl, nil
}

// UpdateTemplate applies patch to a custom template
func (s *Service) UpdateTemplate(id string, patch models.TemplatePatch) (models.Template, error) {
	current, ok := s.templates.Get(id)
	if !ok {
		return models.Template{}, errors.TemplateNotFoundError(id)
	}
	if current.IsBuiltIn {
		return models.Template{}, errors.PermissionDeniedError("built-in templates cannot be modified")
	}

	merged := models.TemplateInput{
		Name:         current.Name,
		Description:  current.Description,
		YAMLSkeleton: current.YAMLSkeleton,
		Instructions: current.Instructions,
	}
	if patch.Name != nil {
		merged.Name = *patch.Name
	}
	if patch.Description != nil {
		merged.Description = *patch.Description
	}
	if patch.YAMLSkeleton != nil {
		merged.YAMLSkeleton = *patch.YAMLSkeleton
	}
	if patch.Instructions != nil {
		merged.Instructions = *patch.Instructions
	}
	if problems := templates.Validate(merged); len(problems) > 0 {
		return models.Template{}, validationFailed(problems)
	}

	s.templates.Update(id, patch)
	if err := s.persistTemplates(); err != nil {
		return models.Template{}, err
	}
	updated, _ := s.templates.Get(id)
	return updated, nil
}

// DeleteTemplate removes a custom template
func (s *Service) DeleteTemplate(id string) error {
	if s.templates.IsBuiltIn(id) {
		return errors.PermissionDeniedError("built-in templates cannot be deleted")
	}
	if !s.templates.Delete(id) {
		return errors.TemplateNotFoundError(id)
	}
	logger.Info("template deleted", "id", id)
	return s.persistTemplates()
}

// DuplicateTemplate copies any template into a new custom one
func (s *Service) DuplicateTemplate(id, newName string) (models.Template, error) {
	tmpl, ok := s.templates.Duplicate(id, newName)
	if !ok {
		return models.Template{}, errors.TemplateNotFoundError(id)
	}
	if err := s.persistTemplates(); err != nil {
		return models.Template{}, err
	}
	return tmpl, nil
}

// ExportTemplates returns the custom templates
func (s *Service) ExportTemplates() []models.Template {
	return s.templates.ExportSerialized()
}

// ImportTemplates adds list to the custom templates. Entries whose ID is
// already taken are skipped. It returns how many were added.
func (s *Service) ImportTemplates(list []models.Template) (int, error) {
	before := len(s.templates.Custom())
	s.templates.LoadSerialized(append(s.templates.Custom(), list...))
	added := len(s.templates.Custom()) - before
	if err := s.persistTemplates(); err != nil {
		return 0, err
	}
	return added, nil
}

// TestConnection checks the completion endpoint when the generator supports it
func (s *Service) TestConnection(ctx context.Context) (bool, error) {
	tester, ok := s.generator.(interface {
		TestConnection(ctx context.Context) (bool, error)
	})
	if !ok {
		return false, errors.InternalError("generator does not support connection tests")
	}
	return tester.TestConnection(ctx)
}

func (s *Service) persistTemplates() error {
	if s.storage == nil {
		return nil
	}
	if err := s.storage.SyncTemplates(s.templates.ExportSerialized()); err != nil {
		return errors.StorageError("save templates", err)
	}
	return nil
}

func validationFailed(problems []string) *errors.AppError {
	return errors.ValidationError("invalid template").WithDetails(strings.Join(problems, "; "))
}
