// Package templates holds the metadata templates used to steer generation.
//
// Built-in templates are created with the store and can never be updated or
// deleted. Custom templates are added, edited, and removed by the user and
// round-trip through LoadSerialized/ExportSerialized for persistence.
package templates

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dpshade/pocket-meta/internal/models"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sahilm/fuzzy"
)

const customIDPrefix = "custom-"

// Store is an in-memory, concurrency-safe template registry
type Store struct {
	mu      sync.RWMutex
	builtIn []models.Template
	custom  []models.Template
	now     func() time.Time
}

// NewStore creates a store seeded with the built-in templates
func NewStore() *Store {
	return &Store{
		builtIn: builtinTemplates(),
		now:     time.Now,
	}
}

// SetClock overrides the time source used for timestamps
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// All returns built-in templates followed by custom ones, in insertion order
func (s *Store) All() []models.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]models.Template, 0, len(s.builtIn)+len(s.custom))
	all = append(all, s.builtIn...)
	all = append(all, s.custom...)
	return all
}

// BuiltIn returns the immutable built-in templates
func (s *Store) BuiltIn() []models.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Template(nil), s.builtIn...)
}

// Custom returns the user-defined templates
func (s *Store) Custom() []models.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Template(nil), s.custom...)
}

// Get returns a template by ID
func (s *Store) Get(id string) (models.Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := find(s.builtIn, id); ok {
		return t, true
	}
	return find(s.custom, id)
}

// IsBuiltIn reports whether id names a built-in template
func (s *Store) IsBuiltIn(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := find(s.builtIn, id)
	return ok
}

// Add creates a custom template with a fresh ID and timestamps
func (s *Store) Add(input models.TemplateInput) models.Template {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	tmpl := models.Template{
		ID:           s.newIDLocked(),
		Name:         input.Name,
		Description:  input.Description,
		YAMLSkeleton: input.YAMLSkeleton,
		Instructions: input.Instructions,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.custom = append(s.custom, tmpl)
	return tmpl
}

// Update applies patch to a custom template. It returns false for built-in
// and unknown IDs and leaves the store untouched in that case.
func (s *Store) Update(id string, patch models.TemplatePatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.custom, id)
	if idx < 0 {
		return false
	}

	tmpl := &s.custom[idx]
	if patch.Name != nil {
		tmpl.Name = *patch.Name
	}
	if patch.Description != nil {
		tmpl.Description = *patch.Description
	}
	if patch.YAMLSkeleton != nil {
		tmpl.YAMLSkeleton = *patch.YAMLSkeleton
	}
	if patch.Instructions != nil {
		tmpl.Instructions = *patch.Instructions
	}
	tmpl.UpdatedAt = s.now()
	return true
}

// Delete removes a custom template. Built-in and unknown IDs return false.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.custom, id)
	if idx < 0 {
		return false
	}
	s.custom = append(s.custom[:idx], s.custom[idx+1:]...)
	return true
}

// Duplicate copies any template into a new custom entry. An empty newName
// produces "<name> (Copy)".
func (s *Store) Duplicate(id, newName string) (models.Template, bool) {
	src, ok := s.Get(id)
	if !ok {
		return models.Template{}, false
	}
	if strings.TrimSpace(newName) == "" {
		newName = fmt.Sprintf("%s (Copy)", src.Name)
	}
	return s.Add(models.TemplateInput{
		Name:         newName,
		Description:  src.Description,
		YAMLSkeleton: src.YAMLSkeleton,
		Instructions: src.Instructions,
	}), true
}

// LoadSerialized replaces every custom template with list. Built-ins are
// preserved; entries that collide with a built-in ID or repeat an earlier ID
// are skipped, and entries without an ID get a fresh one.
func (s *Store) LoadSerialized(list []models.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.custom = nil
	seen := make(map[string]bool, len(list))
	for _, tmpl := range list {
		if tmpl.ID == "" {
			tmpl.ID = s.newIDLocked()
		}
		if _, clash := find(s.builtIn, tmpl.ID); clash || seen[tmpl.ID] {
			continue
		}
		seen[tmpl.ID] = true
		tmpl.IsBuiltIn = false
		if tmpl.CreatedAt.IsZero() {
			tmpl.CreatedAt = s.now()
		}
		if tmpl.UpdatedAt.IsZero() {
			tmpl.UpdatedAt = tmpl.CreatedAt
		}
		s.custom = append(s.custom, tmpl)
	}
}

// ExportSerialized returns the custom templates for persistence
func (s *Store) ExportSerialized() []models.Template {
	return s.Custom()
}

// Search fuzzy-matches templates by name, description, and ID
func (s *Store) Search(query string) []models.Template {
	all := s.All()
	if strings.TrimSpace(query) == "" {
		return all
	}

	haystack := make([]string, len(all))
	for i, t := range all {
		haystack[i] = fmt.Sprintf("%s %s %s", t.Name, t.Description, t.ID)
	}

	matches := fuzzy.Find(query, haystack)
	results := make([]models.Template, 0, len(matches))
	for _, match := range matches {
		results = append(results, all[match.Index])
	}
	return results
}

// Resolve finds a template by exact ID, then case-insensitive name, then
// best fuzzy match
func (s *Store) Resolve(idOrName string) (models.Template, bool) {
	if t, ok := s.Get(idOrName); ok {
		return t, true
	}
	for _, t := range s.All() {
		if strings.EqualFold(t.Name, idOrName) {
			return t, true
		}
	}
	if results := s.Search(idOrName); len(results) > 0 && strings.TrimSpace(idOrName) != "" {
		return results[0], true
	}
	return models.Template{}, false
}

func (s *Store) newIDLocked() string {
	for {
		suffix, err := gonanoid.New(12)
		if err != nil {
			suffix = fmt.Sprintf("%d", s.now().UnixNano())
		}
		id := customIDPrefix + suffix
		if _, ok := find(s.builtIn, id); ok {
			continue
		}
		if indexOf(s.custom, id) < 0 {
			return id
		}
	}
}

func find(list []models.Template, id string) (models.Template, bool) {
	if idx := indexOf(list, id); idx >= 0 {
		return list[idx], true
	}
	return models.Template{}, false
}

func indexOf(list []models.Template, id string) int {
	for i, t := range list {
		if t.ID == id {
			return i
		}
	}
	return -1
}
