package storage

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dpshade/pocket-meta/internal/logger"
	"github.com/dpshade/pocket-meta/internal/models"
	"gopkg.in/yaml.v3"
)

const templatesDir = "templates"

// Storage handles file system operations for custom templates and the
// files that live next to them (usage log, generation index)
type Storage struct {
	rootPath string
}

// NewStorage creates a new storage instance rooted at rootPath, defaulting
// to ~/.pocket-meta
func NewStorage(rootPath string) (*Storage, error) {
	if rootPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		rootPath = filepath.Join(homeDir, ".pocket-meta")
	}

	return &Storage{rootPath: rootPath}, nil
}

// InitLibrary creates the directory structure
func (s *Storage) InitLibrary() error {
	dirs := []string{
		s.rootPath,
		filepath.Join(s.rootPath, templatesDir),
		filepath.Join(s.rootPath, "cache"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// GetBaseDir returns the root path of the storage
func (s *Storage) GetBaseDir() string {
	return s.rootPath
}

// Path joins elem onto the storage root
func (s *Storage) Path(elem ...string) string {
	return filepath.Join(append([]string{s.rootPath}, elem...)...)
}

// TemplatePath returns the relative path used for a template ID
func TemplatePath(id string) string {
	return filepath.Join(templatesDir, id+".md")
}

// SaveTemplate writes a custom template as YAML front matter plus an
// instructions body
func (s *Storage) SaveTemplate(template *models.Template) error {
	if template.FilePath == "" {
		template.FilePath = TemplatePath(template.ID)
	}
	fullPath := filepath.Join(s.rootPath, template.FilePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	content, err := serializeTemplate(template)
	if err != nil {
		return fmt.Errorf("failed to serialize template: %w", err)
	}

	if err := writeFileAtomic(fullPath, content); err != nil {
		return fmt.Errorf("failed to write template file: %w", err)
	}

	return nil
}

// LoadTemplate loads a template from a markdown file
func (s *Storage) LoadTemplate(path string) (*models.Template, error) {
	fullPath := filepath.Join(s.rootPath, path)

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}

	template, err := ParseTemplate(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	template.FilePath = path
	return template, nil
}

// ListTemplates returns every template file in the library. Unreadable
// files are logged and skipped.
func (s *Storage) ListTemplates() ([]models.Template, error) {
	dir := filepath.Join(s.rootPath, templatesDir)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var templates []models.Template
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && strings.HasSuffix(path, ".md") {
			relPath, _ := filepath.Rel(s.rootPath, path)
			template, err := s.LoadTemplate(relPath)
			if err != nil {
				logger.Warn("failed to load template", "path", relPath, "error", err)
				return nil
			}
			templates = append(templates, *template)
		}

		return nil
	})

	return templates, err
}

// DeleteTemplate deletes a template file. A missing file is not an error.
func (s *Storage) DeleteTemplate(template *models.Template) error {
	path := template.FilePath
	if path == "" {
		path = TemplatePath(template.ID)
	}
	if err := os.Remove(filepath.Join(s.rootPath, path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete template file: %w", err)
	}
	return nil
}

// SyncTemplates makes the templates directory mirror list: every entry is
// written and every other template file is removed
func (s *Storage) SyncTemplates(list []models.Template) error {
	existing, err := s.ListTemplates()
	if err != nil {
		return err
	}

	keep := make(map[string]bool, len(list))
	for i := range list {
		tmpl := list[i]
		tmpl.FilePath = TemplatePath(tmpl.ID)
		if err := s.SaveTemplate(&tmpl); err != nil {
			return err
		}
		keep[tmpl.FilePath] = true
	}

	for i := range existing {
		if !keep[existing[i].FilePath] {
			if err := s.DeleteTemplate(&existing[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// ParseTemplate reads a template file: YAML front matter followed by the
// generation instructions
func ParseTemplate(content []byte) (*models.Template, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))

	if !scanner.Scan() || strings.TrimRight(scanner.Text(), "\r") != "---" {
		return nil, fmt.Errorf("missing frontmatter delimiter")
	}

	var frontmatterLines []string
	closed := false
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "---" {
			closed = true
			break
		}
		frontmatterLines = append(frontmatterLines, line)
	}
	if !closed {
		return nil, fmt.Errorf("missing closing frontmatter delimiter")
	}

	var template models.Template
	if err := yaml.Unmarshal([]byte(strings.Join(frontmatterLines, "\n")), &template); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	if template.ID == "" {
		return nil, fmt.Errorf("template has no id")
	}

	var contentLines []string
	for scanner.Scan() {
		contentLines = append(contentLines, scanner.Text())
	}
	// Trim only surrounding blank lines so indentation inside is preserved
	template.Instructions = strings.Trim(strings.Join(contentLines, "\n"), "\n")

	return &template, scanner.Err()
}

// SerializeTemplate converts a template to YAML front matter plus markdown
func SerializeTemplate(template *models.Template) ([]byte, error) {
	return serializeTemplate(template)
}

func serializeTemplate(template *models.Template) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("---\n")

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(template); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}

	buf.WriteString("---\n")

	if template.Instructions != "" {
		buf.WriteString("\n")
		buf.WriteString(template.Instructions)
		if !strings.HasSuffix(template.Instructions, "\n") {
			buf.WriteString("\n")
		}
	}

	return buf.Bytes(), nil
}

// writeFileAtomic writes through a temp file in the same directory so a
// crash never leaves a truncated file behind
func writeFileAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func calculateHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
