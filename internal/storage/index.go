package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dpshade/pocket-meta/internal/frontmatter"
)

// IndexEntry records the body a document had when metadata was last
// written to it
type IndexEntry struct {
	Path        string    `json:"path"`
	BodyHash    string    `json:"body_hash"`
	TemplateID  string    `json:"template_id"`
	GeneratedAt time.Time `json:"generated_at"`
}

// GenerationIndex remembers which documents already have up-to-date
// metadata so batch runs can skip them
type GenerationIndex struct {
	indexDir  string
	indexFile string
	entries   map[string]*IndexEntry
	mu        sync.RWMutex
}

// NewGenerationIndex creates an index stored under baseDir/cache
func NewGenerationIndex(baseDir string) *GenerationIndex {
	indexDir := filepath.Join(baseDir, "cache")
	return &GenerationIndex{
		indexDir:  indexDir,
		indexFile: filepath.Join(indexDir, "generated.json"),
		entries:   make(map[string]*IndexEntry),
	}
}

// Load reads the index from disk. A missing file is an empty index and a
// corrupted one is discarded.
func (c *GenerationIndex) Load() error {
	if err := os.MkdirAll(c.indexDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := os.ReadFile(c.indexFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index file: %w", err)
	}

	c.mu.Lock()
	if err := json.Unmarshal(data, &c.entries); err != nil || c.entries == nil {
		c.entries = make(map[string]*IndexEntry)
	}
	c.mu.Unlock()

	return nil
}

// Save writes the index to disk
func (c *GenerationIndex) Save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	if err := os.MkdirAll(c.indexDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := writeFileAtomic(c.indexFile, data); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}

	return nil
}

// Unchanged reports whether doc's body still matches the recorded hash.
// Only the body counts, so rewriting the front matter does not invalidate it.
func (c *GenerationIndex) Unchanged(path, doc string) bool {
	c.mu.RLock()
	entry, ok := c.entries[path]
	c.mu.RUnlock()
	return ok && entry.BodyHash == bodyHash(doc)
}

// Record stores the current body hash of doc
func (c *GenerationIndex) Record(path, doc, templateID string) {
	c.mu.Lock()
	c.entries[path] = &IndexEntry{
		Path:        path,
		BodyHash:    bodyHash(doc),
		TemplateID:  templateID,
		GeneratedAt: time.Now().UTC(),
	}
	c.mu.Unlock()
}

// Get returns the entry for path
func (c *GenerationIndex) Get(path string) (IndexEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[path]
	if !ok {
		return IndexEntry{}, false
	}
	return *entry, true
}

// Cleanup removes entries for files that no longer exist
func (c *GenerationIndex) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for path := range c.entries {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			delete(c.entries, path)
			removed++
		}
	}
	return removed
}

func bodyHash(doc string) string {
	return calculateHash([]byte(frontmatter.ExtractBody(doc)))
}
