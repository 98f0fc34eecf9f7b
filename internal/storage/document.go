package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileDocument is a markdown note on the local file system
type FileDocument struct {
	path string
}

// NewFileDocument wraps the file at path
func NewFileDocument(path string) *FileDocument {
	return &FileDocument{path: path}
}

// Name returns the base file name shown to the model
func (d *FileDocument) Name() string {
	return filepath.Base(d.path)
}

// Path returns the full path of the document. Batch reports use it.
func (d *FileDocument) Path() string {
	return d.path
}

// Read returns the full text of the document
func (d *FileDocument) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return "", fmt.Errorf("failed to read document %s: %w", d.path, err)
	}
	return string(data), nil
}

// Write replaces the full text of the document
func (d *FileDocument) Write(ctx context.Context, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeFileAtomic(d.path, []byte(content)); err != nil {
		return fmt.Errorf("failed to write document %s: %w", d.path, err)
	}
	return nil
}

// FileDocuments wraps every path as a FileDocument
func FileDocuments(paths []string) []*FileDocument {
	docs := make([]*FileDocument, len(paths))
	for i, p := range paths {
		docs[i] = NewFileDocument(p)
	}
	return docs
}
