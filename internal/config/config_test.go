package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dpshade/pocket-meta/internal/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "POCKET_META_API_API_KEY", "POCKET_META_API_MODEL", "POCKET_META_BATCH_MAX_CONCURRENT"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.API.Provider != "openai" || cfg.API.BaseURL != "https://api.openai.com/v1" || cfg.API.Model != "gpt-3.5-turbo" {
		t.Errorf("Unexpected API defaults: %+v", cfg.API)
	}
	if cfg.API.Temperature != 0.3 || cfg.API.MaxTokens != 1000 || cfg.API.TimeoutMs != 30000 {
		t.Errorf("Unexpected request defaults: %+v", cfg.API)
	}
	if cfg.API.APIKey != "" {
		t.Error("API key should default to empty")
	}
	if !cfg.Generation.AutoSelectTemplate || cfg.Generation.StrictYAML {
		t.Errorf("Unexpected generation defaults: %+v", cfg.Generation)
	}
	if cfg.Batch.MaxConcurrent != 3 {
		t.Errorf("MaxConcurrent = %d, want 3", cfg.Batch.MaxConcurrent)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.Server.ShutdownTimeout)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	content := `api:
  model: gpt-4o-mini
  temperature: 0.7
batch:
  max_concurrent: 5
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POCKET_META_BATCH_MAX_CONCURRENT", "2")
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Model != "gpt-4o-mini" || cfg.API.Temperature != 0.7 {
		t.Errorf("File values not applied: %+v", cfg.API)
	}
	if cfg.Batch.MaxConcurrent != 2 {
		t.Errorf("Env should override file, got %d", cfg.Batch.MaxConcurrent)
	}
	if cfg.API.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q", cfg.API.APIKey)
	}
	if cfg.Dir != dir || cfg.Path("usage.db") != filepath.Join(dir, "usage.db") {
		t.Errorf("Unexpected dir %q", cfg.Dir)
	}
}

func TestLoadDotEnvInLibraryDir(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("POCKET_META_API_MODEL=from-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// godotenv never overrides variables that are already set, even to ""
	os.Unsetenv("POCKET_META_API_MODEL")
	t.Cleanup(func() { os.Unsetenv("POCKET_META_API_MODEL") })

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Model != "from-dotenv" {
		t.Errorf("Model = %q, want from-dotenv", cfg.API.Model)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("api:\n  temperature: 5\n  max_tokens: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(dir)
	if errors.CodeOf(err) != errors.ErrCodeValidation {
		t.Fatalf("Expected validation error, got %v", err)
	}
}

func TestWriteDefault(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "lib")

	path, written, err := WriteDefault(dir)
	if err != nil || !written {
		t.Fatalf("WriteDefault = %q, %v, %v", path, written, err)
	}
	if _, written, _ := WriteDefault(dir); written {
		t.Error("Existing config should not be overwritten")
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after WriteDefault: %v", err)
	}
	if cfg.API.Model != "gpt-3.5-turbo" {
		t.Errorf("Model = %q", cfg.API.Model)
	}
}

func TestDefaultDirHonorsEnv(t *testing.T) {
	t.Setenv(DirEnv, "/tmp/pocket-meta-test")
	dir, err := DefaultDir()
	if err != nil || dir != "/tmp/pocket-meta-test" {
		t.Errorf("DefaultDir = %q, %v", dir, err)
	}
}
