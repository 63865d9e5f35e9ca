package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Check defaults
	if cfg.Port != "8090" {
		t.Errorf("Expected Port to be 8090, got %s", cfg.Port)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}

	if cfg.Pipeline.ChunkSize != 50 {
		t.Errorf("Expected ChunkSize to be 50, got %d", cfg.Pipeline.ChunkSize)
	}

	if cfg.Pipeline.SequentialThreshold != 100 {
		t.Errorf("Expected SequentialThreshold to be 100, got %d", cfg.Pipeline.SequentialThreshold)
	}

	if cfg.Pipeline.FetchWorkers != 10 {
		t.Errorf("Expected FetchWorkers to be 10, got %d", cfg.Pipeline.FetchWorkers)
	}

	if cfg.Pipeline.TopN != 25 {
		t.Errorf("Expected TopN to be 25, got %d", cfg.Pipeline.TopN)
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	os.Setenv("PORT", "9000")
	os.Setenv("ENV", "production")
	os.Setenv("CHUNK_SIZE", "20")
	os.Setenv("MAX_WORKERS", "4")
	os.Setenv("LOG_LEVEL", "info")

	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("ENV")
		os.Unsetenv("CHUNK_SIZE")
		os.Unsetenv("MAX_WORKERS")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Expected Port to be 9000, got %s", cfg.Port)
	}

	if cfg.Env != "production" {
		t.Errorf("Expected Env to be production, got %s", cfg.Env)
	}

	if cfg.Pipeline.ChunkSize != 20 {
		t.Errorf("Expected ChunkSize to be 20, got %d", cfg.Pipeline.ChunkSize)
	}

	if cfg.Pipeline.FetchWorkers != 4 {
		t.Errorf("Expected FetchWorkers to be 4, got %d", cfg.Pipeline.FetchWorkers)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected LogLevel to be info, got %s", cfg.LogLevel)
	}
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	os.Setenv("ENV", "sandbox")
	defer os.Unsetenv("ENV")

	if _, err := Load(); err == nil {
		t.Error("Expected Load() to fail for unknown ENV")
	}
}

func TestLoadRejectsInvalidPipelineValues(t *testing.T) {
	os.Setenv("CHUNK_SIZE", "0")
	defer os.Unsetenv("CHUNK_SIZE")

	if _, err := Load(); err == nil {
		t.Error("Expected Load() to fail for CHUNK_SIZE=0")
	}
}
