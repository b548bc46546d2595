package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSetupLoggerWithWriters_FansOut(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("pipeline ready", "workers", 2)

	if !strings.Contains(stderr.String(), "pipeline ready") {
		t.Errorf("stderr output missing message: %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "workers=2") {
		t.Errorf("stderr output missing attribute: %q", stderr.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
		t.Fatalf("file output is not JSON: %v (%q)", err, file.String())
	}
	if entry["msg"] != "pipeline ready" {
		t.Errorf("file entry msg = %v, want pipeline ready", entry["msg"])
	}
	if entry["workers"] != float64(2) {
		t.Errorf("file entry workers = %v, want 2", entry["workers"])
	}
}

func TestSetupLoggerWithWriters_LevelFilters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn)

	logger.Debug("noise")
	logger.Info("also noise")
	logger.Warn("kept")

	if strings.Contains(stderr.String(), "noise") {
		t.Errorf("below-level records leaked to stderr: %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "kept") {
		t.Errorf("warn record missing from stderr: %q", stderr.String())
	}
	if !strings.Contains(file.String(), "kept") {
		t.Errorf("warn record missing from file: %q", file.String())
	}
}
