package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"swarm-viewer/internal/config"
)

func TestTextLogger(t *testing.T) {
	var stderr bytes.Buffer
	logger, closer, err := New(config.LogConfig{Level: "warn", Format: "text"}, &stderr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("engine stopped unexpectedly", "status", "exited(1)")

	out := stderr.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level:\n%s", out)
	}
	if !strings.Contains(out, `msg="engine stopped unexpectedly" status=exited(1)`) {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestJSONLoggerWithFile(t *testing.T) {
	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "viewer.log")
	logger, closer, err := New(config.LogConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1}, &stderr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("shutdown complete", "session", "abc")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Equal(data, stderr.Bytes()) {
		t.Errorf("file and stderr differ:\nfile:   %s\nstderr: %s", data, stderr.Bytes())
	}

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if record["msg"] != "shutdown complete" || record["session"] != "abc" {
		t.Errorf("record = %v", record)
	}
}

func TestInvalidSettings(t *testing.T) {
	if _, _, err := New(config.LogConfig{Level: "loud", Format: "text"}, &bytes.Buffer{}); err == nil {
		t.Error("accepted an unknown level")
	}
	if _, _, err := New(config.LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Error("accepted an unknown format")
	}
}
