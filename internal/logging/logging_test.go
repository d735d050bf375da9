package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/goliatone/go-formbuilder/internal/config"
)

func TestNewJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("store failed", "op", "save")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %q", buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record["msg"] != "store failed" || record["op"] != "save" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNewText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "debug"}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Debug("derivation failed", "field", "total")
	if !strings.Contains(buf.String(), "field=total") {
		t.Fatalf("expected text attrs, got %q", buf.String())
	}

	if _, err := New(config.LogConfig{Level: "chatty"}, &buf); err == nil {
		t.Fatalf("expected level error")
	}
}
