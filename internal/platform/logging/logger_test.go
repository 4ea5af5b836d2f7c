package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ogurasousui/employee-lifecycle/internal/platform/config"
	"github.com/sirupsen/logrus"
)

func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := newWithWriter(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("newWithWriter returned error: %v", err)
	}

	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger.WithField("emp_no", 10001).Info("created")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "created" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
	if entry["emp_no"] != float64(10001) {
		t.Fatalf("unexpected emp_no: %v", entry["emp_no"])
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	t.Parallel()

	if _, err := New(config.LoggingConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
