package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/meenmo/lmm/config"
)

func TestNew_JSONFields(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	l, err := New(config.LogConfig{Level: "debug"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.WithField("component", "simulation").Debug("stepped")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if got["message"] != "stepped" || got["level"] != "debug" || got["component"] != "simulation" {
		t.Fatalf("unexpected entry: %v", got)
	}
	if _, ok := got["timestamp"]; !ok {
		t.Fatalf("missing timestamp: %v", got)
	}
}

func TestNew_EnvOverridesLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	l, err := New(config.LogConfig{Level: "debug"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.GetLevel() != logrus.WarnLevel {
		t.Fatalf("level: got %v", l.GetLevel())
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := New(config.LogConfig{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestNew_FileSink(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "lmm.log")
	l, err := New(config.LogConfig{File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("hello")
	if l.Out == nil {
		t.Fatalf("no output configured")
	}
}

func TestOrDiscard(t *testing.T) {
	t.Parallel()

	if OrDiscard(nil) == nil {
		t.Fatalf("expected a discard entry")
	}
	e := WithComponent("x")
	if OrDiscard(e) != e {
		t.Fatalf("expected the given entry back")
	}
}

func TestSetLogger(t *testing.T) {
	prev := GetLogger()
	defer SetLogger(prev)

	l := logrus.New()
	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.SetFormatter(jsonFormatter())
	SetLogger(l)
	if GetLogger() != l {
		t.Fatalf("GetLogger did not return the installed logger")
	}
	WithComponent("calibration").Info("ready")
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if got["component"] != "calibration" {
		t.Fatalf("unexpected entry: %v", got)
	}
}
