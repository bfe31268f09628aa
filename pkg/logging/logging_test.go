package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/urmzd/treelights/pkg/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"INFO":  zerolog.InfoLevel,
		"":      zerolog.InfoLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("chatty"); err == nil {
		t.Error("ParseLevel(chatty) error = nil")
	}
}

func TestNewWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	w, closer, err := NewWriter(config.LoggingConfig{Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	zerolog.New(w).Info().Str("remote", "10.0.0.2:5000").Msg("Client connected")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %q", buf.String())
	}
	if entry["remote"] != "10.0.0.2:5000" || entry["message"] != "Client connected" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewWriter_File(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "treelights.log")
	w, closer, err := NewWriter(config.LoggingConfig{Format: "console", File: path, MaxSizeMB: 1}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	zerolog.New(w).Warn().Msg("Discovery socket closed")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "Discovery socket closed") {
		t.Errorf("file content = %q", data)
	}
	if !strings.Contains(buf.String(), "Discovery socket closed") {
		t.Errorf("console content = %q", buf.String())
	}
}

func TestNewWriter_UnknownFormat(t *testing.T) {
	if _, _, err := NewWriter(config.LoggingConfig{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Error("NewWriter(xml) error = nil")
	}
}
