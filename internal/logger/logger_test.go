package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "torway.log")

	err := Init(Config{Level: "debug", Format: "json", Output: "file", File: path})
	if err != nil {
		t.Fatal(err)
	}

	Info("file output works", "key", "value")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"file output works"`) {
		t.Fatalf("log file missing entry: %q", string(data))
	}
}

func TestInitErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "bad_level", cfg: Config{Level: "verbose"}},
		{name: "bad_format", cfg: Config{Format: "xml"}},
		{name: "bad_output", cfg: Config{Output: "syslog"}},
		{name: "file_without_path", cfg: Config{Output: "file"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Init(tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "DEBUG"} {
		if _, err := parseLevel(level); err != nil {
			t.Fatalf("parseLevel(%q): %v", level, err)
		}
	}
}
