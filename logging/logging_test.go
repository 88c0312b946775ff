package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{"json info", "info", "json", zapcore.InfoLevel, false},
		{"console debug", "debug", "console", zapcore.DebugLevel, false},
		{"default", "", "", zapcore.InfoLevel, false},
		{"json error", "error", "json", zapcore.ErrorLevel, false},
		{"invalid level", "loud", "json", 0, true},
		{"invalid format", "info", "xml", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(Config{Level: tt.level, Format: tt.format})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if l.Level() != tt.wantLevel {
				t.Errorf("Level() = %v, want %v", l.Level(), tt.wantLevel)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	l, err := New(Config{Level: "info"})
	if err != nil {
		t.Fatal(err)
	}

	if err := l.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	if l.Level() != zapcore.DebugLevel {
		t.Errorf("Level() = %v, want debug", l.Level())
	}
	if err := l.SetLevel("nope"); err == nil {
		t.Error("SetLevel with invalid level should fail")
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prismlate.log")
	l, err := New(Config{Level: "info", File: path})
	if err != nil {
		t.Fatal(err)
	}

	l.Info("run finished")
	l.Debug("hidden")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"run finished"`) {
		t.Errorf("log file missing entry:\n%s", data)
	}
	if strings.Contains(string(data), "hidden") {
		t.Error("debug entry should be filtered at info level")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("discarded")
	if err := l.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestOutputWriter(t *testing.T) {
	var buf strings.Builder
	l, err := New(Config{Level: "warn", Format: "json", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	l.Info("quiet")
	l.Warn("loud")

	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), `"msg":"loud"`) {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
