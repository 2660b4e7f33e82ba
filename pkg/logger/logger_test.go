package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warn("warn %d", 3)
	l.Error("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("messages below level written: %q", out)
	}
	if !strings.Contains(out, "[WARN] warn 3") {
		t.Errorf("missing warn message: %q", out)
	}
	if !strings.Contains(out, "[ERROR] error 4") {
		t.Errorf("missing error message: %q", out)
	}
	if !strings.Contains(out, "nist-validator") {
		t.Errorf("missing prefix: %q", out)
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug)
	child := l.With("resource", "IZ_VXU_Z22").With("control", "123")

	child.Info("validated")
	if !strings.HasSuffix(strings.TrimSpace(buf.String()), "validated resource=IZ_VXU_Z22 control=123") {
		t.Errorf("fields not appended: %q", buf.String())
	}

	// Child shares level with parent.
	buf.Reset()
	l.SetLevel(LevelError)
	child.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("child ignored parent level: %q", buf.String())
	}
}

func TestEnabled(t *testing.T) {
	l := New(&bytes.Buffer{}, LevelInfo)
	if l.Enabled(LevelDebug) {
		t.Error("Enabled(DEBUG) = true at INFO")
	}
	if !l.Enabled(LevelWarn) {
		t.Error("Enabled(WARN) = false at INFO")
	}
	l.SetLevel(LevelNone)
	if l.Enabled(LevelError) {
		t.Error("Enabled(ERROR) = true at NONE")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"Error", LevelError, false},
		{"off", LevelNone, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
