package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut := log.Writer()
	prevFlags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
	return &buf
}

func withLevel(t *testing.T, level LogLevel) {
	t.Helper()
	prev := GetLevel()
	SetLevel(level)
	t.Cleanup(func() { SetLevel(prev) })
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		ok       bool
	}{
		{"debug", LevelDebug, true},
		{"info", LevelInfo, true},
		{"warn", LevelWarn, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"DEBUG", LevelDebug, true},
		{"  info ", LevelInfo, true},
		{"", LevelInfo, false},
		{"verbose", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, ok := ParseLevel(tt.input)
			if level != tt.expected || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.input, level, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	if LevelDebug >= LevelInfo {
		t.Error("LevelDebug should be less than LevelInfo")
	}
	if LevelInfo >= LevelWarn {
		t.Error("LevelInfo should be less than LevelWarn")
	}
	if LevelWarn >= LevelError {
		t.Error("LevelWarn should be less than LevelError")
	}
}

func TestLevelString(t *testing.T) {
	tests := map[LogLevel]string{
		LevelDebug:   "debug",
		LevelInfo:    "info",
		LevelWarn:    "warn",
		LevelError:   "error",
		LogLevel(42): "unknown(42)",
	}
	for level, want := range tests {
		if got := level.String(); got != want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", level, got, want)
		}
	}
}

func TestSetLevelFiltersMessages(t *testing.T) {
	buf := captureLog(t)
	withLevel(t, LevelWarn)

	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warn")
	Error("shown error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] shown warn") {
		t.Errorf("expected warn line, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] shown error") {
		t.Errorf("expected error line, got %q", out)
	}
}

func TestIsDebugEnabled(t *testing.T) {
	withLevel(t, LevelDebug)
	if !IsDebugEnabled() {
		t.Error("expected debug enabled at LevelDebug")
	}

	SetLevel(LevelInfo)
	if IsDebugEnabled() {
		t.Error("expected debug disabled at LevelInfo")
	}
}

func TestLoggerWithPrefix(t *testing.T) {
	buf := captureLog(t)
	withLevel(t, LevelDebug)

	l := With("req", "abc123")
	l.Info("merging %d files", 3)
	l.Debug("detail")

	out := buf.String()
	if !strings.Contains(out, "[INFO] req=abc123 merging 3 files") {
		t.Errorf("unexpected info output: %q", out)
	}
	if !strings.Contains(out, "[DEBUG] req=abc123 detail") {
		t.Errorf("unexpected debug output: %q", out)
	}
}
