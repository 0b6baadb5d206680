package dlog

import (
	"bytes"
	"strings"
	"testing"
)

func TestEmitFormatsLevelAndMessage(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, false, false)

	Info("link %s up", "bond0")

	got := buf.String()
	if !strings.Contains(got, "INFO: link bond0 up") {
		t.Fatalf("unexpected log line: %q", got)
	}
	if strings.Contains(got, "<") {
		t.Fatalf("priority tag should be absent when tagging is off: %q", got)
	}
}

func TestEmitSuppressesDebugWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, false, false)

	Debug("should not appear")

	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestEmitIncludesPriorityTagWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, false, true)

	Error("failed")

	got := buf.String()
	// facility 1 (user) * 8 + severity 3 (err) == 11
	if !strings.HasPrefix(got, "<11>") {
		t.Fatalf("expected RFC-3164 priority prefix <11>, got %q", got)
	}
}

func TestEmitIncludesCallerWhenDebugging(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, true, false)

	Info("hello")

	got := buf.String()
	if !strings.Contains(got, "dlog_test.go:") {
		t.Fatalf("expected caller file:line prefix, got %q", got)
	}
}
