package logging

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestInit_Levels(t *testing.T) {
	levels := map[string]Level{
		"debug":   DebugLevel,
		"info":    InfoLevel,
		"error":   ErrorLevel,
		"invalid": InfoLevel,
		"DEBUG":   DebugLevel,
	}

	for name, want := range levels {
		if err := Init(name, "", ""); err != nil {
			t.Errorf("Init(%s) failed: %v", name, err)
		}
		if level != want {
			t.Errorf("Init(%s): expected level %v, got %v", name, want, level)
		}
	}
}

func TestLineFormat(t *testing.T) {
	tmpDir := t.TempDir()
	infoPath := filepath.Join(tmpDir, "info.log")

	if err := Init("info", infoPath, ""); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Info("[client:1234] CONNECTED")

	content, err := os.ReadFile(infoPath)
	if err != nil {
		t.Fatalf("failed to read info log: %v", err)
	}

	// [HH:MM:SS] [pid] message
	re := regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}\] \[\d+\] \[client:1234\] CONNECTED\n$`)
	if !re.Match(content) {
		t.Errorf("unexpected line format: %q", string(content))
	}
}

func TestSinkRouting(t *testing.T) {
	tmpDir := t.TempDir()
	infoPath := filepath.Join(tmpDir, "info.log")
	errorPath := filepath.Join(tmpDir, "error.log")

	if err := Init("debug", infoPath, errorPath); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Debug("debug msg")
	Info("info msg")
	Error("error msg")

	content, err := os.ReadFile(infoPath)
	if err != nil {
		t.Fatalf("failed to read info log: %v", err)
	}
	s := string(content)

	if !strings.Contains(s, "debug msg") {
		t.Error("info log missing debug msg")
	}
	if !strings.Contains(s, "info msg") {
		t.Error("info log missing info msg")
	}
	if strings.Contains(s, "error msg") {
		t.Error("error msg leaked into the info sink")
	}

	content, err = os.ReadFile(errorPath)
	if err != nil {
		t.Fatalf("failed to read error log: %v", err)
	}
	s = string(content)
	if !strings.Contains(s, "error msg") {
		t.Error("error log missing error msg")
	}
	if strings.Contains(s, "info msg") {
		t.Error("info msg leaked into the error sink")
	}
}

func TestLogLevelFiltering(t *testing.T) {
	tmpDir := t.TempDir()
	infoPath := filepath.Join(tmpDir, "filtered.log")

	if err := Init("info", infoPath, ""); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Debug("should not appear")
	Info("should appear")

	content, err := os.ReadFile(infoPath)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	s := string(content)

	if strings.Contains(s, "should not appear") {
		t.Error("log contained filtered messages")
	}
	if !strings.Contains(s, "should appear") {
		t.Error("log missing info message")
	}
}

// trickleWriter accepts at most max bytes per call and reports the
// remainder as an error, imitating a sink that takes lines piecemeal.
type trickleWriter struct {
	out []byte
	max int
}

var errTrickle = errors.New("short write")

func (w *trickleWriter) Write(p []byte) (int, error) {
	n := len(p)
	if n > w.max {
		n = w.max
	}
	w.out = append(w.out, p[:n]...)
	if n < len(p) {
		return n, errTrickle
	}
	return n, nil
}

func TestResumeWriter_ShortWrites(t *testing.T) {
	dst := &trickleWriter{max: 3}
	w := resumeWriter{dst}

	line := []byte("[00:00:00] [1] Received 42 bytes\n")
	n, err := w.Write(line)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != len(line) {
		t.Errorf("expected %d bytes written, got %d", len(line), n)
	}
	if string(dst.out) != string(line) {
		t.Errorf("reassembled line mismatch: %q", string(dst.out))
	}
}

// deadWriter makes no progress at all; the writer must give up rather
// than spin.
type deadWriter struct{}

func (deadWriter) Write(p []byte) (int, error) { return 0, errors.New("sink gone") }

func TestResumeWriter_NoProgress(t *testing.T) {
	w := resumeWriter{deadWriter{}}
	n, err := w.Write([]byte("lost line\n"))
	if err == nil {
		t.Error("expected error from dead sink")
	}
	if n != 0 {
		t.Errorf("expected 0 bytes written, got %d", n)
	}
}
