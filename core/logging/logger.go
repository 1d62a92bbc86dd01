package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	ErrorLevel
)

// Every line is formatted as "[HH:MM:SS] [pid] message". Info and debug
// lines go to the info sink (stdout), errors to the error sink (stderr).
// The pid is captured once; connection identity rides in the message label.
var (
	infoLog  = log.New(resumeWriter{os.Stdout}, "", 0)
	errorLog = log.New(resumeWriter{os.Stderr}, "", 0)
	level    = InfoLevel
	pid      = os.Getpid()
	mu       sync.Mutex
)

// Init reconfigures the logger. Empty paths keep the plain stdout/stderr
// sinks; a non-empty path mirrors the corresponding stream to that file.
// The package is usable before Init with info level and no mirrors.
func Init(logLevel string, infoPath, errorPath string) error {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(logLevel) {
	case "debug":
		level = DebugLevel
	case "info":
		level = InfoLevel
	case "error":
		level = ErrorLevel
	default:
		level = InfoLevel
	}

	// Each sink gets its own resumeWriter: a short write on one mirror
	// must not make the retry resend bytes the other already took.
	var infoWriter io.Writer = resumeWriter{os.Stdout}
	if infoPath != "" {
		f, err := openLogFile(infoPath)
		if err != nil {
			return err
		}
		infoWriter = io.MultiWriter(resumeWriter{os.Stdout}, resumeWriter{f})
	}
	infoLog = log.New(infoWriter, "", 0)

	var errWriter io.Writer = resumeWriter{os.Stderr}
	if errorPath != "" {
		f, err := openLogFile(errorPath)
		if err != nil {
			return err
		}
		errWriter = io.MultiWriter(resumeWriter{os.Stderr}, resumeWriter{f})
	}
	errorLog = log.New(errWriter, "", 0)

	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func Debug(format string, v ...interface{}) {
	if level <= DebugLevel {
		emit(infoLog, format, v...)
	}
}

func Info(format string, v ...interface{}) {
	if level <= InfoLevel {
		emit(infoLog, format, v...)
	}
}

func Error(format string, v ...interface{}) {
	if level <= ErrorLevel {
		emit(errorLog, format, v...)
	}
}

func Fatal(format string, v ...interface{}) {
	emit(errorLog, format, v...)
	os.Exit(1)
}

// emit writes one fully formatted line through the sink's own mutex, so
// concurrent connection workers never interleave within a line.
func emit(l *log.Logger, format string, v ...interface{}) {
	l.Printf("[%s] [%d] %s", time.Now().Format("15:04:05"), pid, fmt.Sprintf(format, v...))
}

// resumeWriter retries short writes so a line lands as one contiguous
// record even when the sink accepts it piecemeal. A write that makes no
// progress is abandoned; logging never surfaces errors to callers.
type resumeWriter struct {
	dst io.Writer
}

func (w resumeWriter) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := w.dst.Write(p[written:])
		written += n
		if err != nil {
			if n > 0 {
				continue
			}
			return written, err
		}
	}
	return written, nil
}
