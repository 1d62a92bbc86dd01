package core

import (
	"errors"
	"io"
	"net"
	"os"
	"time"
)

// readResult is the outcome of a single deadline-bounded read.
// Exactly one of the conditions holds, except that a final chunk of
// data may arrive together with eof.
type readResult struct {
	n        int
	timedOut bool
	eof      bool
	err      error
}

// readUntil performs one read on conn bounded by an absolute
// wall-clock deadline. A deadline already in the past returns
// timedOut without touching the socket, so callers can loop on a
// fixed timestamp and fall through the moment it expires regardless
// of how many reads came before. Interrupted reads are retried
// against the same deadline.
func readUntil(conn net.Conn, deadline time.Time, dst []byte) readResult {
	for {
		if !time.Now().Before(deadline) {
			return readResult{timedOut: true}
		}
		if err := conn.SetReadDeadline(deadline); err != nil {
			return readResult{err: err}
		}
		n, err := conn.Read(dst)
		switch {
		case err == nil:
			return readResult{n: n}
		case errors.Is(err, io.EOF):
			return readResult{n: n, eof: true}
		case errors.Is(err, os.ErrDeadlineExceeded):
			return readResult{n: n, timedOut: true}
		case transientIOError(err):
			continue
		default:
			return readResult{n: n, err: err}
		}
	}
}
