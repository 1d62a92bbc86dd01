package core

import (
	"context"
	"net"
	"strings"
	"time"

	"unresponsive/core/logging"
	"unresponsive/core/sniff"
)

const (
	// bufSize caps how much client input is retained for sniffing.
	// Later bytes are still drained from the socket but discarded.
	bufSize = 4096

	statusLine  = "HTTP/1.1 503 Service Unavailable\r\n"
	contentType = "Content-Type: text/plain\r\n"
	terminator  = "Content-Length: 0\r\n\r\n"
	greeting    = "Hello, world!\r\n"

	// holdStep caps one wait iteration during the hold phase.
	holdStep = 10 * time.Second
)

// session owns one accepted connection for its whole lifetime.
// Nothing here is shared: each session has its own buffer and
// deadline, so sessions never need locking.
type session struct {
	conn     net.Conn
	label    string
	deadline time.Time
	buf      []byte // retained prefix, sniffed; len grows to cap
	scratch  []byte // throwaway region for drained overflow
	sniffer  sniff.Sniffer
}

// newSession prepares the state machine for one connection. The
// deadline is computed before name resolution so lookup time counts
// against the delay rather than extending it.
func newSession(conn net.Conn, delay, dnsTimeout time.Duration) *session {
	deadline := time.Now().Add(delay)
	return &session{
		conn:     conn,
		label:    peerLabel(conn.RemoteAddr(), dnsTimeout),
		deadline: deadline,
		buf:      make([]byte, 0, bufSize),
	}
}

// peerLabel formats the remote address as host:port, preferring the
// reverse-DNS name when one resolves within the timeout. A timeout of
// zero disables the lookup.
func peerLabel(addr net.Addr, dnsTimeout time.Duration) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	if dnsTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), dnsTimeout)
		defer cancel()
		if names, err := net.DefaultResolver.LookupAddr(ctx, host); err == nil && len(names) > 0 {
			host = strings.TrimSuffix(names[0], ".")
		}
	}
	return net.JoinHostPort(host, port)
}

// Handle drives CONNECTED -> DRAINING -> (RESPONDING | SILENT) ->
// CLOSED. The socket is closed and a CLOSED line logged on every exit
// path, error or not.
func (s *session) Handle() {
	defer func() {
		s.conn.Close()
		logging.Info("[%s] CLOSED", s.label)
	}()

	logging.Info("[%s] CONNECTED", s.label)

	if !s.drain() {
		return
	}
	s.respond()
}

// drain consumes client input until the deadline and reports whether
// the session should go on to respond. EOF and hard errors end the
// connection silently.
func (s *session) drain() bool {
	for {
		dst := s.buf[len(s.buf):cap(s.buf)]
		retain := len(dst) > 0
		if !retain {
			dst = s.throwaway()
		}

		res := readUntil(s.conn, s.deadline, dst)
		if res.n > 0 {
			logging.Info("[%s] Received %d bytes", s.label, res.n)
			if retain {
				s.buf = s.buf[:len(s.buf)+res.n]
				if s.sniffer.Sniff(s.buf) {
					logging.Info("[%s] %s", s.label, sniff.RequestLine(s.buf))
				}
			}
		}

		switch {
		case res.timedOut:
			return true
		case res.eof:
			logging.Info("[%s] EOF", s.label)
			return false
		case res.err != nil:
			logging.Error("[%s] %v", s.label, res.err)
			return false
		}
	}
}

// respond emits the classified response. For HTTP peers the status
// line and content type go out as soon as the drain deadline passes;
// the terminator, like the raw greeting, waits out the hold phase.
func (s *session) respond() {
	if s.sniffer.HTTP() {
		if !s.writeAll(statusLine) || !s.writeAll(contentType) {
			return
		}
		logging.Info("[%s] Sent HTTP 503", s.label)
	}

	if !s.hold() {
		return
	}

	if s.sniffer.HTTP() {
		if s.writeAll(terminator) {
			logging.Debug("[%s] Sent terminator", s.label)
		}
	} else {
		if s.writeAll(greeting) {
			logging.Debug("[%s] Sent greeting", s.label)
		}
	}
}

// hold keeps the connection open until the deadline passes again,
// watching only for the peer hanging up. Each iteration logs the time
// left and waits at most holdStep; late input is drained and
// discarded. Reports whether the final payload should still be sent.
//
// The hold deadline is the drain deadline, so with an expired deadline
// this is a single check and the loop body never runs.
func (s *session) hold() bool {
	for {
		remaining := time.Until(s.deadline)
		if remaining <= 0 {
			return true
		}

		secs := int((remaining + time.Second - 1) / time.Second)
		logging.Info("[%s] %d seconds remaining", s.label, secs)

		step := remaining
		if step > holdStep {
			step = holdStep
		}
		res := readUntil(s.conn, time.Now().Add(step), s.throwaway())
		switch {
		case res.eof:
			logging.Info("[%s] EOF", s.label)
			return false
		case res.err != nil:
			logging.Error("[%s] %v", s.label, res.err)
			return false
		}
	}
}

// throwaway returns the scratch region for reads whose bytes are not
// retained, allocating it on first use.
func (s *session) throwaway() []byte {
	if s.scratch == nil {
		s.scratch = make([]byte, bufSize)
	}
	return s.scratch
}

// writeAll sends str in full, retrying interrupted and short writes
// indefinitely. There is no write deadline: a peer that stops reading
// holds its own connection, nothing else. Failures are logged with
// the connection label.
func (s *session) writeAll(str string) bool {
	data := []byte(str)
	for len(data) > 0 {
		n, err := s.conn.Write(data)
		data = data[n:]
		if err != nil {
			if transientIOError(err) {
				continue
			}
			logging.Error("[%s] %v", s.label, err)
			return false
		}
	}
	return true
}
