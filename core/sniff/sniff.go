// Package sniff classifies inbound connection data as HTTP or raw.
//
// Classification is a substring search, not a parse: a connection is
// HTTP as soon as an "HTTP/1.0\r\n" or "HTTP/1.1\r\n" marker appears
// anywhere in the bytes received so far. Anything else is raw.
package sniff

import "bytes"

var markers = [][]byte{
	[]byte("HTTP/1.0\r\n"),
	[]byte("HTTP/1.1\r\n"),
}

// Detect reports whether buf contains an HTTP version marker.
func Detect(buf []byte) bool {
	for _, m := range markers {
		if bytes.Contains(buf, m) {
			return true
		}
	}
	return false
}

// RequestLine returns the first line of buf, without its terminator.
// The marker includes a CR, so a detected buffer always has one.
func RequestLine(buf []byte) string {
	if i := bytes.IndexByte(buf, '\r'); i >= 0 {
		return string(buf[:i])
	}
	return string(buf)
}

// Sniffer tracks classification across successive reads on one
// connection. The decision is sticky: once a marker is seen the
// connection stays HTTP no matter what arrives later.
type Sniffer struct {
	http bool
}

// Sniff rescans buf, which must hold everything received so far.
// It reports true exactly once, on the call where the marker is
// first seen.
func (s *Sniffer) Sniff(buf []byte) bool {
	if s.http {
		return false
	}
	if Detect(buf) {
		s.http = true
		return true
	}
	return false
}

// HTTP reports whether a marker has been seen.
func (s *Sniffer) HTTP() bool { return s.http }
