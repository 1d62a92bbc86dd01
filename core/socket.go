package core

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// controlSocket applies options to the listening socket before bind.
// SO_REUSEADDR is always set so restarts do not trip over sockets in
// TIME_WAIT; SO_REUSEPORT additionally lets multiple processes share
// the port when enabled.
func controlSocket(reusePort bool) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var serr error
		err := c.Control(func(fd uintptr) {
			serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			if serr == nil && reusePort {
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			}
		})
		if err != nil {
			return err
		}
		return serr
	}
}

// transientIOError reports whether err is retryable rather than a real
// failure. Interrupted syscalls and spurious readiness wakeups are
// retried; everything else ends the operation.
func transientIOError(err error) bool {
	return errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN)
}
