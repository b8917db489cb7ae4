package transport

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// IsPeerGone reports whether the error means the other side has already left, so there's
// nobody to respond to and nothing to report about.
func IsPeerGone(err error) bool {
	return errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe)
}

// IsTimeout reports whether the error is caused by an exceeded I/O deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded)
}
