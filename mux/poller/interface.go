package poller

import "errors"

// ErrPollerClosed is returned by Wait after Close has been called
var ErrPollerClosed = errors.New("poller closed")

// Event describes a single readiness notification: the watched descriptor
// has data available for reading (or has been closed by the peer, which is
// also surfaced as readability)
type Event struct {
	// FD is the ready file descriptor
	FD int
}

// IPoller is the interface for readiness multiplexers. It tracks an
// arbitrary set of file descriptors and blocks until at least one of them
// is ready for reading. Readiness is a report, not a guarantee that a full
// message is available
//
// IPoller is not safe for concurrent use; the control loop is its only
// caller
type IPoller interface {
	// Add registers a file descriptor for read readiness
	Add(fd int) error
	// Remove deregisters a file descriptor. It must be called before the
	// descriptor is closed
	Remove(fd int) error
	// Wait blocks until at least one registered descriptor is ready and
	// fills events with the ready set. It returns the number of events
	// written. A Wait error is fatal to the caller: the loop cannot
	// continue without fresh readiness information
	Wait(events []Event) (int, error)
	// Close releases the poller's resources. A blocked Wait returns with
	// an error afterwards
	Close() error
}
