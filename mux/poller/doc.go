// Package poller provides readiness multiplexing: it watches a set of
// file descriptors and blocks until at least one of them is ready for
// reading.
//
// The interface deliberately abstracts over the platform primitive. The
// Linux implementation uses epoll, whose capacity scales with the number
// of watched descriptors rather than their numeric values, so the
// connection table capacity is not coupled to a descriptor ceiling the
// way a select-based watch set would be. The observable semantics are
// the classic ones: readiness is reported, it does not guarantee that a
// full protocol message is available.
//
// A poller is owned by a single control loop and is not safe for
// concurrent use, with one exception: Close may be called from another
// goroutine and wakes a blocked Wait.
package poller
