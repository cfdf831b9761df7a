// Package mux provides the readiness-multiplexed TCP server and the client
// that speaks its handshake protocol. A single control loop serves a fixed
// number of peers without spawning a goroutine per connection.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities shared across the system,
//     including the wire protocol constants, configuration structures, and
//     logging.
//
//   - poller: The readiness notification abstraction, backed by epoll on
//     Linux, that tells the control loop which sockets have pending work.
//
//   - conntab: The fixed-capacity connection table that owns every peer
//     slot, its receive buffer and its lifecycle.
//
//   - codec: Wire serialization for the handshake message, converting
//     between Message values and the big-endian byte layout on the socket.
//
//   - server: The server itself: listening socket setup, the control loop,
//     the accept handler and the peer I/O handler.
//
//   - client: The handshake client that connects to a server, reads the
//     hello it sends on accept and reports the protocol version outcome.
package mux
