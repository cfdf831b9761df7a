// Package server implements the multiplexed TCP server: many concurrent
// client connections on one listening socket, their I/O dispatched by a
// single control loop over readiness notifications instead of one
// goroutine per connection.
//
// The control loop owns every moving part. Each iteration it blocks on
// the readiness poller, services the listening socket first (accepting
// into the fixed-capacity connection table, or rejecting when the table
// is full), then performs exactly one read per ready peer slot. End of
// stream or a read error frees the slot for reuse by the next accept.
//
// Error handling follows a strict two-tier split: setup and readiness
// wait failures are fatal to the whole server, while a failed accept or
// a broken peer abandons only that connection and the loop continues.
// There is no retry policy anywhere.
//
// Upon accepting a connection the server unconditionally writes the
// protocol hello (see the codec package), then treats the peer as a raw
// observe endpoint: received bytes are retained in the slot buffer,
// logged and counted, never interpreted.
package server
