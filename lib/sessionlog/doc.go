// Package sessionlog provides an optional sqlite-backed audit log of
// connection lifecycle events (connected, disconnected, rejected).
//
// Persistence is fully decoupled from the server's control loop: Record
// only appends to an in-memory FIFO queue and signals a background
// writer, so a slow disk can never stall connection handling. Close
// flushes the queue before shutting the database down.
package sessionlog
