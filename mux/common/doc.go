// Package common contains the data structures shared across the mux
// packages: the handshake wire format constants and message types, the
// server and client configuration structures, and the leveled logger
// used throughout the application.
package common
