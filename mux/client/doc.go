// Package client implements the handshake side of the protocol: connect
// to a server, read exactly one hello, and report whether the announced
// protocol version matches.
//
// A protocol or version mismatch is an informational outcome, not an
// error path; only connection failures and undecodable handshakes carry
// an underlying error. Multiple endpoints can be probed concurrently
// with ProbeAll.
package client
