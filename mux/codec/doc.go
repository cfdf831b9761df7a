// Package codec implements serialization of the handshake wire format.
//
// The wire format is a fixed big-endian layout:
//
//	+----------------+----------------+----------------------+
//	| type (4 bytes) | len (2 bytes)  | payload (len bytes)  |
//	+----------------+----------------+----------------------+
//
// The only defined message is the hello (type 0), whose payload is a
// 4 byte signed protocol version. Decoding is done field by field with
// bounds validation: truncated input is reported as a malformed
// handshake, while an unknown message type or an unexpected version is
// preserved in the decoded message so the caller can report it as a
// protocol mismatch.
package codec
