package common

// --------------------------------------------------------------------------
// Wire Format Constants
// --------------------------------------------------------------------------

const (
	// HeaderSize is the encoded size of a Header in bytes
	// (4 bytes message type + 2 bytes payload length, both big endian)
	HeaderSize = 6

	// HelloPayloadSize is the encoded size of the hello payload in bytes
	// (a single int32 protocol version, big endian)
	HelloPayloadSize = 4

	// HandshakeSize is the total number of bytes exchanged during the
	// handshake (header plus hello payload)
	HandshakeSize = HeaderSize + HelloPayloadSize

	// ProtocolVersion is the only protocol version this implementation
	// speaks. A peer announcing any other version is rejected by the client
	ProtocolVersion int32 = 1
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Header is the fixed wire header that precedes every message payload
type Header struct {
	// Type of the message that follows
	MsgType MessageType

	// Len is the length of the payload in bytes
	Len uint16
}

// Message represents a single decoded wire message. Only the hello message
// exists in this protocol, so the payload is fully described by Version
type Message struct {
	// Type of message
	MsgType MessageType

	// Version is the protocol version carried by a hello payload
	Version int32
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewHelloMessage creates the hello message the server sends to every
// newly accepted peer
func NewHelloMessage() Message {
	return Message{
		MsgType: MsgTHello,
		Version: ProtocolVersion,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message exchanged during the handshake
type MessageType uint32

// String returns the string representation of a MessageType
func (t MessageType) String() string {
	switch t {
	case MsgTHello:
		return "hello"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// MsgTHello is the protocol hello announcing the server's version
	MsgTHello MessageType = iota
)
