package codec

import "github.com/machingclee/muxtcp/mux/common"

// IWireCodec is the interface for all handshake wire codecs
type IWireCodec interface {
	// Serialize serializes a Message into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into a Message
	// It takes a byte array and a pointer to a Message as parameters
	// It returns an error if the data is truncated or malformed. A message
	// with an unknown type or version deserializes without error so that
	// callers can report the mismatch as an outcome rather than a failure
	Deserialize(b []byte, msg *common.Message) error
}
