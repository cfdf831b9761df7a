package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/machingclee/muxtcp/mux/common"
)

// NewBinaryCodec creates a new codec for the fixed big-endian wire format:
// a 6 byte header (4 byte message type, 2 byte payload length) followed by
// the payload. The hello payload is a single 4 byte signed protocol version
func NewBinaryCodec() IWireCodec {
	return &binaryCodecImpl{}
}

// binaryCodecImpl implements IWireCodec using explicit field-by-field
// encoding. Every read is bounds checked, so a short or truncated handshake
// surfaces as a malformed-handshake error instead of garbage field values
type binaryCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.IWireCodec)
// --------------------------------------------------------------------------

func (c binaryCodecImpl) Serialize(msg common.Message) ([]byte, error) {
	if msg.MsgType != common.MsgTHello {
		return nil, fmt.Errorf("cannot serialize message type %s", msg.MsgType)
	}

	result := make([]byte, common.HandshakeSize)

	// Write header
	binary.BigEndian.PutUint32(result[0:4], uint32(msg.MsgType))
	binary.BigEndian.PutUint16(result[4:6], uint16(common.HelloPayloadSize))

	// Write hello payload
	binary.BigEndian.PutUint32(result[common.HeaderSize:], uint32(msg.Version))

	return result, nil
}

func (c binaryCodecImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size for the header
	if len(data) < common.HeaderSize {
		return fmt.Errorf("malformed handshake: got %d bytes, need %d for the header", len(data), common.HeaderSize)
	}

	// Read header
	hdr := common.Header{
		MsgType: common.MessageType(binary.BigEndian.Uint32(data[0:4])),
		Len:     binary.BigEndian.Uint16(data[4:6]),
	}

	// Validate the announced payload length against the available bytes
	if int(hdr.Len) > len(data)-common.HeaderSize {
		return fmt.Errorf("malformed handshake: header announces %d payload bytes, only %d available", hdr.Len, len(data)-common.HeaderSize)
	}

	msg.MsgType = hdr.MsgType
	msg.Version = 0

	// Only the hello payload is understood. Unknown types deserialize with
	// the type preserved so callers can report the mismatch
	if hdr.MsgType != common.MsgTHello {
		return nil
	}

	if int(hdr.Len) != common.HelloPayloadSize {
		return fmt.Errorf("malformed handshake: hello payload must be %d bytes, header announces %d", common.HelloPayloadSize, hdr.Len)
	}

	msg.Version = int32(binary.BigEndian.Uint32(data[common.HeaderSize : common.HeaderSize+common.HelloPayloadSize]))

	return nil
}
