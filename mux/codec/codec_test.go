package codec

import (
	"bytes"
	"testing"

	"github.com/machingclee/muxtcp/mux/common"
)

// TestSerializeHello tests the exact byte layout of the hello message
func TestSerializeHello(t *testing.T) {
	c := NewBinaryCodec()

	data, err := c.Serialize(common.NewHelloMessage())
	if err != nil {
		t.Fatalf("Failed to serialize hello: %v", err)
	}

	expected := []byte{
		0x00, 0x00, 0x00, 0x00, // type = hello
		0x00, 0x04, // len = 4
		0x00, 0x00, 0x00, 0x01, // version = 1
	}

	if !bytes.Equal(data, expected) {
		t.Errorf("Unexpected wire bytes:\nExpected: %v\nGot:      %v", expected, data)
	}
}

// TestDeserialize tests decoding of valid, mismatched and malformed input
func TestDeserialize(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		wantErr     bool
		wantType    common.MessageType
		wantVersion int32
	}{
		{
			name:        "hello v1",
			data:        []byte{0, 0, 0, 0, 0, 4, 0, 0, 0, 1},
			wantType:    common.MsgTHello,
			wantVersion: 1,
		},
		{
			name:        "hello v2",
			data:        []byte{0, 0, 0, 0, 0, 4, 0, 0, 0, 2},
			wantType:    common.MsgTHello,
			wantVersion: 2,
		},
		{
			name:     "unknown type",
			data:     []byte{0, 0, 0, 7, 0, 4, 0, 0, 0, 1},
			wantType: common.MessageType(7),
		},
		{
			name:    "empty input",
			data:    []byte{},
			wantErr: true,
		},
		{
			name:    "short header",
			data:    []byte{0, 0, 0},
			wantErr: true,
		},
		{
			name:    "truncated payload",
			data:    []byte{0, 0, 0, 0, 0, 4, 0, 0},
			wantErr: true,
		},
		{
			name:    "hello with wrong payload length",
			data:    []byte{0, 0, 0, 0, 0, 2, 0, 1},
			wantErr: true,
		},
	}

	c := NewBinaryCodec()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg common.Message
			err := c.Deserialize(tt.data, &msg)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got message %+v", msg)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if msg.MsgType != tt.wantType {
				t.Errorf("Expected type %d, got %d", tt.wantType, msg.MsgType)
			}
			if msg.Version != tt.wantVersion {
				t.Errorf("Expected version %d, got %d", tt.wantVersion, msg.Version)
			}
		})
	}
}

// TestRoundTrip tests that the hello message survives a serialize and
// deserialize cycle unchanged
func TestRoundTrip(t *testing.T) {
	c := NewBinaryCodec()

	original := common.NewHelloMessage()
	data, err := c.Serialize(original)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}

	var result common.Message
	if err := c.Deserialize(data, &result); err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}

	if result != original {
		t.Errorf("Message doesn't match after round trip:\nOriginal: %+v\nResult: %+v", original, result)
	}
}

// TestSerializeUnknownType tests that only the hello message can be encoded
func TestSerializeUnknownType(t *testing.T) {
	c := NewBinaryCodec()

	if _, err := c.Serialize(common.Message{MsgType: common.MessageType(42)}); err == nil {
		t.Error("Expected error for unknown message type")
	}
}
