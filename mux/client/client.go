package client

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/machingclee/muxtcp/mux/codec"
	"github.com/machingclee/muxtcp/mux/common"
)

var Logger = common.GetLogger("client")

// --------------------------------------------------------------------------
// Probe Outcome
// --------------------------------------------------------------------------

// Outcome classifies the result of a handshake probe. Mismatches are
// informational outcomes, not errors: the probe succeeded, the server just
// speaks something else
type Outcome int

const (
	// OutcomeMatch means the server announced the expected protocol version
	OutcomeMatch Outcome = iota
	// OutcomeVersionMismatch means a hello with a different version arrived
	OutcomeVersionMismatch
	// OutcomeTypeMismatch means the first message was not a hello
	OutcomeTypeMismatch
	// OutcomeMalformed means the handshake bytes could not be decoded
	OutcomeMalformed
	// OutcomeUnreachable means the connection could not be established
	OutcomeUnreachable
)

// String returns the string representation of an Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeMatch:
		return "match"
	case OutcomeVersionMismatch:
		return "version mismatch"
	case OutcomeTypeMismatch:
		return "type mismatch"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Result is the outcome of probing a single endpoint
type Result struct {
	// Endpoint is the probed host:port
	Endpoint string
	// Outcome classifies the probe result
	Outcome Outcome
	// Version is the protocol version the server announced (hello only)
	Version int32
	// MsgType is the received message type
	MsgType common.MessageType
	// Err carries the underlying failure for unreachable and malformed
	// outcomes
	Err error
}

// Report returns the human readable outcome line
func (r Result) Report() string {
	switch r.Outcome {
	case OutcomeMatch:
		return fmt.Sprintf("Server connected to protocol v%d", r.Version)
	case OutcomeVersionMismatch:
		return fmt.Sprintf("Protocol version mismatch (server speaks v%d)", r.Version)
	case OutcomeTypeMismatch:
		return fmt.Sprintf("Protocol mismatch (unexpected message type %d)", r.MsgType)
	case OutcomeMalformed:
		return fmt.Sprintf("Malformed handshake: %v", r.Err)
	case OutcomeUnreachable:
		return fmt.Sprintf("Connection failed: %v", r.Err)
	default:
		return "Unknown outcome"
	}
}

// --------------------------------------------------------------------------
// Hello Client
// --------------------------------------------------------------------------

// HelloClient performs the one-shot handshake exchange: connect, read
// exactly one handshake, decode, report. No acknowledgement, no retry
type HelloClient struct {
	config common.ClientConfig
	codec  codec.IWireCodec
}

// NewHelloClient creates a handshake client for the configured endpoints
func NewHelloClient(config common.ClientConfig, wire codec.IWireCodec) *HelloClient {
	return &HelloClient{
		config: config,
		codec:  wire,
	}
}

// Probe dials the endpoint, reads exactly one handshake and classifies the
// result. Every failure is final; there is no retry
func (c *HelloClient) Probe(endpoint string) Result {
	timeout := time.Duration(c.config.TimeoutSecond) * time.Second

	conn, err := net.DialTimeout("tcp", endpoint, timeout)
	if err != nil {
		return Result{Endpoint: endpoint, Outcome: OutcomeUnreachable, Err: err}
	}
	defer conn.Close()

	if timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return Result{Endpoint: endpoint, Outcome: OutcomeUnreachable, Err: err}
		}
	}

	// A single read of exactly header plus hello payload
	buf := make([]byte, common.HandshakeSize)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return Result{
			Endpoint: endpoint,
			Outcome:  OutcomeMalformed,
			Err:      fmt.Errorf("short handshake read: %w", err),
		}
	}

	var msg common.Message
	if err := c.codec.Deserialize(buf, &msg); err != nil {
		return Result{Endpoint: endpoint, Outcome: OutcomeMalformed, Err: err}
	}

	if msg.MsgType != common.MsgTHello {
		return Result{Endpoint: endpoint, Outcome: OutcomeTypeMismatch, MsgType: msg.MsgType}
	}
	if msg.Version != common.ProtocolVersion {
		return Result{Endpoint: endpoint, Outcome: OutcomeVersionMismatch, MsgType: msg.MsgType, Version: msg.Version}
	}

	return Result{Endpoint: endpoint, Outcome: OutcomeMatch, MsgType: msg.MsgType, Version: msg.Version}
}

// ProbeAll probes every configured endpoint concurrently. Results are
// returned in endpoint order
func (c *HelloClient) ProbeAll() []Result {
	results := xsync.NewMapOf[string, Result]()

	var wg sync.WaitGroup
	for _, endpoint := range c.config.Endpoints {
		wg.Add(1)
		go func(endpoint string) {
			defer wg.Done()
			results.Store(endpoint, c.Probe(endpoint))
		}(endpoint)
	}
	wg.Wait()

	out := make([]Result, 0, len(c.config.Endpoints))
	for _, endpoint := range c.config.Endpoints {
		if r, ok := results.Load(endpoint); ok {
			out = append(out, r)
		}
	}
	return out
}
