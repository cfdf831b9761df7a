package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

// The defaults mirror the protocol's reference constants: port 5555 for the
// handshake exchange, a table of 256 peers with 4 KB receive buffers and a
// small listen backlog.
const (
	DefaultPort       = 5555
	DefaultMaxPeers   = 256
	DefaultBufferSize = 4096
	DefaultBacklog    = 10
)

// --------------------------------------------------------------------------
// Socket tuning configuration
// --------------------------------------------------------------------------

// SocketConf holds kernel socket buffer settings applied to accepted
// connections. A value of 0 keeps the kernel default
type SocketConf struct {
	ReadBufferSize  int
	WriteBufferSize int
}

// TCPConf holds TCP specific settings applied to accepted connections
type TCPConf struct {
	// TCPNoDelay disables Nagle's algorithm when true
	TCPNoDelay bool
	// TCPKeepAliveSec enables keep-alive probes with the given interval
	// in seconds. 0 disables keep-alive
	TCPKeepAliveSec int
	// TCPLingerSec sets the socket linger time in seconds. Negative values
	// keep the kernel default
	TCPLingerSec int

	SocketConf
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for the multiplexed server
type ServerConfig struct {
	// Host is the local address to bind to. Empty binds all interfaces
	Host string
	// Port is the TCP port the listener binds to
	Port int

	// MaxPeers is the fixed capacity of the connection table. Connections
	// arriving while the table is full are rejected
	MaxPeers int
	// BufferSize is the fixed receive buffer size of each peer slot
	BufferSize int
	// Backlog is the listen backlog passed to the kernel
	Backlog int

	// TCP socket tuning for accepted connections
	TCP TCPConf

	// MetricsEndpoint is the optional address of the metrics HTTP listener
	// (e.g. "localhost:9100"). Empty disables the listener
	MetricsEndpoint string

	// SessionDBPath is the optional path of the sqlite session audit log.
	// Empty disables session logging
	SessionDBPath string

	// Logging configuration
	LogLevel string
}

// ListenAddr returns the host:port string the server binds to
func (c *ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Listener")
	addField("Address", c.ListenAddr())
	addField("Backlog", strconv.Itoa(c.Backlog))

	addSection("Connection Table")
	addField("Max Peers", strconv.Itoa(c.MaxPeers))
	addField("Receive Buffer", fmt.Sprintf("%d bytes", c.BufferSize))

	addSection("TCP Tuning")
	addField("No Delay", strconv.FormatBool(c.TCP.TCPNoDelay))
	addField("Keep Alive", fmt.Sprintf("%d sec", c.TCP.TCPKeepAliveSec))
	addField("Linger", fmt.Sprintf("%d sec", c.TCP.TCPLingerSec))

	if c.MetricsEndpoint != "" {
		addSection("Metrics")
		addField("Endpoint", c.MetricsEndpoint)
	}

	if c.SessionDBPath != "" {
		addSection("Session Log")
		addField("Database", c.SessionDBPath)
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters for the handshake client
type ClientConfig struct {
	// Endpoints are the host:port addresses to probe
	Endpoints []string
	// TimeoutSecond bounds connect and read for a single probe
	TimeoutSecond int

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
