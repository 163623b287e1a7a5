package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	// DefaultQueueLimit is the default limit for inbound and outbound queues.
	// With the default max message size of 16 KB, 10.000 messages are up to 160 MB
	// per connection, and a queue that long means seconds of latency anyway.
	DefaultQueueLimit = 10000

	// DefaultMaxMessageSize protects against allocation attacks: a forged length
	// header could otherwise make the receiver allocate gigabytes.
	DefaultMaxMessageSize = 16 * 1024

	// DefaultSendTimeoutMillisecond is the time after which a blocked write is abandoned
	DefaultSendTimeoutMillisecond = 5000

	// DefaultConnectTimeoutSecond bounds the client's dial
	DefaultConnectTimeoutSecond = 10
)

// --------------------------------------------------------------------------
// Socket configuration structs
// --------------------------------------------------------------------------

// SocketConf holds the socket buffer sizes (0 = OS default)
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific socket options
type TCPConf struct {
	// TCPNoDelay disables Nagle's algorithm: lower latency and CPU, more bandwidth
	TCPNoDelay bool
	// TCPKeepAliveSec enables keep-alive with the given period (0 = disabled)
	TCPKeepAliveSec int
	// TCPLingerSec sets SO_LINGER (-1 = OS default)
	TCPLingerSec int
}

// TransportConfig holds all settings shared by the server and the client
type TransportConfig struct {
	// QueueLimit is the maximum length of the inbound and every outbound queue.
	// Reaching it disconnects the offending connection (load shedding).
	QueueLimit int

	// MaxMessageSize is the largest payload that may be sent or received
	MaxMessageSize int

	// SendTimeoutMillisecond is the write deadline for each batch write (0 = none)
	SendTimeoutMillisecond int

	SocketConf
	TCPConf
}

// SendTimeout returns the send timeout as duration
func (c *TransportConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutMillisecond) * time.Millisecond
}

// Validate checks the settings for values the engine cannot work with
func (c *TransportConfig) Validate() error {
	if c.QueueLimit < 1 {
		return fmt.Errorf("queue limit must be at least 1, got %d", c.QueueLimit)
	}
	if c.MaxMessageSize < 1 {
		return fmt.Errorf("max message size must be at least 1, got %d", c.MaxMessageSize)
	}
	if c.SendTimeoutMillisecond < 0 {
		return fmt.Errorf("send timeout must not be negative, got %d", c.SendTimeoutMillisecond)
	}
	return nil
}

func defaultTransportConfig() TransportConfig {
	return TransportConfig{
		QueueLimit:             DefaultQueueLimit,
		MaxMessageSize:         DefaultMaxMessageSize,
		SendTimeoutMillisecond: DefaultSendTimeoutMillisecond,
		TCPConf: TCPConf{
			TCPNoDelay:   true,
			TCPLingerSec: -1,
		},
	}
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for a server
type ServerConfig struct {
	Transport TransportConfig

	// MaxConnections limits the number of simultaneously accepted connections (0 = unlimited).
	// Further connections wait in the OS backlog until a slot frees up.
	MaxConnections int

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns a server configuration with all defaults applied
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Transport: defaultTransportConfig(),
		LogLevel:  "info",
	}
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection, addField := formatHelpers(&sb)

	addSection("Server")
	addField("Max Connections", limitString(c.MaxConnections))
	c.Transport.format(addSection, addField)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters for a client
type ClientConfig struct {
	Transport TransportConfig

	// ConnectTimeoutSecond bounds the dial (0 = no timeout)
	ConnectTimeoutSecond int
}

// DefaultClientConfig returns a client configuration with all defaults applied
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Transport:            defaultTransportConfig(),
		ConnectTimeoutSecond: DefaultConnectTimeoutSecond,
	}
}

// ConnectTimeout returns the connect timeout as duration
func (c *ClientConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection, addField := formatHelpers(&sb)

	addSection("Client")
	addField("Connect Timeout", fmt.Sprintf("%d sec", c.ConnectTimeoutSecond))
	c.Transport.format(addSection, addField)

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (c *TransportConfig) format(addSection func(string), addField func(string, string)) {
	addSection("Transport")
	addField("Queue Limit", strconv.Itoa(c.QueueLimit))
	addField("Max Message Size", fmt.Sprintf("%d bytes", c.MaxMessageSize))
	addField("Send Timeout", fmt.Sprintf("%d ms", c.SendTimeoutMillisecond))

	addSection("Socket")
	addField("TCP No Delay", strconv.FormatBool(c.TCPNoDelay))
	addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.TCPLingerSec))
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.WriteBufferSize))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.ReadBufferSize))
}

// formatHelpers creates the helper functions for consistent formatting
func formatHelpers(sb *strings.Builder) (func(string), func(string, string)) {
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}
	return addSection, addField
}

func limitString(limit int) string {
	if limit <= 0 {
		return "unlimited"
	}
	return strconv.Itoa(limit)
}
