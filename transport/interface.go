package transport

import (
	"net"

	"github.com/ValentinKolb/msgt/transport/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// IServerTransport accepts any number of clients and turns their byte streams into
// Connected / Data / Disconnected events in a single shared inbound queue
type IServerTransport interface {
	// Start listens on all local addresses and accepts connections in the background.
	// Returns false if the server is already active or the port cannot be bound.
	Start(port int) bool
	// Stop closes the listener and all connections. Active is false once Stop returns,
	// the connection goroutines finish in the background.
	Stop()
	// Active reports whether the server is listening
	Active() bool
	// Send queues a message for a connection without blocking.
	// Returns false for unknown ids, oversized messages and overloaded connections
	// (which are disconnected).
	Send(connectionID int, data []byte) bool
	// Disconnect closes a connection. Returns false if the id is unknown.
	// The Disconnected event follows asynchronously.
	Disconnect(connectionID int) bool
	// GetClientAddress returns the remote IP of a connection or "" if the id is unknown
	GetClientAddress(connectionID int) string
	// GetNextMessage removes and returns the oldest event
	GetNextMessage() (common.Message, bool)
	// NextConnectionId reserves the next connection id
	NextConnectionId() int
	// LocalAddr returns the address of the listener or nil if the server is not active
	LocalAddr() net.Addr
	// ReceiveQueueCount returns the number of events waiting in the inbound queue
	ReceiveQueueCount() int
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IClientTransport connects to a single server and delivers its events (always with
// connection id 0) through an inbound queue
type IClientTransport interface {
	// Connect starts connecting in the background. The client is Connecting until the
	// attempt resolves. A failed attempt produces a Disconnected event.
	Connect(host string, port int)
	// Disconnect cancels a pending attempt or closes the connection.
	// Connecting and Connected are false once Disconnect returns.
	Disconnect()
	// Connecting reports whether a connect attempt is pending
	Connecting() bool
	// Connected reports whether the connection is established
	Connected() bool
	// Send queues a message without blocking
	Send(data []byte) bool
	// GetNextMessage removes and returns the oldest event
	GetNextMessage() (common.Message, bool)
	// ReceiveQueueCount returns the number of events waiting in the inbound queue
	ReceiveQueueCount() int
}
