// Package base provides the transport engine shared by all network media. It turns an
// established byte stream into length-prefixed messages and back, and implements the
// connection lifecycle for servers and clients. Protocol-specific connectors (see the
// tcp package) only create sockets and apply socket options.
//
// The package focuses on:
//   - Message framing: a 4-byte big-endian length header followed by the payload
//   - One receive goroutine and one send goroutine per connection
//   - Load shedding: a connection whose inbound or outbound queue reaches the queue
//     limit is disconnected instead of growing memory without bound
//   - Clean shutdown: closing a connection is the single cancellation path for both of
//     its goroutines, Stop and Disconnect never wait for them
//
// Key Components:
//
//   - IServerConnector/IClientConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - serverTransport: Accepts connections, assigns connection ids (starting at 1) and
//     keeps the active connections in a concurrent map. All connections share one
//     inbound queue.
//
//   - clientTransport: Connects to one server in the background and tracks the
//     Connecting / Connected state of the current session.
//
// Receive loop: emits Connected, then reads one frame at a time (blocking) and emits a
// Data event per frame. On any error it closes the socket and then emits Disconnected.
// Invalid length headers (zero, negative or above the maximum message size) end the
// connection before any buffer for the claimed size is allocated.
//
// Send loop: drains the whole send queue at once and writes all pending messages with a
// single write, then waits until Send wakes it up again or the connection is closed.
//
// Thread Safety:
//
//	All public methods are thread-safe. GetNextMessage is meant to be called by a single
//	polling goroutine, e.g. once per tick of a game loop.
package base
