// Package transport defines the interfaces of the message transport.
// It provides a common contract that all transport implementations must fulfill, so
// that higher level protocols (game networking, RPC, ...) do not depend on the network
// medium.
//
// The package focuses on:
//   - Turning byte streams into discrete messages (framing is the transport's job)
//   - Polling instead of callbacks: events are queued and the caller drains them, e.g.
//     once per tick of a game loop
//   - Never blocking the caller: Send only queues, Connect resolves in the background
//
// Key Components:
//
//   - IServerTransport: Interface for server-side implementations that accept many
//     connections and identify them by connection id.
//
//   - IClientTransport: Interface for client-side implementations with exactly one
//     connection.
//
// The shared engine lives in the base package, the TCP connectors in the tcp package.
package transport
