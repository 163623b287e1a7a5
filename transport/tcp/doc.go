// Package tcp implements the TCP medium of the message transport. It provides concrete
// implementations of the base package's connector interfaces, everything else (framing,
// queues, connection goroutines) is inherited from the base package.
//
// Key Components:
//
//   - serverConnector: listens dual-stack on all local addresses, so IPv4 and IPv6
//     clients can connect to the same port
//
//   - clientConnector: resolves host names (e.g. "localhost") and dials with a context,
//     so a pending connect can be cancelled by Disconnect
//
// Both connectors apply the socket options of common.TCPConf and common.SocketConf to
// every connection. No-delay is enabled by default, a message should be sent as soon as
// the send loop writes it.
package tcp
