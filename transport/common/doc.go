// Package common provides the data structures shared by the transport packages and the
// command line tool.
//
// Key Components:
//
//   - Message: The event type delivered to the poller. Every connection produces exactly
//     one Connected event, any number of Data events in wire order and exactly one
//     Disconnected event.
//
//   - ServerConfig / ClientConfig: Configuration for servers and clients, including the
//     queue limit (load shedding threshold), the maximum message size (allocation attack
//     protection), the send timeout and the TCP socket options.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's logger facade,
//     so every package can use logger.GetLogger(name) with consistent formatting.
package common
