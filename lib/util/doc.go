// Package util provides the thread-safe container primitives used by the transport engine.
//
// The package contains:
//   - queue: A lock-based FIFO queue with an atomic "drain all" operation, used for both
//     the inbound event queue (engine -> poller) and the per-connection send queue
//     (producer -> send loop)
//   - pool: A lock-based object pool with a factory function, used to reuse the send
//     loop's batch buffers
//
// Both primitives use a single mutex per instance.
package util
