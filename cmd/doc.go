// Package cmd implements the command-line interface for msgt, a message transport for
// length-prefixed messages over TCP. It provides a server that handles events once per
// tick, an interactive client and a round-trip benchmark.
//
// The package is organized into several subpackages:
//
//   - serve: Runs a server in echo or broadcast mode, optionally exposing metrics
//   - connect: Interactive client, sends stdin lines and prints all events
//   - bench: Measures round-trip latency and throughput against an echo server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See msgt -help for a list of all commands.
package cmd
