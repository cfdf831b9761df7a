// Package cmd implements the command-line interface for the muxtcp server.
// It provides a hierarchical command structure with operations for running
// the server and probing it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring the muxtcp server
//   - hello: Commands for probing servers with the protocol handshake
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See muxtcp -help for a list of all commands.
package cmd
