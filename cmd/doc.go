// Package cmd implements the command-line interface for the hotrod
// key-value cache. It provides a hierarchical command structure with
// operations for running the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for cache operations (get, put, remove, etc.)
//   - ping: Command for probing server and cache availability
//   - serve: Commands for starting and configuring the hotrod server
//   - shell: Interactive client console
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See hotrod -help for a list of all commands.
package cmd
