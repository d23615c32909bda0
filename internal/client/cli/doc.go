// Package cli provides the interactive mxkeeper command-line client.
//
// It wires configuration, the local account store, the homeserver auth
// client, and an interactive REPL for managing multiple Matrix accounts.
// Typical flow: unlock the application-password gate, then add, switch
// between and inspect accounts.
//
// Key features:
//   - Add existing accounts (password login) and register new ones
//   - List stored accounts and their remote profiles
//   - Switch the active account with automatic re-login
//   - Manage the application password and the duress (nuke) password
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
