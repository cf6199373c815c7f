// Package app wires application dependencies for the CLI.
//
// Config is loaded by viper from flags, CIPHERCHAT_* environment variables and
// an optional config.yaml in the home directory. NewWire builds the account
// client, profile store, keyring and identity service from it; Connect opens
// the realtime relay and returns a message service bound to the session.
package app
