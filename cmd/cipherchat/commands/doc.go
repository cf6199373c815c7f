// Package commands defines the cipherchat CLI and wires dependencies for subcommands.
//
// Commands
//
//   - register     Create an account on the server
//   - login        Check credentials and print the account fingerprint
//   - fingerprint  Print your fingerprint, or a user's from the directory
//   - verify       Compare a user's fingerprint with one read out of band
//   - channel      Print the private channel id shared with a user
//   - say          Post a plaintext message to the global room
//   - send         Seal and send a private message to a user
//   - listen       Stay online and print incoming messages
//
// # Implementation
//
// The root command loads configuration through viper (flags, CIPHERCHAT_*
// environment variables, $HOME/.cipherchat/config.yaml) and builds the
// dependency graph before any subcommand runs. Commands that need the private
// key prompt for the password and log in first; the key is wiped when the
// command returns.
package commands
