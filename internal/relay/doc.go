// Package relay carries cipherchat traffic between clients and the server.
//
// Client side:
//   - HTTPClient talks to the account API (register, login, key directory).
//   - WSConn is an explicit handle on the real-time relay; create one per
//     session with Dial and pass it to the services that need it.
//
// Server side:
//   - Hub routes frames between attached peers by channel membership.
//   - Server exposes the account API, the websocket endpoint and metrics.
//
// Frames are JSON objects {"event": name, "data": payload}. Event names are
// listed in the domain package and are part of the wire contract.
//
// The relay never needs plaintext. It routes on channel and the two public
// key hashes and treats every encrypted field as opaque.
package relay
