// Package main runs the cipherchat relay: the account API, the public key
// directory and the realtime websocket hub.
//
// HTTP API
//
//	POST /register
//	    Create an account from a RegistrationPayload. 201 on success, 409 when
//	    the username or public key hash is already taken.
//
//	POST /login
//	    Verify {username, clientAuth} and return the owner's record (key salt,
//	    wrapped private key, public key). 401 with a generic body otherwise.
//
//	GET /keys/{hash}
//	GET /users/{username}/key
//	    Public directory lookups. Clients recompute the hash before use.
//
//	GET /ws
//	    Websocket upgrade. Frames are {"event", "data"} JSON objects; see
//	    internal/relay for the event set.
//
//	GET /metrics
//	    Prometheus exposition.
//
// Behaviour
//
// User records live in a bolt database (--db). Messages are never stored:
// the hub forwards each frame to the members of its channel and forgets it.
// SIGINT or SIGTERM drains in-flight requests before exit.
package main
