// Package identity is the client side of account registration and login.
//
// Registration derives clientAuth from the password, generates a P-521 key
// pair, wraps the private key under wrapPassphrase and sends only the wrapped
// blob, public key and salts to the server. Login fetches the blob back,
// unwraps it and loads it into the session keyring. Logout wipes the keyring.
//
// # Notes
//
// The public key returned at login is checked against its hash, against the
// unwrapped private key, and against the profile saved on first use for this
// server. A server that substitutes a different key fails login.
package identity
