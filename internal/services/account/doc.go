// Package account implements the server side of registration, login and
// public key lookup.
//
// The server never sees a password. It receives clientAuth, re-hashes it
// with a fresh random serverSalt and stores only the result. Login recomputes
// serverAuth and compares in constant time.
//
// # Errors
//
// Every login failure returns domain.ErrInvalidCredentials, whether the
// username is unknown or the password is wrong. An unknown username still
// costs one serverAuth derivation so response time does not reveal which.
// Structurally invalid requests return errors wrapping
// domain.ErrInvalidPayload.
package account
