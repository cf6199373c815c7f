// Package password derives the three secrets that come from one user password.
//
// # Stages
//
//	clientAuth     = PBKDF2-SHA-512(password, lowercase(username), 25000, 512 bits)
//	serverAuth     = PBKDF2-SHA-512(clientAuth, serverSalt, 50000, 512 bits)
//	wrapPassphrase = PBKDF2-SHA-256(clientAuth || password, keySalt, 25000, 256 bits)
//
// clientAuth is what the client submits; the server never sees the password.
// serverAuth is computed and stored only on the server with a fresh random
// salt per account. wrapPassphrase never leaves the client and protects the
// private key at rest. Every stage has its own salt, so no value is
// derivable from another without the password.
//
// All derived values are hex encoded. Salts are 16 random bytes, hex encoded.
//
// # Notes
//
// The username salt only separates accounts that share a password. It is not
// a replacement for the random serverSalt.
package password
