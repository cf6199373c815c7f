// Package store provides persistence for cipherchat.
//
// It contains concrete implementations of the domain storage interfaces:
//   - BoltUserStore keeps server-side user records in a bolt database.
//   - ProfileFileStore keeps client-side account profiles as JSON on disk.
//
// All methods are concurrency-safe. Neither store ever sees a plaintext
// private key; user records carry only the wrapped EncryptedBlob.
//
// # Layout
//
// The bolt file has two buckets. "users" maps a normalised username to the
// JSON UserRecord. "pubkeys" maps a public key hash to its username, so a key
// can be bound to at most one account.
package store
