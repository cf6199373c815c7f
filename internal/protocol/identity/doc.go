// Package identity generates, serializes and fingerprints account key pairs.
//
// # Overview
//
// An identity is one P-521 key agreement pair created at registration and
// kept for the lifetime of the account. There is no rotation.
//
// Keys travel as JWK records:
//
//	{"crv":"P-521","ext":true,"key_ops":[],"kty":"EC","x":"...","y":"..."}
//
// The private record adds "d" and the deriveKey/deriveBits operations.
// Fields are always emitted in the order above, so a public key serializes to
// the same bytes every time and its hash is stable.
//
// # Fingerprints
//
// The public key hash is hex(SHA-256(serialized public key)). Anyone using a
// public key they did not generate must recompute it (VerifyFingerprint).
// HumanFingerprint renders the first 32 hex digits as eight uppercase groups
// of four for out-of-band comparison.
//
// # Errors
//
// Malformed records wrap crypto.ErrInput; curves other than P-521 wrap
// crypto.ErrUnsupportedCurve.
package identity
