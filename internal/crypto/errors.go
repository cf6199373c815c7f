package crypto

import "errors"

var (
	// ErrInput is returned for malformed key material, sizes or encodings.
	ErrInput = errors.New("invalid cryptographic input")

	// ErrAuthentication is returned when an AEAD tag does not verify.
	ErrAuthentication = errors.New("authentication failed: wrong key or tampered ciphertext")

	// ErrUnsupportedCurve is returned for curves the adapter does not provide.
	ErrUnsupportedCurve = errors.New("unsupported curve")
)
