// Package crypto is the primitive adapter used by cipherchat.
//
// Contents
//
//   - Secure randomness, SHA-256/SHA-512 digests and PBKDF2 (RandomBytes,
//     Digest, PBKDF2)
//   - P-521 key agreement (GenerateKeyAgreementPair, DeriveSharedKey,
//     DeriveSharedBits)
//   - AES-256-GCM sealing with caller-supplied 12-byte IVs (AEADSeal, AEADOpen)
//   - The EncryptedBlob wire codec, base64(iv || ciphertext || tag)
//     (EncodeBlob, DecodeBlob)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//
// # Notes
//
// The adapter carries no policy. Iteration counts, salts, curves and key
// sizes are chosen by the protocol packages above it. Std is stateless apart
// from its optional Rand source, so one value may be shared by any number of
// goroutines. Tests swap Rand for a fixed reader to get reproducible IVs and
// salts.
//
// # Errors
//
// ErrInput marks malformed keys, sizes or encodings. ErrAuthentication marks
// an AEAD tag mismatch: wrong key or modified ciphertext. Neither is ever
// retried.
package crypto
