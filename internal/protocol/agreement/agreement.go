// Package agreement derives per-peer symmetric keys from identity keys.
//
// For any identities A and B,
//
//	DeriveSharedKey(A.private, B.public) == DeriveSharedKey(B.private, A.public)
//
// The message key is the leftmost 256 bits of the P-521 ECDH output, which
// is what a WebCrypto deriveKey(ECDH, AES-GCM-256) produces for the same
// inputs. DeriveSharedDigest hashes the raw output instead, so a digest used
// for addressing is never the message key.
package agreement

import (
	"crypto/ecdh"
	"fmt"

	"cipherchat/internal/crypto"
	"cipherchat/internal/domain"
	"cipherchat/internal/protocol/identity"
)

// SymmetricKey is a 256-bit AES-GCM key.
type SymmetricKey [crypto.KeySize]byte

// Wipe zeroes the key in place.
func (k *SymmetricKey) Wipe() { crypto.Wipe(k[:]) }

// secretBits is the full P-521 ECDH output length.
const secretBits = 528

// Agreement performs key agreement through a primitive adapter.
type Agreement struct {
	prim crypto.Primitives
}

// New returns an Agreement over p; nil means crypto.Default.
func New(p crypto.Primitives) *Agreement {
	if p == nil {
		p = crypto.Default
	}
	return &Agreement{prim: p}
}

// DeriveSharedKey returns the symmetric key shared by own and peer.
func (a *Agreement) DeriveSharedKey(own domain.PrivateKey, peer domain.PublicKey) (SymmetricKey, error) {
	var key SymmetricKey
	sk, pk, err := parsePair(own, peer)
	if err != nil {
		return key, err
	}
	raw, err := a.prim.DeriveSharedKey(sk, pk)
	if err != nil {
		return key, fmt.Errorf("derive shared key: %w", err)
	}
	copy(key[:], raw)
	crypto.Wipe(raw)
	return key, nil
}

// DeriveSharedDigest returns the first bits of SHA-256 over the raw shared
// secret. bits must be a multiple of 8 no larger than 256.
func (a *Agreement) DeriveSharedDigest(own domain.PrivateKey, peer domain.PublicKey, bits int) ([]byte, error) {
	if bits <= 0 || bits%8 != 0 || bits > 256 {
		return nil, fmt.Errorf("%w: digest bits %d", crypto.ErrInput, bits)
	}
	sk, pk, err := parsePair(own, peer)
	if err != nil {
		return nil, err
	}
	secret, err := a.prim.DeriveSharedBits(sk, pk, secretBits)
	if err != nil {
		return nil, fmt.Errorf("derive shared bits: %w", err)
	}
	defer crypto.Wipe(secret)

	sum, err := a.prim.Digest(crypto.SHA256, secret)
	if err != nil {
		return nil, err
	}
	return sum[:bits/8], nil
}

func parsePair(own domain.PrivateKey, peer domain.PublicKey) (*ecdh.PrivateKey, *ecdh.PublicKey, error) {
	sk, err := identity.ParsePrivateKey(own)
	if err != nil {
		return nil, nil, fmt.Errorf("own key: %w", err)
	}
	pk, err := identity.ParsePublicKey(peer)
	if err != nil {
		return nil, nil, fmt.Errorf("peer key: %w", err)
	}
	return sk, pk, nil
}
