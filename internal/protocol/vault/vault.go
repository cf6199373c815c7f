// Package vault encrypts the serialized private key for storage at rest.
//
// The wrapping key is PBKDF2-SHA-256(passphrase, keySalt, 25000, 256 bits)
// and the blob is AES-256-GCM with a fresh 12-byte IV, encoded as
// base64(iv || ciphertext || tag). A wrong passphrase or salt fails the tag
// check; it never yields a parseable but different key.
package vault

import (
	"errors"
	"fmt"

	"cipherchat/internal/crypto"
	"cipherchat/internal/domain"
	"cipherchat/internal/protocol/identity"
	"cipherchat/internal/protocol/password"
)

// Iterations is the PBKDF2 work factor for the wrapping key.
const Iterations = 25000

// Vault wraps and unwraps private keys through a primitive adapter.
type Vault struct {
	prim crypto.Primitives
}

// New returns a Vault over p; nil means crypto.Default.
func New(p crypto.Primitives) *Vault {
	if p == nil {
		p = crypto.Default
	}
	return &Vault{prim: p}
}

func (v *Vault) key(passphrase, keySalt string) ([]byte, error) {
	salt, err := password.DecodeSalt(keySalt)
	if err != nil {
		return nil, err
	}
	if passphrase == "" {
		return nil, fmt.Errorf("%w: empty passphrase", crypto.ErrInput)
	}
	return v.prim.PBKDF2([]byte(passphrase), salt, Iterations, crypto.SHA256, crypto.KeySize*8)
}

// Wrap encrypts priv under a key derived from passphrase and keySalt.
func (v *Vault) Wrap(priv domain.PrivateKey, passphrase, keySalt string) (domain.EncryptedBlob, error) {
	if len(priv) == 0 {
		return "", fmt.Errorf("%w: empty private key", crypto.ErrInput)
	}
	k, err := v.key(passphrase, keySalt)
	if err != nil {
		return "", fmt.Errorf("derive wrap key: %w", err)
	}
	defer crypto.Wipe(k)

	iv, err := v.prim.RandomBytes(crypto.IVSize)
	if err != nil {
		return "", err
	}
	sealed, err := v.prim.AEADSeal(k, iv, priv)
	if err != nil {
		return "", fmt.Errorf("seal private key: %w", err)
	}
	return domain.EncryptedBlob(crypto.EncodeBlob(iv, sealed)), nil
}

// Unwrap decrypts blob and validates the recovered key record. It returns
// crypto.ErrAuthentication for a wrong passphrase or salt and
// crypto.ErrInput for a malformed blob.
func (v *Vault) Unwrap(blob domain.EncryptedBlob, passphrase, keySalt string) (domain.PrivateKey, error) {
	iv, sealed, err := crypto.DecodeBlob(blob.String())
	if err != nil {
		return nil, err
	}
	k, err := v.key(passphrase, keySalt)
	if err != nil {
		return nil, fmt.Errorf("derive wrap key: %w", err)
	}
	defer crypto.Wipe(k)

	pt, err := v.prim.AEADOpen(k, iv, sealed)
	if err != nil {
		if errors.Is(err, crypto.ErrAuthentication) {
			return nil, fmt.Errorf("unwrap private key: %w", err)
		}
		return nil, err
	}
	priv := domain.PrivateKey(pt)
	if _, err := identity.ParsePrivateKey(priv); err != nil {
		crypto.Wipe(pt)
		return nil, fmt.Errorf("unwrapped key record: %w", err)
	}
	return priv, nil
}
