package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Hash names a digest algorithm offered by the adapter.
type Hash int

const (
	SHA256 Hash = iota + 1
	SHA512
)

func (h Hash) String() string {
	switch h {
	case SHA256:
		return "SHA-256"
	case SHA512:
		return "SHA-512"
	default:
		return fmt.Sprintf("Hash(%d)", int(h))
	}
}

func (h Hash) new() (func() hash.Hash, error) {
	switch h {
	case SHA256:
		return sha256.New, nil
	case SHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: hash %s", ErrInput, h)
	}
}

// Curve names an elliptic curve for key agreement.
type Curve string

// P521 is the NIST P-521 curve, the only curve used for identities.
const P521 Curve = "P-521"

const (
	KeySize = 32
	IVSize  = 12
	TagSize = 16
)

// Primitives is the boundary between protocol logic and the host
// cryptographic library. Implementations must be safe for concurrent use.
type Primitives interface {
	RandomBytes(n int) ([]byte, error)
	Digest(alg Hash, data []byte) ([]byte, error)
	PBKDF2(password, salt []byte, iterations int, alg Hash, outBits int) ([]byte, error)

	GenerateKeyAgreementPair(curve Curve) (*ecdh.PrivateKey, error)
	DeriveSharedKey(priv *ecdh.PrivateKey, peer *ecdh.PublicKey) ([]byte, error)
	DeriveSharedBits(priv *ecdh.PrivateKey, peer *ecdh.PublicKey, bits int) ([]byte, error)

	AEADSeal(key, iv, plaintext []byte) ([]byte, error)
	AEADOpen(key, iv, ciphertext []byte) ([]byte, error)
}

// Std implements Primitives with the Go standard library and x/crypto.
//
// A nil Rand means crypto/rand.Reader.
type Std struct {
	Rand io.Reader
}

// Default is the production adapter.
var Default Primitives = Std{}

func (s Std) rand() io.Reader {
	if s.Rand != nil {
		return s.Rand
	}
	return rand.Reader
}

// RandomBytes returns n bytes from the configured randomness source.
func (s Std) RandomBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrInput, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(s.rand(), b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}

// Digest hashes data with alg.
func (s Std) Digest(alg Hash, data []byte) ([]byte, error) {
	h, err := alg.new()
	if err != nil {
		return nil, err
	}
	d := h()
	d.Write(data)
	return d.Sum(nil), nil
}

// PBKDF2 stretches password with salt. outBits must be a positive multiple of 8.
func (s Std) PBKDF2(password, salt []byte, iterations int, alg Hash, outBits int) ([]byte, error) {
	if iterations <= 0 {
		return nil, fmt.Errorf("%w: iterations %d", ErrInput, iterations)
	}
	if outBits <= 0 || outBits%8 != 0 {
		return nil, fmt.Errorf("%w: output bits %d", ErrInput, outBits)
	}
	h, err := alg.new()
	if err != nil {
		return nil, err
	}
	return pbkdf2.Key(password, salt, iterations, outBits/8, h), nil
}

// ECDHCurve maps a curve name to its stdlib implementation.
func ECDHCurve(c Curve) (ecdh.Curve, error) {
	switch c {
	case P521:
		return ecdh.P521(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCurve, string(c))
	}
}

// GenerateKeyAgreementPair returns a fresh private key on curve; its public
// half is available through PublicKey().
func (s Std) GenerateKeyAgreementPair(curve Curve) (*ecdh.PrivateKey, error) {
	c, err := ECDHCurve(curve)
	if err != nil {
		return nil, err
	}
	return c.GenerateKey(s.rand())
}

// DeriveSharedBits returns the leftmost bits of the raw ECDH shared secret.
func (s Std) DeriveSharedBits(priv *ecdh.PrivateKey, peer *ecdh.PublicKey, bits int) ([]byte, error) {
	if priv == nil || peer == nil {
		return nil, fmt.Errorf("%w: missing key", ErrInput)
	}
	secret, err := priv.ECDH(peer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInput, err)
	}
	if bits <= 0 || bits%8 != 0 || bits/8 > len(secret) {
		Wipe(secret)
		return nil, fmt.Errorf("%w: shared bits %d", ErrInput, bits)
	}
	out := append([]byte(nil), secret[:bits/8]...)
	Wipe(secret)
	return out, nil
}

// DeriveSharedKey returns a 256-bit AES key: the leftmost 256 bits of the
// ECDH shared secret, matching WebCrypto's ECDH deriveKey for AES-GCM-256.
func (s Std) DeriveSharedKey(priv *ecdh.PrivateKey, peer *ecdh.PublicKey) ([]byte, error) {
	return s.DeriveSharedBits(priv, peer, KeySize*8)
}

// AEADSeal encrypts plaintext with AES-256-GCM and returns ciphertext||tag.
// An empty plaintext is valid and yields a bare tag.
func (s Std) AEADSeal(key, iv, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key, iv)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nil, iv, plaintext, nil), nil
}

// AEADOpen verifies and decrypts ciphertext||tag. No plaintext is returned
// unless the tag verifies.
func (s Std) AEADOpen(key, iv, ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(key, iv)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < TagSize {
		return nil, fmt.Errorf("%w: ciphertext shorter than tag", ErrInput)
	}
	pt, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	if pt == nil {
		pt = []byte{}
	}
	return pt, nil
}

// Compile-time assertion that Std implements Primitives.
var _ Primitives = Std{}
