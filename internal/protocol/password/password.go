package password

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"cipherchat/internal/crypto"
)

const (
	ClientIterations = 25000
	ServerIterations = 50000
	WrapIterations   = 25000

	authBits = 512
	wrapBits = 256

	// SaltBytes is the length of serverSalt and keySalt before hex encoding.
	SaltBytes = 16
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,31}$`)

// Hierarchy derives password secrets through a primitive adapter.
type Hierarchy struct {
	prim crypto.Primitives
}

// New returns a Hierarchy over p; nil means crypto.Default.
func New(p crypto.Primitives) *Hierarchy {
	if p == nil {
		p = crypto.Default
	}
	return &Hierarchy{prim: p}
}

// NormalizeUsername trims and lowercases a username. Registration and login
// both apply it before any derivation.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidUsername reports whether username, once normalised, is 3 to 32
// characters of a-z, 0-9, '_', '.' or '-' starting with a letter or digit.
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(NormalizeUsername(username))
}

// ClientAuth derives the value a client submits instead of its password.
func (h *Hierarchy) ClientAuth(password, username string) (string, error) {
	out, err := h.prim.PBKDF2([]byte(password), []byte(strings.ToLower(username)), ClientIterations, crypto.SHA512, authBits)
	if err != nil {
		return "", fmt.Errorf("client auth: %w", err)
	}
	return hex.EncodeToString(out), nil
}

// ServerAuth re-hashes clientAuth with the account's serverSalt.
func (h *Hierarchy) ServerAuth(clientAuth, serverSalt string) (string, error) {
	salt, err := DecodeSalt(serverSalt)
	if err != nil {
		return "", err
	}
	out, err := h.prim.PBKDF2([]byte(clientAuth), salt, ServerIterations, crypto.SHA512, authBits)
	if err != nil {
		return "", fmt.Errorf("server auth: %w", err)
	}
	return hex.EncodeToString(out), nil
}

// WrapPassphrase derives the passphrase that protects the private key.
func (h *Hierarchy) WrapPassphrase(clientAuth, password, keySalt string) (string, error) {
	salt, err := DecodeSalt(keySalt)
	if err != nil {
		return "", err
	}
	secret := []byte(clientAuth + password)
	out, err := h.prim.PBKDF2(secret, salt, WrapIterations, crypto.SHA256, wrapBits)
	defer crypto.WipeAll(secret, out)
	if err != nil {
		return "", fmt.Errorf("wrap passphrase: %w", err)
	}
	return hex.EncodeToString(out), nil
}

// NewSalt returns a fresh random salt, hex encoded.
func (h *Hierarchy) NewSalt() (string, error) {
	b, err := h.prim.RandomBytes(SaltBytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// DecodeSalt validates and decodes a hex salt.
func DecodeSalt(salt string) ([]byte, error) {
	b, err := hex.DecodeString(salt)
	if err != nil || len(b) != SaltBytes {
		return nil, fmt.Errorf("%w: salt must be %d hex-encoded bytes", crypto.ErrInput, SaltBytes)
	}
	return b, nil
}

// ValidClientAuth reports whether s has the shape of a clientAuth value.
func ValidClientAuth(s string) bool {
	if len(s) != authBits/4 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// VerifyServerAuth compares a stored and a recomputed serverAuth in constant time.
func VerifyServerAuth(stored, computed string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(computed)) == 1
}
