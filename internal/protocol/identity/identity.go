package identity

import (
	"encoding/hex"
	"strings"

	"cipherchat/internal/crypto"
	"cipherchat/internal/domain"
)

const (
	fingerprintGroupSize = 4
	fingerprintGroups    = 8
)

// Manager creates and fingerprints identities through a primitive adapter.
type Manager struct {
	prim crypto.Primitives
}

// New returns a Manager over p; nil means crypto.Default.
func New(p crypto.Primitives) *Manager {
	if p == nil {
		p = crypto.Default
	}
	return &Manager{prim: p}
}

var std = New(nil)

// GenerateIdentity creates a fresh P-521 key pair, both halves serialized.
func (m *Manager) GenerateIdentity() (domain.KeyPair, error) {
	sk, err := m.prim.GenerateKeyAgreementPair(crypto.P521)
	if err != nil {
		return domain.KeyPair{}, err
	}
	pub, err := MarshalPublicKey(sk.PublicKey())
	if err != nil {
		return domain.KeyPair{}, err
	}
	priv, err := MarshalPrivateKey(sk)
	if err != nil {
		return domain.KeyPair{}, err
	}
	return domain.KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// FingerprintHash returns hex(SHA-256(pub)).
func (m *Manager) FingerprintHash(pub domain.PublicKey) (domain.PublicKeyHash, error) {
	sum, err := m.prim.Digest(crypto.SHA256, []byte(pub))
	if err != nil {
		return "", err
	}
	return domain.PublicKeyHash(hex.EncodeToString(sum)), nil
}

// VerifyFingerprint recomputes the hash of pub and compares it to expected.
func (m *Manager) VerifyFingerprint(pub domain.PublicKey, expected domain.PublicKeyHash) bool {
	got, err := m.FingerprintHash(pub)
	if err != nil {
		return false
	}
	return got == domain.PublicKeyHash(strings.ToLower(expected.String()))
}

// HumanFingerprint returns the display fingerprint of pub.
func (m *Manager) HumanFingerprint(pub domain.PublicKey) (domain.Fingerprint, error) {
	h, err := m.FingerprintHash(pub)
	if err != nil {
		return "", err
	}
	return FingerprintFromHash(h), nil
}

// FingerprintFromHash formats a public key hash for display, e.g.
// "1A2B 3C4D 5E6F 7081 92A3 B4C5 D6E7 F809".
func FingerprintFromHash(h domain.PublicKeyHash) domain.Fingerprint {
	s := strings.ToUpper(h.String())
	groups := make([]string, 0, fingerprintGroups)
	for i := 0; i+fingerprintGroupSize <= len(s) && len(groups) < fingerprintGroups; i += fingerprintGroupSize {
		groups = append(groups, s[i:i+fingerprintGroupSize])
	}
	return domain.Fingerprint(strings.Join(groups, " "))
}

// GenerateIdentity uses the default adapter.
func GenerateIdentity() (domain.KeyPair, error) { return std.GenerateIdentity() }

// FingerprintHash uses the default adapter.
func FingerprintHash(pub domain.PublicKey) (domain.PublicKeyHash, error) {
	return std.FingerprintHash(pub)
}

// VerifyFingerprint uses the default adapter.
func VerifyFingerprint(pub domain.PublicKey, expected domain.PublicKeyHash) bool {
	return std.VerifyFingerprint(pub, expected)
}

// HumanFingerprint uses the default adapter.
func HumanFingerprint(pub domain.PublicKey) (domain.Fingerprint, error) {
	return std.HumanFingerprint(pub)
}
