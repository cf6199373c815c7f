package types

// PublicKey is a serialized public key record (JWK JSON). Its exact bytes are
// what PublicKeyHash is computed over.
type PublicKey string

// String returns the serialized record.
func (p PublicKey) String() string { return string(p) }

// PrivateKey is a serialized private key record (JWK JSON including "d").
// It is a byte slice so holders can wipe it.
type PrivateKey []byte

// KeyPair is an account's long-lived key agreement identity.
type KeyPair struct {
	PublicKey  PublicKey
	PrivateKey PrivateKey
}
