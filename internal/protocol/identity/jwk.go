package identity

import (
	"bytes"
	"crypto/ecdh"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"cipherchat/internal/crypto"
	"cipherchat/internal/domain"
)

const (
	keyType   = "EC"
	curveName = string(crypto.P521)

	// coordSize is the byte length of a P-521 field element.
	coordSize = 66
)

var b64url = base64.RawURLEncoding

// jwk field order is part of the serialization contract.
type jwk struct {
	Crv    string   `json:"crv"`
	D      string   `json:"d,omitempty"`
	Ext    bool     `json:"ext"`
	KeyOps []string `json:"key_ops"`
	Kty    string   `json:"kty"`
	X      string   `json:"x"`
	Y      string   `json:"y"`
}

// MarshalPublicKey serializes a P-521 public key.
func MarshalPublicKey(pub *ecdh.PublicKey) (domain.PublicKey, error) {
	x, y, err := coordinates(pub)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(jwk{
		Crv:    curveName,
		Ext:    true,
		KeyOps: []string{},
		Kty:    keyType,
		X:      b64url.EncodeToString(x),
		Y:      b64url.EncodeToString(y),
	})
	if err != nil {
		return "", err
	}
	return domain.PublicKey(b), nil
}

// MarshalPrivateKey serializes a P-521 private key together with its public point.
func MarshalPrivateKey(priv *ecdh.PrivateKey) (domain.PrivateKey, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: nil private key", crypto.ErrInput)
	}
	x, y, err := coordinates(priv.PublicKey())
	if err != nil {
		return nil, err
	}
	d := priv.Bytes()
	defer crypto.Wipe(d)

	return json.Marshal(jwk{
		Crv:    curveName,
		D:      b64url.EncodeToString(d),
		Ext:    true,
		KeyOps: []string{"deriveKey", "deriveBits"},
		Kty:    keyType,
		X:      b64url.EncodeToString(x),
		Y:      b64url.EncodeToString(y),
	})
}

// ParsePublicKey decodes and validates a serialized public key. A record
// carrying "d" is rejected.
func ParsePublicKey(pub domain.PublicKey) (*ecdh.PublicKey, error) {
	var k jwk
	if err := decodeJWK([]byte(pub), &k); err != nil {
		return nil, err
	}
	if k.D != "" {
		return nil, fmt.Errorf("%w: public key record contains private material", crypto.ErrInput)
	}
	return k.publicKey()
}

// ParsePrivateKey decodes a serialized private key and checks that its
// embedded public point belongs to it.
func ParsePrivateKey(priv domain.PrivateKey) (*ecdh.PrivateKey, error) {
	var k jwk
	if err := decodeJWK(priv, &k); err != nil {
		return nil, err
	}
	d, err := b64url.DecodeString(k.D)
	if err != nil || len(d) != coordSize {
		return nil, fmt.Errorf("%w: bad private scalar", crypto.ErrInput)
	}
	defer crypto.Wipe(d)

	sk, err := ecdh.P521().NewPrivateKey(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrInput, err)
	}
	pk, err := k.publicKey()
	if err != nil {
		return nil, err
	}
	if !sk.PublicKey().Equal(pk) {
		return nil, fmt.Errorf("%w: private scalar does not match public point", crypto.ErrInput)
	}
	return sk, nil
}

// Matches reports whether priv is the private half of pub.
func Matches(priv domain.PrivateKey, pub domain.PublicKey) (bool, error) {
	sk, err := ParsePrivateKey(priv)
	if err != nil {
		return false, err
	}
	pk, err := ParsePublicKey(pub)
	if err != nil {
		return false, err
	}
	return sk.PublicKey().Equal(pk), nil
}

func decodeJWK(data []byte, k *jwk) error {
	if err := json.Unmarshal(data, k); err != nil {
		return fmt.Errorf("%w: key record: %v", crypto.ErrInput, err)
	}
	if k.Kty != keyType {
		return fmt.Errorf("%w: key type %q", crypto.ErrInput, k.Kty)
	}
	if k.Crv != curveName {
		return fmt.Errorf("%w: %q", crypto.ErrUnsupportedCurve, k.Crv)
	}
	return nil
}

func (k jwk) publicKey() (*ecdh.PublicKey, error) {
	x, errX := b64url.DecodeString(k.X)
	y, errY := b64url.DecodeString(k.Y)
	if errX != nil || errY != nil || len(x) != coordSize || len(y) != coordSize {
		return nil, fmt.Errorf("%w: bad public coordinates", crypto.ErrInput)
	}
	point := make([]byte, 0, 1+2*coordSize)
	point = append(point, 0x04)
	point = append(point, x...)
	point = append(point, y...)
	pk, err := ecdh.P521().NewPublicKey(point)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrInput, err)
	}
	return pk, nil
}

func coordinates(pub *ecdh.PublicKey) (x, y []byte, err error) {
	if pub == nil {
		return nil, nil, fmt.Errorf("%w: nil public key", crypto.ErrInput)
	}
	if pub.Curve() != ecdh.P521() {
		return nil, nil, fmt.Errorf("%w: identities use %s", crypto.ErrUnsupportedCurve, curveName)
	}
	raw := pub.Bytes()
	if len(raw) != 1+2*coordSize || raw[0] != 0x04 {
		return nil, nil, fmt.Errorf("%w: unexpected point encoding", crypto.ErrInput)
	}
	return bytes.Clone(raw[1 : 1+coordSize]), bytes.Clone(raw[1+coordSize:]), nil
}
