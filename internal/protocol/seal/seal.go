package seal

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"cipherchat/internal/crypto"
	"cipherchat/internal/domain"
	"cipherchat/internal/protocol/agreement"
)

// SchemeVersion identifies P-521 ECDH, leftmost-256-bit key, AES-256-GCM.
const SchemeVersion = 1

// Reasons reported in Opened.Reason.
const (
	ReasonUnsupportedScheme = "unsupported scheme version"
	ReasonKeyAgreement      = "key agreement failed"
	ReasonAuthentication    = "authentication failed"
	ReasonMalformed         = "malformed field"
)

// Sealer seals and opens message fields through a primitive adapter.
type Sealer struct {
	prim crypto.Primitives
	ag   *agreement.Agreement
}

// New returns a Sealer over p; nil means crypto.Default.
func New(p crypto.Primitives) *Sealer {
	if p == nil {
		p = crypto.Default
	}
	return &Sealer{prim: p, ag: agreement.New(p)}
}

// Field encrypts one UTF-8 string under key with a fresh IV.
func (s *Sealer) Field(plaintext string, key agreement.SymmetricKey) (domain.EncryptedBlob, error) {
	iv, err := s.prim.RandomBytes(crypto.IVSize)
	if err != nil {
		return "", err
	}
	sealed, err := s.prim.AEADSeal(key[:], iv, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return domain.EncryptedBlob(crypto.EncodeBlob(iv, sealed)), nil
}

// OpenField decrypts one field. It returns crypto.ErrAuthentication when the
// tag does not verify and crypto.ErrInput for anything malformed, including
// a plaintext that is not valid UTF-8.
func (s *Sealer) OpenField(blob domain.EncryptedBlob, key agreement.SymmetricKey) (string, error) {
	iv, sealed, err := crypto.DecodeBlob(blob.String())
	if err != nil {
		return "", err
	}
	pt, err := s.prim.AEADOpen(key[:], iv, sealed)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(pt) {
		return "", fmt.Errorf("%w: field is not UTF-8", crypto.ErrInput)
	}
	return string(pt), nil
}

// Message returns msg with its payload fields sealed for peer. Routing
// fields are copied through unchanged.
func (s *Sealer) Message(msg domain.Message, own domain.PrivateKey, peer domain.PublicKey) (domain.Message, error) {
	key, err := s.ag.DeriveSharedKey(own, peer)
	if err != nil {
		return domain.Message{}, err
	}
	defer key.Wipe()

	out := msg
	fields := []struct {
		dst *string
		src string
	}{
		{&out.SenderName, msg.SenderName},
		{&out.Body, msg.Body},
		{&out.Timestamp, msg.Timestamp},
	}
	for _, f := range fields {
		blob, err := s.Field(f.src, key)
		if err != nil {
			return domain.Message{}, fmt.Errorf("seal message: %w", err)
		}
		*f.dst = blob.String()
	}
	out.MessageType = domain.MessageEncrypted
	out.SchemeVersion = SchemeVersion
	return out, nil
}

// OpenMessage opens an encrypted message with own and the other party's
// public key. Plain and system messages are returned as they are.
func (s *Sealer) OpenMessage(msg domain.Message, own domain.PrivateKey, peer domain.PublicKey) domain.Opened {
	if msg.MessageType != domain.MessageEncrypted {
		return domain.Opened{Message: msg}
	}
	if msg.SchemeVersion < 0 || msg.SchemeVersion > SchemeVersion {
		return Undecryptable(msg, ReasonUnsupportedScheme)
	}
	key, err := s.ag.DeriveSharedKey(own, peer)
	if err != nil {
		return Undecryptable(msg, ReasonKeyAgreement)
	}
	defer key.Wipe()

	out := msg
	for _, f := range []*string{&out.SenderName, &out.Body, &out.Timestamp} {
		pt, err := s.OpenField(domain.EncryptedBlob(*f), key)
		if err != nil {
			return Undecryptable(msg, reasonFor(err))
		}
		*f = pt
	}
	return domain.Opened{Message: out}
}

// Undecryptable marks msg as not openable, keeping the envelope intact.
func Undecryptable(msg domain.Message, reason string) domain.Opened {
	return domain.Opened{Message: msg, DecryptionError: true, Reason: reason}
}

func reasonFor(err error) string {
	if errors.Is(err, crypto.ErrAuthentication) {
		return ReasonAuthentication
	}
	return ReasonMalformed
}
