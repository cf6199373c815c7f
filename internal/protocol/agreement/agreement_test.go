package agreement_test

import (
	"bytes"
	"errors"
	"testing"

	"cipherchat/internal/crypto"
	"cipherchat/internal/domain"
	"cipherchat/internal/protocol/agreement"
	"cipherchat/internal/protocol/identity"
)

func pair(t *testing.T) domain.KeyPair {
	t.Helper()
	kp, err := identity.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	return kp
}

func TestDeriveSharedKey_Symmetric(t *testing.T) {
	ag := agreement.New(nil)
	for i := 0; i < 3; i++ {
		alice, bob := pair(t), pair(t)
		ab, err := ag.DeriveSharedKey(alice.PrivateKey, bob.PublicKey)
		if err != nil {
			t.Fatalf("alice derive: %v", err)
		}
		ba, err := ag.DeriveSharedKey(bob.PrivateKey, alice.PublicKey)
		if err != nil {
			t.Fatalf("bob derive: %v", err)
		}
		if ab != ba {
			t.Fatal("shared keys differ")
		}
		if ab == (agreement.SymmetricKey{}) {
			t.Fatal("shared key is all zero")
		}
	}
}

func TestDeriveSharedKey_DistinctPerPeer(t *testing.T) {
	ag := agreement.New(nil)
	alice, bob, carol := pair(t), pair(t), pair(t)
	ab, _ := ag.DeriveSharedKey(alice.PrivateKey, bob.PublicKey)
	ac, _ := ag.DeriveSharedKey(alice.PrivateKey, carol.PublicKey)
	if ab == ac {
		t.Fatal("different peers gave the same key")
	}
}

func TestDeriveSharedDigest(t *testing.T) {
	ag := agreement.New(nil)
	alice, bob := pair(t), pair(t)

	d1, err := ag.DeriveSharedDigest(alice.PrivateKey, bob.PublicKey, 256)
	if err != nil {
		t.Fatalf("DeriveSharedDigest: %v", err)
	}
	d2, _ := ag.DeriveSharedDigest(bob.PrivateKey, alice.PublicKey, 256)
	if !bytes.Equal(d1, d2) || len(d1) != 32 {
		t.Fatal("digest is not symmetric")
	}
	key, _ := ag.DeriveSharedKey(alice.PrivateKey, bob.PublicKey)
	if bytes.Equal(d1, key[:]) {
		t.Fatal("digest must differ from the message key")
	}
	short, _ := ag.DeriveSharedDigest(alice.PrivateKey, bob.PublicKey, 128)
	if !bytes.Equal(short, d1[:16]) {
		t.Fatal("shorter digest is not a prefix")
	}
	if _, err := ag.DeriveSharedDigest(alice.PrivateKey, bob.PublicKey, 300); !errors.Is(err, crypto.ErrInput) {
		t.Fatalf("want ErrInput, got %v", err)
	}
}

func TestDeriveSharedKey_RejectsBadKeys(t *testing.T) {
	ag := agreement.New(nil)
	alice, bob := pair(t), pair(t)
	if _, err := ag.DeriveSharedKey(domain.PrivateKey(bob.PublicKey), alice.PublicKey); !errors.Is(err, crypto.ErrInput) {
		t.Fatalf("public record as private: want ErrInput, got %v", err)
	}
	if _, err := ag.DeriveSharedKey(alice.PrivateKey, "{}"); !errors.Is(err, crypto.ErrInput) {
		t.Fatalf("empty peer: want ErrInput, got %v", err)
	}
}
