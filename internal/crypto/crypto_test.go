package crypto_test

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"cipherchat/internal/crypto"
)

func fixedKey() []byte { return bytes.Repeat([]byte{0x11}, crypto.KeySize) }
func fixedIV() []byte  { return bytes.Repeat([]byte{0x22}, crypto.IVSize) }

func TestDigest_KnownVector(t *testing.T) {
	got, err := crypto.Default.Digest(crypto.SHA256, []byte("abc"))
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if hex.EncodeToString(got) != want {
		t.Fatalf("sha256(abc) = %x, want %s", got, want)
	}

	sum, err := crypto.Default.Digest(crypto.SHA512, []byte("abc"))
	if err != nil {
		t.Fatalf("Digest sha512: %v", err)
	}
	if len(sum) != 64 {
		t.Fatalf("sha512 length = %d, want 64", len(sum))
	}
}

func TestDigest_UnknownHash(t *testing.T) {
	if _, err := crypto.Default.Digest(crypto.Hash(99), []byte("x")); !errors.Is(err, crypto.ErrInput) {
		t.Fatalf("want ErrInput, got %v", err)
	}
}

func TestPBKDF2_SHA256Vector(t *testing.T) {
	got, err := crypto.Default.PBKDF2([]byte("password"), []byte("salt"), 1, crypto.SHA256, 256)
	if err != nil {
		t.Fatalf("PBKDF2: %v", err)
	}
	want := "120fb6cffcf8b32c43e7225256c4f837a86548c92ccc35480805987cb70be17b"
	if hex.EncodeToString(got) != want {
		t.Fatalf("pbkdf2 = %x, want %s", got, want)
	}
}

func TestPBKDF2_RejectsBadParameters(t *testing.T) {
	if _, err := crypto.Default.PBKDF2([]byte("p"), []byte("s"), 0, crypto.SHA256, 256); !errors.Is(err, crypto.ErrInput) {
		t.Fatalf("zero iterations: want ErrInput, got %v", err)
	}
	if _, err := crypto.Default.PBKDF2([]byte("p"), []byte("s"), 1, crypto.SHA256, 250); !errors.Is(err, crypto.ErrInput) {
		t.Fatalf("odd bit count: want ErrInput, got %v", err)
	}
}

func TestRandomBytes_UsesInjectedReader(t *testing.T) {
	src := bytes.Repeat([]byte{0xAB}, 16)
	p := crypto.Std{Rand: bytes.NewReader(src)}
	got, err := p.RandomBytes(16)
	if err != nil {
		t.Fatalf("RandomBytes: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("got %x, want %x", got, src)
	}
	if _, err := p.RandomBytes(1); err == nil {
		t.Fatal("expected error once the reader is exhausted")
	}
}

func TestAEAD_RoundTrip(t *testing.T) {
	for _, pt := range []string{"", "hi", "héllo wörld ✓"} {
		ct, err := crypto.Default.AEADSeal(fixedKey(), fixedIV(), []byte(pt))
		if err != nil {
			t.Fatalf("AEADSeal(%q): %v", pt, err)
		}
		if len(ct) != len(pt)+crypto.TagSize {
			t.Fatalf("ciphertext length = %d, want %d", len(ct), len(pt)+crypto.TagSize)
		}
		got, err := crypto.Default.AEADOpen(fixedKey(), fixedIV(), ct)
		if err != nil {
			t.Fatalf("AEADOpen(%q): %v", pt, err)
		}
		if string(got) != pt {
			t.Fatalf("got %q, want %q", got, pt)
		}
	}
}

func TestAEAD_TamperDetected(t *testing.T) {
	ct, err := crypto.Default.AEADSeal(fixedKey(), fixedIV(), []byte("attack at dawn"))
	if err != nil {
		t.Fatalf("AEADSeal: %v", err)
	}
	for i := range ct {
		mut := append([]byte(nil), ct...)
		mut[i] ^= 0x01
		if _, err := crypto.Default.AEADOpen(fixedKey(), fixedIV(), mut); !errors.Is(err, crypto.ErrAuthentication) {
			t.Fatalf("byte %d flipped: want ErrAuthentication, got %v", i, err)
		}
	}
}

func TestAEAD_WrongKey(t *testing.T) {
	ct, err := crypto.Default.AEADSeal(fixedKey(), fixedIV(), []byte("x"))
	if err != nil {
		t.Fatalf("AEADSeal: %v", err)
	}
	other := bytes.Repeat([]byte{0x12}, crypto.KeySize)
	if _, err := crypto.Default.AEADOpen(other, fixedIV(), ct); !errors.Is(err, crypto.ErrAuthentication) {
		t.Fatalf("want ErrAuthentication, got %v", err)
	}
}

func TestAEAD_BadSizes(t *testing.T) {
	if _, err := crypto.Default.AEADSeal(make([]byte, 16), fixedIV(), nil); !errors.Is(err, crypto.ErrInput) {
		t.Fatalf("short key: want ErrInput, got %v", err)
	}
	if _, err := crypto.Default.AEADSeal(fixedKey(), make([]byte, 8), nil); !errors.Is(err, crypto.ErrInput) {
		t.Fatalf("short iv: want ErrInput, got %v", err)
	}
	if _, err := crypto.Default.AEADOpen(fixedKey(), fixedIV(), make([]byte, 4)); !errors.Is(err, crypto.ErrInput) {
		t.Fatalf("short ciphertext: want ErrInput, got %v", err)
	}
}

func TestKeyAgreement_Symmetric(t *testing.T) {
	alice, err := crypto.Default.GenerateKeyAgreementPair(crypto.P521)
	if err != nil {
		t.Fatalf("generate alice: %v", err)
	}
	bob, err := crypto.Default.GenerateKeyAgreementPair(crypto.P521)
	if err != nil {
		t.Fatalf("generate bob: %v", err)
	}

	ab, err := crypto.Default.DeriveSharedKey(alice, bob.PublicKey())
	if err != nil {
		t.Fatalf("alice derive: %v", err)
	}
	ba, err := crypto.Default.DeriveSharedKey(bob, alice.PublicKey())
	if err != nil {
		t.Fatalf("bob derive: %v", err)
	}
	if len(ab) != crypto.KeySize || !bytes.Equal(ab, ba) {
		t.Fatalf("shared keys differ or wrong size: %x vs %x", ab, ba)
	}

	bits, err := crypto.Default.DeriveSharedBits(alice, bob.PublicKey(), 528)
	if err != nil {
		t.Fatalf("DeriveSharedBits: %v", err)
	}
	if !bytes.Equal(bits[:crypto.KeySize], ab) {
		t.Fatal("shared key is not the leftmost 256 bits of the shared secret")
	}
	if _, err := crypto.Default.DeriveSharedBits(alice, bob.PublicKey(), 1024); !errors.Is(err, crypto.ErrInput) {
		t.Fatalf("oversized bits: want ErrInput, got %v", err)
	}
}

func TestGenerateKeyAgreementPair_UnsupportedCurve(t *testing.T) {
	if _, err := crypto.Default.GenerateKeyAgreementPair(crypto.Curve("P-192")); !errors.Is(err, crypto.ErrUnsupportedCurve) {
		t.Fatalf("want ErrUnsupportedCurve, got %v", err)
	}
}

func TestBlob_RoundTrip(t *testing.T) {
	sealed := bytes.Repeat([]byte{0x33}, crypto.TagSize+3)
	blob := crypto.EncodeBlob(fixedIV(), sealed)

	iv, got, err := crypto.DecodeBlob(blob)
	if err != nil {
		t.Fatalf("DecodeBlob: %v", err)
	}
	if !bytes.Equal(iv, fixedIV()) || !bytes.Equal(got, sealed) {
		t.Fatal("blob did not round-trip")
	}
}

func TestBlob_Malformed(t *testing.T) {
	if _, _, err := crypto.DecodeBlob("%%%"); !errors.Is(err, crypto.ErrInput) {
		t.Fatalf("bad base64: want ErrInput, got %v", err)
	}
	if _, _, err := crypto.DecodeBlob(crypto.B64(make([]byte, crypto.IVSize))); !errors.Is(err, crypto.ErrInput) {
		t.Fatalf("short blob: want ErrInput, got %v", err)
	}
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}
	crypto.Wipe(b)
	if !bytes.Equal(b, []byte{0, 0, 0}) {
		t.Fatalf("Wipe left %v", b)
	}
	x, y := []byte{4}, []byte{5, 6}
	crypto.WipeAll(x, nil, y)
	if x[0] != 0 || y[0] != 0 || y[1] != 0 {
		t.Fatalf("WipeAll left %v %v", x, y)
	}
}
