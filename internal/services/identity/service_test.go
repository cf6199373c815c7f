package identity_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"cipherchat/internal/crypto"
	"cipherchat/internal/domain"
	idkeys "cipherchat/internal/protocol/identity"
	"cipherchat/internal/services/account"
	"cipherchat/internal/services/identity"
	"cipherchat/internal/session"
	"cipherchat/internal/store"
)

const (
	serverURL    = "http://relay.test"
	testPassword = "Tr0ub4dor&3"
)

func newServer(t *testing.T) *account.Service {
	t.Helper()
	users, err := store.OpenBoltUserStore(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = users.Close() })
	svc, err := account.New(users, nil, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("account.New: %v", err)
	}
	return svc
}

func newClient(t *testing.T, accounts domain.AccountClient, profiles domain.ProfileStore) (*identity.Service, *session.Keyring) {
	t.Helper()
	kr := session.NewKeyring()
	return identity.New(accounts, profiles, kr, serverURL, zerolog.Nop(), nil), kr
}

// tamperingServer rewrites login responses.
type tamperingServer struct {
	domain.AccountClient
	rewrite func(*domain.OwnerRecord)
}

func (s tamperingServer) Login(ctx context.Context, p domain.LoginPayload) (domain.OwnerRecord, error) {
	rec, err := s.AccountClient.Login(ctx, p)
	if err == nil {
		s.rewrite(&rec)
	}
	return rec, err
}

func TestRegisterAndLogin(t *testing.T) {
	server := newServer(t)
	ctx := context.Background()

	reg, kr := newClient(t, server, nil)
	info, err := reg.Register(ctx, "Alice", testPassword)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if info.Username != "alice" || !idkeys.VerifyFingerprint(info.PublicKey, info.PublicKeyHash) {
		t.Fatalf("unexpected info %+v", info)
	}
	if !kr.Active() {
		t.Fatal("registration must start a session")
	}

	login, kr2 := newClient(t, server, nil)
	got, err := login.Login(ctx, "alice", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got != info {
		t.Fatalf("login info %+v differs from registration %+v", got, info)
	}
	err = kr2.WithPrivateKey(func(p domain.PrivateKey) error {
		ok, err := idkeys.Matches(p, info.PublicKey)
		if err != nil || !ok {
			t.Fatalf("session key does not match: %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithPrivateKey: %v", err)
	}

	login.Logout()
	if kr2.Active() {
		t.Fatal("logout left the session active")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	server := newServer(t)
	ctx := context.Background()
	reg, _ := newClient(t, server, nil)
	if _, err := reg.Register(ctx, "alice", testPassword); err != nil {
		t.Fatalf("Register: %v", err)
	}

	c, kr := newClient(t, server, nil)
	if _, err := c.Login(ctx, "alice", "Tr0ub4dor&4"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
	if kr.Active() {
		t.Fatal("failed login started a session")
	}
}

func TestRegister_Policy(t *testing.T) {
	c, _ := newClient(t, newServer(t), nil)
	ctx := context.Background()
	for _, pw := range []string{"short1!A", "alllowercase1!", "NoDigitsHere!", "NoSymbols123"} {
		if _, err := c.Register(ctx, "alice", pw); !errors.Is(err, identity.ErrWeakPassword) {
			t.Fatalf("%q: want ErrWeakPassword, got %v", pw, err)
		}
	}
	if _, err := c.Register(ctx, "a b", testPassword); !errors.Is(err, identity.ErrInvalidUsername) {
		t.Fatalf("want ErrInvalidUsername, got %v", err)
	}
}

func TestLogin_DetectsSubstitutedKeys(t *testing.T) {
	server := newServer(t)
	ctx := context.Background()
	reg, _ := newClient(t, server, nil)
	if _, err := reg.Register(ctx, "alice", testPassword); err != nil {
		t.Fatalf("Register: %v", err)
	}
	mallory, err := idkeys.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	malloryHash, _ := idkeys.FingerprintHash(mallory.PublicKey)

	cases := []struct {
		name    string
		rewrite func(*domain.OwnerRecord)
		want    error
	}{
		{"hash does not match key", func(r *domain.OwnerRecord) { r.PublicKey = mallory.PublicKey }, identity.ErrKeyMismatch},
		{"consistent foreign key", func(r *domain.OwnerRecord) {
			r.PublicKey, r.PublicKeyHash = mallory.PublicKey, malloryHash
		}, identity.ErrKeyMismatch},
		{"corrupted blob", func(r *domain.OwnerRecord) { r.PrivateKeyCipher = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA" }, crypto.ErrAuthentication},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, kr := newClient(t, tamperingServer{AccountClient: server, rewrite: tc.rewrite}, nil)
			if _, err := c.Login(ctx, "alice", testPassword); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
			if kr.Active() {
				t.Fatal("session started with bad keys")
			}
		})
	}
}

func TestLogin_TrustOnFirstUse(t *testing.T) {
	server := newServer(t)
	ctx := context.Background()
	profiles := store.NewProfileFileStore(t.TempDir())

	reg, _ := newClient(t, server, profiles)
	info, err := reg.Register(ctx, "alice", testPassword)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	saved, ok, err := profiles.LoadAccountProfile(serverURL, "alice")
	if err != nil || !ok || saved.PublicKeyHash != info.PublicKeyHash || saved.Fingerprint != info.Fingerprint {
		t.Fatalf("profile = %+v, %v, %v", saved, ok, err)
	}

	mallory, _ := idkeys.GenerateIdentity()
	malloryHash, _ := idkeys.FingerprintHash(mallory.PublicKey)
	evil := tamperingServer{AccountClient: server, rewrite: func(r *domain.OwnerRecord) {
		r.PublicKey, r.PublicKeyHash = mallory.PublicKey, malloryHash
	}}
	c, _ := newClient(t, evil, profiles)
	if _, err := c.Login(ctx, "alice", testPassword); !errors.Is(err, identity.ErrProfileMismatch) {
		t.Fatalf("want ErrProfileMismatch, got %v", err)
	}
}
