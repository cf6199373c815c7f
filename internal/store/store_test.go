package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cipherchat/internal/domain"
	"cipherchat/internal/store"
)

func openUsers(t *testing.T) *store.BoltUserStore {
	t.Helper()
	s, err := store.OpenBoltUserStore(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(name, hash string) domain.UserRecord {
	return domain.UserRecord{
		Username:         domain.Username(name),
		ServerAuth:       "aa",
		ServerSalt:       "bb",
		KeySalt:          "cc",
		PrivateKeyCipher: "blob",
		PublicKey:        domain.PublicKey(`{"kty":"EC"}`),
		PublicKeyHash:    domain.PublicKeyHash(hash),
	}
}

func TestBoltUserStore_CreateAndGet(t *testing.T) {
	s := openUsers(t)
	if err := s.CreateUser(record("alice", "h1")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, ok, err := s.GetUser("alice")
	if err != nil || !ok {
		t.Fatalf("GetUser = %v, %v", ok, err)
	}
	if got.ServerAuth != "aa" || got.PrivateKeyCipher != "blob" {
		t.Fatalf("record mangled: %+v", got)
	}
	if _, ok, _ := s.GetUser(" ALICE "); !ok {
		t.Fatal("lookup must normalise the username")
	}

	byHash, ok, err := s.GetUserByPublicKeyHash("H1")
	if err != nil || !ok || byHash.Username != "alice" {
		t.Fatalf("GetUserByPublicKeyHash = %+v, %v, %v", byHash, ok, err)
	}

	if _, ok, err := s.GetUser("nobody"); ok || err != nil {
		t.Fatalf("unknown user: ok=%v err=%v", ok, err)
	}
	if n, _ := s.Count(); n != 1 {
		t.Fatalf("Count = %d", n)
	}
}

func TestBoltUserStore_NeverOverwrites(t *testing.T) {
	s := openUsers(t)
	if err := s.CreateUser(record("alice", "h1")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateUser(record("Alice", "h2")); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("want ErrUserExists, got %v", err)
	}
	if err := s.CreateUser(record("bob", "h1")); !errors.Is(err, domain.ErrPublicKeyTaken) {
		t.Fatalf("want ErrPublicKeyTaken, got %v", err)
	}
	if _, ok, _ := s.GetUser("bob"); ok {
		t.Fatal("rejected record was stored")
	}
	if _, ok, _ := s.GetUserByPublicKeyHash("h2"); ok {
		t.Fatal("rejected hash was indexed")
	}
}

func TestBoltUserStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	s, err := store.OpenBoltUserStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.CreateUser(record("alice", "h1")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_ = s.Close()

	s, err = store.OpenBoltUserStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, ok, _ := s.GetUser("alice"); !ok {
		t.Fatal("record lost across reopen")
	}
}

func TestProfileFileStore_SaveLoad(t *testing.T) {
	home := filepath.Join(t.TempDir(), "nested")
	var ps domain.ProfileStore = store.NewProfileFileStore(home)

	p := domain.AccountProfile{ServerURL: "http://a", Username: "alice", PublicKeyHash: "h1", Fingerprint: "AAAA"}
	if err := ps.SaveAccountProfile(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	other := p
	other.ServerURL = "http://b"
	other.PublicKeyHash = "h2"
	if err := ps.SaveAccountProfile(other); err != nil {
		t.Fatalf("save other: %v", err)
	}

	got, ok, err := ps.LoadAccountProfile("http://a", "alice")
	if err != nil || !ok || got != p {
		t.Fatalf("load = %+v, %v, %v", got, ok, err)
	}
	if _, ok, _ := ps.LoadAccountProfile("http://c", "alice"); ok {
		t.Fatal("profile leaked across servers")
	}

	info, err := os.Stat(filepath.Join(home, "accounts.json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}

	list, err := store.NewProfileFileStore(home).ListAccountProfiles("http://b")
	if err != nil || len(list) != 1 || list[0].PublicKeyHash != "h2" {
		t.Fatalf("list = %+v, %v", list, err)
	}
}

func TestProfileFileStore_MissingFile(t *testing.T) {
	ps := store.NewProfileFileStore(t.TempDir())
	if _, ok, err := ps.LoadAccountProfile("http://a", "alice"); ok || err != nil {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

func TestProfileFileStore_CorruptFile(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "accounts.json"), []byte("{nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	ps := store.NewProfileFileStore(home)
	if _, _, err := ps.LoadAccountProfile("http://a", "alice"); err == nil {
		t.Fatal("expected decode error")
	}
	if err := ps.SaveAccountProfile(domain.AccountProfile{ServerURL: "x", Username: "y"}); err == nil {
		t.Fatal("save must not clobber a corrupt file")
	}
}
