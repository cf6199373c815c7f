package app_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cipherchat/internal/app"
	"cipherchat/internal/domain"
	"cipherchat/internal/relay"
	"cipherchat/internal/services/account"
	"cipherchat/internal/session"
	"cipherchat/internal/store"
)

func newRelay(t *testing.T) *httptest.Server {
	t.Helper()
	users, err := store.OpenBoltUserStore(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = users.Close() })
	accounts, err := account.New(users, nil, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("account.New: %v", err)
	}
	ts := httptest.NewServer(relay.NewServer(accounts, relay.NewHub(zerolog.Nop(), nil), nil, zerolog.Nop()))
	t.Cleanup(ts.Close)
	return ts
}

func newWire(t *testing.T, ts *httptest.Server) *app.Wire {
	t.Helper()
	w, err := app.NewWire(app.Config{Home: t.TempDir(), ServerURL: ts.URL, HTTP: ts.Client()}, io.Discard)
	if err != nil {
		t.Fatalf("NewWire: %v", err)
	}
	return w
}

func scrape(t *testing.T, w *app.Wire) string {
	t.Helper()
	rec := httptest.NewRecorder()
	w.Metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestWire_ConnectRequiresSession(t *testing.T) {
	w := newWire(t, newRelay(t))
	if _, err := w.Connect(context.Background()); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("want ErrNoSession, got %v", err)
	}
}

func TestWire_RegisterConnectAndChat(t *testing.T) {
	ts := newRelay(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	alice, bob := newWire(t, ts), newWire(t, ts)
	if _, err := alice.Identity.Register(ctx, "alice", "Tr0ub4dor&3"); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	bobInfo, err := bob.Identity.Register(ctx, "bob", "C0rrect-horse")
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}
	profiles, err := alice.Profiles.ListAccountProfiles(ts.URL)
	if err != nil || len(profiles) != 1 || profiles[0].Username != "alice" {
		t.Fatalf("profiles = %+v, %v", profiles, err)
	}

	bobChat, err := bob.Connect(ctx)
	if err != nil {
		t.Fatalf("bob connect: %v", err)
	}
	defer bobChat.Close(ctx)
	received := make(chan domain.Opened, 1)
	bobChat.Messages.OnMessage(ctx, func(o domain.Opened) { received <- o })
	bobChat.Messages.OnPresence(func(p domain.Presence, online bool) {
		if !online {
			return
		}
		if c, err := bobChat.Messages.JoinPeer(ctx, p.PublicKeyHash); err == nil {
			_ = bobChat.Messages.StartTyping(ctx, c, &p.PublicKeyHash)
		}
	})

	aliceChat, err := alice.Connect(ctx)
	if err != nil {
		t.Fatalf("alice connect: %v", err)
	}
	defer aliceChat.Close(ctx)
	ready := make(chan struct{}, 1)
	aliceChat.Messages.OnTyping(func(domain.Typing, bool) {
		select {
		case ready <- struct{}{}:
		default:
		}
	})
	if _, err := aliceChat.Messages.JoinPeer(ctx, bobInfo.PublicKeyHash); err != nil {
		t.Fatalf("JoinPeer: %v", err)
	}

	// Bob answers each announce by joining the pair channel and typing on
	// it, so a typing event proves both ends are members.
	for seen := false; !seen; {
		if err := aliceChat.Messages.Announce(ctx); err != nil {
			t.Fatalf("announce: %v", err)
		}
		select {
		case <-ready:
			seen = true
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			t.Fatal("bob never joined the pair channel")
		}
	}

	if _, err := aliceChat.Messages.SendPrivate(ctx, bobInfo.PublicKeyHash, "over the wire"); err != nil {
		t.Fatalf("SendPrivate: %v", err)
	}
	select {
	case o := <-received:
		if o.DecryptionError || o.Message.Body != "over the wire" || o.Message.SenderName != "alice" {
			t.Fatalf("bob opened %+v", o)
		}
	case <-ctx.Done():
		t.Fatal("bob received nothing")
	}

	got := scrape(t, alice)
	for _, want := range []string{
		`cipherchat_crypto_operations_total{operation="wrap"} 1`,
		`cipherchat_crypto_operations_total{operation="seal"} 1`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("client metrics missing %s:\n%s", want, got)
		}
	}

	alice.Close()
	if alice.Keyring.Active() {
		t.Fatal("Close left the session active")
	}
}
