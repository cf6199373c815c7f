package relay_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"cipherchat/internal/domain"
	"cipherchat/internal/observability"
	"cipherchat/internal/protocol/channel"
	"cipherchat/internal/relay"
	"cipherchat/internal/services/account"
	"cipherchat/internal/services/identity"
	"cipherchat/internal/session"
	"cipherchat/internal/store"
)

const testPassword = "Tr0ub4dor&3"

type fixture struct {
	ts  *httptest.Server
	hub *relay.Hub
	api *relay.HTTPClient
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	users, err := store.OpenBoltUserStore(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = users.Close() })

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	accounts, err := account.New(users, nil, zerolog.Nop(), metrics)
	if err != nil {
		t.Fatalf("account.New: %v", err)
	}
	hub := relay.NewHub(zerolog.Nop(), metrics)
	ts := httptest.NewServer(relay.NewServer(accounts, hub, metrics, zerolog.Nop()))
	t.Cleanup(ts.Close)
	return fixture{ts: ts, hub: hub, api: relay.NewHTTP(ts.URL, ts.Client())}
}

func (f fixture) client() *identity.Service {
	return identity.New(f.api, nil, session.NewKeyring(), f.ts.URL, zerolog.Nop(), nil)
}

func TestHTTP_RegisterLoginLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info, err := f.client().Register(ctx, "alice", testPassword)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, err := f.client().Login(ctx, "alice", testPassword)
	if err != nil || got.PublicKeyHash != info.PublicKeyHash {
		t.Fatalf("Login = %+v, %v", got, err)
	}

	if _, err := f.client().Register(ctx, "alice", testPassword); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("want ErrUserExists, got %v", err)
	}
	if _, err := f.client().Login(ctx, "alice", "Wr0ng-password"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
	if _, err := f.client().Login(ctx, "nobody", testPassword); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown user: want ErrInvalidCredentials, got %v", err)
	}

	rec, err := f.api.PublicKeyByHash(ctx, info.PublicKeyHash)
	if err != nil || rec.PublicKey != info.PublicKey {
		t.Fatalf("by hash = %+v, %v", rec, err)
	}
	rec, err = f.api.PublicKeyByUsername(ctx, "alice")
	if err != nil || rec.PublicKeyHash != info.PublicKeyHash {
		t.Fatalf("by name = %+v, %v", rec, err)
	}
	if _, err := f.api.PublicKeyByHash(ctx, hashOf("nobody")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestHTTP_RejectsMalformedBodies(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{"not json", `{"username":"alice","extra":1}`} {
		resp, err := f.ts.Client().Post(f.ts.URL+"/register", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		var e struct {
			Code string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest || e.Code != "invalid_payload" {
			t.Fatalf("%q: status %d code %q", body, resp.StatusCode, e.Code)
		}
	}

	err := f.api.Register(context.Background(), domain.RegistrationPayload{Username: "alice"})
	if !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("want ErrInvalidPayload, got %v", err)
	}
}

func TestHTTP_HealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	_, _ = f.client().Login(context.Background(), "ghost", testPassword)

	resp, err := f.ts.Client().Get(f.ts.URL + "/healthz")
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("healthz: %v %v", resp, err)
	}
	resp.Body.Close()

	resp, err = f.ts.Client().Get(f.ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `cipherchat_logins_total{result="failure"} 1`) {
		t.Fatalf("metrics body:\n%s", body)
	}
}

func TestHTTPClient_WebSocketURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":   "ws://localhost:8080/ws",
		"https://chat.example/":   "wss://chat.example/ws",
		"https://chat.example/v1": "wss://chat.example/v1/ws",
	}
	for in, want := range cases {
		got, err := relay.NewHTTP(in, nil).WebSocketURL()
		if err != nil || got != want {
			t.Fatalf("%s -> %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := relay.NewHTTP("ftp://x", nil).WebSocketURL(); err == nil {
		t.Fatal("expected error for ftp scheme")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocket_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL, err := f.api.WebSocketURL()
	if err != nil {
		t.Fatalf("WebSocketURL: %v", err)
	}
	a, err := relay.Dial(ctx, wsURL, zerolog.Nop())
	if err != nil {
		t.Fatalf("dial a: %v", err)
	}
	defer a.Close()
	b, err := relay.Dial(ctx, wsURL, zerolog.Nop())
	if err != nil {
		t.Fatalf("dial b: %v", err)
	}
	defer b.Close()
	waitFor(t, "both clients attached", func() bool { n, _ := f.hub.Stats(); return n == 2 })

	presence := make(chan domain.Presence, 1)
	a.Subscribe(domain.EventPresenceAnnounce, func(data json.RawMessage) {
		var p domain.Presence
		if json.Unmarshal(data, &p) == nil {
			presence <- p
		}
	})
	messages := make(chan domain.Message, 1)
	unsubscribe := b.Subscribe(domain.EventMessage, func(data json.RawMessage) {
		var m domain.Message
		if json.Unmarshal(data, &m) == nil {
			messages <- m
		}
	})
	defer unsubscribe()

	for _, c := range []*relay.WSConn{a, b} {
		if err := c.Emit(ctx, domain.EventJoin, domain.Membership{Channel: channel.Global}); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	if err := b.Emit(ctx, domain.EventPresenceAnnounce, domain.Presence{IdentityID: "b", DisplayName: "bob", PublicKeyHash: hashOf("bob")}); err != nil {
		t.Fatalf("announce: %v", err)
	}
	select {
	case p := <-presence:
		if p.DisplayName != "bob" {
			t.Fatalf("presence %+v", p)
		}
	case <-ctx.Done():
		t.Fatal("no presence received")
	}

	if err := a.Emit(ctx, domain.EventMessage, domain.Message{SenderName: "alice", Body: "hi all", Channel: channel.Global, MessageType: domain.MessagePlain}); err != nil {
		t.Fatalf("emit message: %v", err)
	}
	select {
	case m := <-messages:
		if m.Body != "hi all" || m.ID == "" {
			t.Fatalf("message %+v", m)
		}
	case <-ctx.Done():
		t.Fatal("no message received")
	}

	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case <-a.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("read loop did not stop")
	}
	if err := a.Emit(ctx, domain.EventLeave, domain.Membership{Channel: channel.Global}); !errors.Is(err, relay.ErrClosed) {
		t.Fatalf("emit after close: want ErrClosed, got %v", err)
	}
	waitFor(t, "detach", func() bool { n, _ := f.hub.Stats(); return n == 1 })
}
