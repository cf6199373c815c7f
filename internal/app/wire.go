package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"cipherchat/internal/observability"
	"cipherchat/internal/relay"
	identitysvc "cipherchat/internal/services/identity"
	messagesvc "cipherchat/internal/services/message"
	"cipherchat/internal/session"
	"cipherchat/internal/store"
)

// Wire bundles the stores, services and clients the CLI needs before a
// realtime connection exists.
type Wire struct {
	Config   Config
	Log      zerolog.Logger
	API      *relay.HTTPClient
	Profiles *store.ProfileFileStore
	Keyring  *session.Keyring
	Identity *identitysvc.Service
	// Metrics counts client-side crypto operations in a per-process
	// registry. The client does not serve it.
	Metrics *observability.Metrics
}

// NewWire constructs the dependency graph from cfg. Logs go to logOut, or
// stderr when nil.
func NewWire(cfg Config, logOut io.Writer) (*Wire, error) {
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	log := observability.NewLogger("cipherchat", Version, logOut, cfg.LogLevel)

	api := relay.NewHTTP(cfg.ServerURL, httpClient)
	profiles := store.NewProfileFileStore(cfg.Home)
	keyring := session.NewKeyring()
	metrics := observability.NewMetrics(nil)

	return &Wire{
		Config:   cfg,
		Log:      log,
		API:      api,
		Profiles: profiles,
		Keyring:  keyring,
		Identity: identitysvc.New(api, profiles, keyring, cfg.ServerURL, log, metrics),
		Metrics:  metrics,
	}, nil
}

// Chat is a live relay connection for the logged-in identity.
type Chat struct {
	Conn     *relay.WSConn
	Messages *messagesvc.Service
}

// Connect dials the relay websocket and returns a message service bound to
// the current session. The caller must Close the result.
func (w *Wire) Connect(ctx context.Context) (*Chat, error) {
	if !w.Keyring.Active() {
		return nil, session.ErrNoSession
	}
	wsURL, err := w.API.WebSocketURL()
	if err != nil {
		return nil, err
	}
	conn, err := relay.Dial(ctx, wsURL, w.Log)
	if err != nil {
		return nil, fmt.Errorf("connect relay: %w", err)
	}
	msgs := messagesvc.New(conn, w.API, w.Keyring, w.Log, w.Metrics)
	if err := msgs.Announce(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Chat{Conn: conn, Messages: msgs}, nil
}

// Close withdraws presence and closes the connection.
func (c *Chat) Close(ctx context.Context) error {
	_ = c.Messages.Withdraw(ctx)
	return c.Conn.Close()
}

// Close ends the session and wipes the private key from memory.
func (w *Wire) Close() {
	w.Identity.Logout()
}
