package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cipherchat/internal/crypto"
	"cipherchat/internal/domain"
	"cipherchat/internal/observability"
	"cipherchat/internal/protocol/channel"
	idkeys "cipherchat/internal/protocol/identity"
	"cipherchat/internal/protocol/seal"
	"cipherchat/internal/session"
)

var (
	// ErrFingerprintMismatch is returned when a directory answer does not
	// hash to the public key hash it was requested or returned under.
	ErrFingerprintMismatch = errors.New("public key does not match its hash")
	// ErrSelf is returned when a private message is addressed to the sender.
	ErrSelf = errors.New("cannot send a private message to yourself")
	// ErrNoMessageID is returned by MarkRead for messages the relay never
	// assigned an id to.
	ErrNoMessageID = errors.New("message has no id")
	// ErrEmptyMessage is returned for blank message text.
	ErrEmptyMessage = errors.New("message is empty")
)

// Reasons reported in Opened.Reason in addition to those from seal.
const (
	ReasonNoSession      = "no active session"
	ReasonNotParticipant = "not a participant"
	ReasonChannel        = "channel does not match participants"
	ReasonPeerKey        = "peer public key unavailable"
)

// Service is the client side of the chat relay for the identity loaded in
// its keyring.
type Service struct {
	conn    domain.RelayConn
	dir     domain.Directory
	keyring *session.Keyring

	sealer *seal.Sealer
	ids    *idkeys.Manager

	log     zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time

	identityID string

	mu     sync.Mutex
	peers  map[domain.PublicKeyHash]domain.PublicKey
	joined map[domain.Channel]struct{}
}

// New returns a message service speaking over conn.
func New(
	conn domain.RelayConn,
	dir domain.Directory,
	keyring *session.Keyring,
	log zerolog.Logger,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		conn:       conn,
		dir:        dir,
		keyring:    keyring,
		sealer:     seal.New(crypto.Default),
		ids:        idkeys.New(crypto.Default),
		log:        log.With().Str("component", "message").Logger(),
		metrics:    metrics,
		now:        time.Now,
		identityID: uuid.NewString(),
		peers:      make(map[domain.PublicKeyHash]domain.PublicKey),
		joined:     make(map[domain.Channel]struct{}),
	}
}

// IdentityID is the per-connection id this service announces itself under.
func (s *Service) IdentityID() string { return s.identityID }

// Announce tells the relay the local identity is online.
func (s *Service) Announce(ctx context.Context) error {
	info, err := s.keyring.Identity()
	if err != nil {
		return err
	}
	return s.conn.Emit(ctx, domain.EventPresenceAnnounce, domain.Presence{
		IdentityID:    s.identityID,
		DisplayName:   info.Username.String(),
		PublicKeyHash: info.PublicKeyHash,
	})
}

// Withdraw tells the relay the local identity is going offline.
func (s *Service) Withdraw(ctx context.Context) error {
	info, err := s.keyring.Identity()
	if err != nil {
		return err
	}
	return s.conn.Emit(ctx, domain.EventPresenceWithdraw, domain.Presence{
		IdentityID:    s.identityID,
		DisplayName:   info.Username.String(),
		PublicKeyHash: info.PublicKeyHash,
	})
}

// Join subscribes the connection to c.
func (s *Service) Join(ctx context.Context, c domain.Channel) error {
	if err := s.conn.Emit(ctx, domain.EventJoin, domain.Membership{Channel: c}); err != nil {
		return fmt.Errorf("join %s: %w", c, err)
	}
	s.mu.Lock()
	s.joined[c] = struct{}{}
	s.mu.Unlock()
	s.log.Debug().Str("channel", c.String()).Msg("joined")
	return nil
}

// Leave unsubscribes the connection from c.
func (s *Service) Leave(ctx context.Context, c domain.Channel) error {
	if err := s.conn.Emit(ctx, domain.EventLeave, domain.Membership{Channel: c}); err != nil {
		return fmt.Errorf("leave %s: %w", c, err)
	}
	s.mu.Lock()
	delete(s.joined, c)
	s.mu.Unlock()
	return nil
}

// JoinPeer joins the pair channel shared with peer and returns it.
func (s *Service) JoinPeer(ctx context.Context, peer domain.PublicKeyHash) (domain.Channel, error) {
	info, err := s.keyring.Identity()
	if err != nil {
		return "", err
	}
	peer = normalizeHash(peer)
	if peer == info.PublicKeyHash {
		return "", ErrSelf
	}
	c := channel.ID(info.PublicKeyHash, peer)
	if s.isJoined(c) {
		return c, nil
	}
	return c, s.Join(ctx, c)
}

func (s *Service) isJoined(c domain.Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.joined[c]
	return ok
}

// SendGlobal posts text to the public room as plaintext.
func (s *Service) SendGlobal(ctx context.Context, text string) (domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, ErrEmptyMessage
	}
	info, err := s.keyring.Identity()
	if err != nil {
		return domain.Message{}, err
	}
	if !s.isJoined(channel.Global) {
		if err := s.Join(ctx, channel.Global); err != nil {
			return domain.Message{}, err
		}
	}
	msg := domain.Message{
		SenderName:          info.Username.String(),
		Body:                text,
		Timestamp:           s.timestamp(),
		Channel:             channel.Global,
		SenderPublicKeyHash: info.PublicKeyHash,
		MessageType:         domain.MessagePlain,
	}
	if err := s.conn.Emit(ctx, domain.EventMessage, msg); err != nil {
		return domain.Message{}, fmt.Errorf("send message: %w", err)
	}
	return msg, nil
}

// SendPrivate seals text for peer and posts it on their pair channel. The
// returned message is the plaintext view of what was sent.
func (s *Service) SendPrivate(ctx context.Context, peer domain.PublicKeyHash, text string) (domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, ErrEmptyMessage
	}
	info, err := s.keyring.Identity()
	if err != nil {
		return domain.Message{}, err
	}
	peer = normalizeHash(peer)
	if peer == info.PublicKeyHash {
		return domain.Message{}, ErrSelf
	}
	peerKey, err := s.PeerKey(ctx, peer)
	if err != nil {
		return domain.Message{}, err
	}
	c, err := s.JoinPeer(ctx, peer)
	if err != nil {
		return domain.Message{}, err
	}

	receiver := peer
	msg := domain.Message{
		SenderName:            info.Username.String(),
		Body:                  text,
		Timestamp:             s.timestamp(),
		Channel:               c,
		SenderPublicKeyHash:   info.PublicKeyHash,
		ReceiverPublicKeyHash: &receiver,
		MessageType:           domain.MessagePlain,
	}

	var sealed domain.Message
	err = s.keyring.WithPrivateKey(func(own domain.PrivateKey) error {
		var err error
		sealed, err = s.sealer.Message(msg, own, peerKey)
		return err
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("seal message: %w", err)
	}
	s.metrics.RecordCryptoOperation("seal")

	if err := s.conn.Emit(ctx, domain.EventMessage, sealed); err != nil {
		return domain.Message{}, fmt.Errorf("send message: %w", err)
	}
	s.log.Debug().Str("channel", c.String()).Str("receiver", peer.String()).Msg("sent sealed message")

	msg.MessageType = domain.MessageEncrypted
	msg.SchemeVersion = sealed.SchemeVersion
	return msg, nil
}

// Open returns msg with its fields readable. Messages that cannot be opened
// come back unchanged with DecryptionError set.
func (s *Service) Open(ctx context.Context, msg domain.Message) domain.Opened {
	if msg.MessageType != domain.MessageEncrypted {
		return domain.Opened{Message: msg}
	}
	opened := s.open(ctx, msg)
	if opened.DecryptionError {
		s.metrics.RecordDecryptFailure(opened.Reason)
		s.log.Warn().
			Str("channel", msg.Channel.String()).
			Str("sender", msg.SenderPublicKeyHash.String()).
			Str("reason", opened.Reason).
			Msg("message could not be opened")
	}
	return opened
}

func (s *Service) open(ctx context.Context, msg domain.Message) domain.Opened {
	info, err := s.keyring.Identity()
	if err != nil {
		return seal.Undecryptable(msg, ReasonNoSession)
	}
	if msg.ReceiverPublicKeyHash == nil {
		return seal.Undecryptable(msg, ReasonNotParticipant)
	}
	self := info.PublicKeyHash
	sender := normalizeHash(msg.SenderPublicKeyHash)
	receiver := normalizeHash(*msg.ReceiverPublicKeyHash)

	var other domain.PublicKeyHash
	switch self {
	case receiver:
		other = sender
	case sender:
		other = receiver
	default:
		return seal.Undecryptable(msg, ReasonNotParticipant)
	}
	if _, ok := channel.Involves(msg.Channel, self, other); !ok {
		return seal.Undecryptable(msg, ReasonChannel)
	}
	peerKey, err := s.PeerKey(ctx, other)
	if err != nil {
		return seal.Undecryptable(msg, ReasonPeerKey)
	}

	var opened domain.Opened
	err = s.keyring.WithPrivateKey(func(own domain.PrivateKey) error {
		opened = s.sealer.OpenMessage(msg, own, peerKey)
		return nil
	})
	if err != nil {
		return seal.Undecryptable(msg, ReasonNoSession)
	}
	s.metrics.RecordCryptoOperation("open")
	return opened
}

// PeerKey returns the verified public key for hash.
func (s *Service) PeerKey(ctx context.Context, hash domain.PublicKeyHash) (domain.PublicKey, error) {
	hash = normalizeHash(hash)
	s.mu.Lock()
	pub, ok := s.peers[hash]
	s.mu.Unlock()
	if ok {
		return pub, nil
	}

	rec, err := s.dir.PublicKeyByHash(ctx, hash)
	if err != nil {
		return "", fmt.Errorf("look up %s: %w", hash, err)
	}
	if !s.ids.VerifyFingerprint(rec.PublicKey, hash) {
		s.log.Warn().Str("public_key_hash", hash.String()).Msg("directory key does not match hash")
		return "", ErrFingerprintMismatch
	}
	s.remember(hash, rec.PublicKey)
	return rec.PublicKey, nil
}

// Lookup resolves username to a verified directory entry.
func (s *Service) Lookup(ctx context.Context, username domain.Username) (domain.PublicKeyRecord, error) {
	rec, err := s.dir.PublicKeyByUsername(ctx, username)
	if err != nil {
		return domain.PublicKeyRecord{}, fmt.Errorf("look up %s: %w", username, err)
	}
	rec.PublicKeyHash = normalizeHash(rec.PublicKeyHash)
	if !s.ids.VerifyFingerprint(rec.PublicKey, rec.PublicKeyHash) {
		return domain.PublicKeyRecord{}, ErrFingerprintMismatch
	}
	s.remember(rec.PublicKeyHash, rec.PublicKey)
	return rec, nil
}

func (s *Service) remember(hash domain.PublicKeyHash, pub domain.PublicKey) {
	s.mu.Lock()
	s.peers[hash] = pub
	s.mu.Unlock()
}

// StartTyping tells the other members of c that the local user is typing.
func (s *Service) StartTyping(ctx context.Context, c domain.Channel, receiver *domain.PublicKeyHash) error {
	return s.typing(ctx, domain.EventTypingStart, c, receiver)
}

// StopTyping withdraws a previous StartTyping.
func (s *Service) StopTyping(ctx context.Context, c domain.Channel, receiver *domain.PublicKeyHash) error {
	return s.typing(ctx, domain.EventTypingStop, c, receiver)
}

func (s *Service) typing(ctx context.Context, event domain.EventName, c domain.Channel, receiver *domain.PublicKeyHash) error {
	info, err := s.keyring.Identity()
	if err != nil {
		return err
	}
	return s.conn.Emit(ctx, event, domain.Typing{
		Channel:               c,
		DisplayName:           info.Username.String(),
		ReceiverPublicKeyHash: receiver,
	})
}

// MarkRead sends a read receipt for msg to the members of its channel.
func (s *Service) MarkRead(ctx context.Context, msg domain.Message) error {
	if msg.ID == "" {
		return ErrNoMessageID
	}
	return s.conn.Emit(ctx, domain.EventReadReceipt, domain.ReadReceipt{
		MessageID:           msg.ID,
		Channel:             msg.Channel,
		SenderPublicKeyHash: msg.SenderPublicKeyHash,
	})
}

// OnMessage calls h with every message delivered to a joined channel,
// already opened. The returned function stops delivery.
func (s *Service) OnMessage(ctx context.Context, h func(domain.Opened)) func() {
	return s.conn.Subscribe(domain.EventMessage, func(data json.RawMessage) {
		var msg domain.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn().Err(err).Msg("drop malformed message")
			return
		}
		h(s.Open(ctx, msg))
	})
}

// OnPresence calls h for every presence change; online is false for a
// withdraw.
func (s *Service) OnPresence(h func(p domain.Presence, online bool)) func() {
	on := s.conn.Subscribe(domain.EventPresenceAnnounce, presenceHandler(s.log, func(p domain.Presence) { h(p, true) }))
	off := s.conn.Subscribe(domain.EventPresenceWithdraw, presenceHandler(s.log, func(p domain.Presence) { h(p, false) }))
	return func() { on(); off() }
}

// FollowPresence joins the pair channel of every peer that announces itself,
// so their private messages reach this connection. After joining it sends a
// typing stop on the channel, which tells a peer already there that this end
// is listening.
func (s *Service) FollowPresence(ctx context.Context) func() {
	return s.OnPresence(func(p domain.Presence, online bool) {
		if !online {
			return
		}
		peer := normalizeHash(p.PublicKeyHash)
		c, err := s.JoinPeer(ctx, peer)
		if err != nil {
			if !errors.Is(err, ErrSelf) {
				s.log.Warn().Err(err).Str("peer", peer.String()).Msg("join pair channel")
			}
			return
		}
		if err := s.StopTyping(ctx, c, &peer); err != nil {
			s.log.Debug().Err(err).Str("channel", c.String()).Msg("ready hint")
		}
	})
}

func presenceHandler(log zerolog.Logger, h func(domain.Presence)) func(json.RawMessage) {
	return func(data json.RawMessage) {
		var p domain.Presence
		if err := json.Unmarshal(data, &p); err != nil {
			log.Warn().Err(err).Msg("drop malformed presence")
			return
		}
		h(p)
	}
}

// OnTyping calls h for typing notifications; active is false for a stop.
func (s *Service) OnTyping(h func(t domain.Typing, active bool)) func() {
	sub := func(event domain.EventName, active bool) func() {
		return s.conn.Subscribe(event, func(data json.RawMessage) {
			var t domain.Typing
			if err := json.Unmarshal(data, &t); err != nil {
				s.log.Warn().Err(err).Msg("drop malformed typing event")
				return
			}
			h(t, active)
		})
	}
	start := sub(domain.EventTypingStart, true)
	stop := sub(domain.EventTypingStop, false)
	return func() { start(); stop() }
}

// OnReadReceipt calls h for every read receipt delivered to this connection.
func (s *Service) OnReadReceipt(h func(domain.ReadReceipt)) func() {
	return s.conn.Subscribe(domain.EventReadReceipt, func(data json.RawMessage) {
		var r domain.ReadReceipt
		if err := json.Unmarshal(data, &r); err != nil {
			s.log.Warn().Err(err).Msg("drop malformed read receipt")
			return
		}
		h(r)
	})
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func normalizeHash(h domain.PublicKeyHash) domain.PublicKeyHash {
	return domain.PublicKeyHash(strings.ToLower(strings.TrimSpace(h.String())))
}

var _ domain.MessageService = (*Service)(nil)
