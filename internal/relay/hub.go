package relay

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cipherchat/internal/domain"
	"cipherchat/internal/observability"
	"cipherchat/internal/protocol/channel"
)

var pairChannel = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Peer receives frames routed to one attached client. Deliver must not
// block; it returns false if the frame was dropped.
type Peer interface {
	Deliver(frame []byte) bool
}

// Hub routes frames between members. It holds no message history.
type Hub struct {
	mu      sync.RWMutex
	members map[*Member]struct{}
	rooms   map[domain.Channel]map[*Member]struct{}

	log     zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// Member is one attached peer and its relay state.
type Member struct {
	hub      *Hub
	peer     Peer
	id       string
	rooms    map[domain.Channel]struct{}
	presence *domain.Presence
}

// NewHub returns an empty hub.
func NewHub(log zerolog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		members: make(map[*Member]struct{}),
		rooms:   make(map[domain.Channel]map[*Member]struct{}),
		log:     log.With().Str("component", "hub").Logger(),
		metrics: metrics,
		now:     time.Now,
	}
}

// Attach registers p and returns its member handle.
func (h *Hub) Attach(p Peer) *Member {
	m := &Member{hub: h, peer: p, id: uuid.NewString(), rooms: make(map[domain.Channel]struct{})}
	h.mu.Lock()
	h.members[m] = struct{}{}
	h.mu.Unlock()
	h.metrics.ClientConnected(1)
	h.log.Debug().Str("member", m.id).Msg("attached")
	return m
}

// Stats returns the number of members and non-empty rooms.
func (h *Hub) Stats() (members, rooms int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members), len(h.rooms)
}

// ID returns the hub-assigned connection id.
func (m *Member) ID() string { return m.id }

// Detach removes m from every room and withdraws its presence.
func (m *Member) Detach() {
	h := m.hub
	h.mu.Lock()
	if _, ok := h.members[m]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.members, m)
	for c := range m.rooms {
		h.leaveLocked(m, c)
	}
	p := m.presence
	m.presence = nil
	targets := h.othersLocked(m)
	h.mu.Unlock()

	h.metrics.ClientConnected(-1)
	if p != nil {
		h.fanout(targets, domain.EventPresenceWithdraw, *p)
	}
	h.log.Debug().Str("member", m.id).Msg("detached")
}

// Handle processes one frame received from m.
func (m *Member) Handle(raw []byte) error {
	f, err := DecodeFrame(raw)
	if err != nil {
		return err
	}
	h := m.hub
	switch f.Event {
	case domain.EventJoin, domain.EventLeave:
		var p domain.Membership
		if err := decode(f, &p); err != nil {
			return err
		}
		if !validChannel(p.Channel) {
			return fmt.Errorf("%w: channel %q", ErrInvalidFrame, p.Channel)
		}
		h.mu.Lock()
		if _, ok := h.members[m]; ok {
			if f.Event == domain.EventJoin {
				h.joinLocked(m, p.Channel)
			} else {
				h.leaveLocked(m, p.Channel)
			}
		}
		h.mu.Unlock()

	case domain.EventPresenceAnnounce:
		var p domain.Presence
		if err := decode(f, &p); err != nil {
			return err
		}
		if p.IdentityID == "" || p.PublicKeyHash == "" {
			return fmt.Errorf("%w: presence needs identityId and publicKeyHash", ErrInvalidFrame)
		}
		h.mu.Lock()
		m.presence = &p
		targets := h.othersLocked(m)
		existing := make([]domain.Presence, 0, len(targets))
		for _, o := range targets {
			if o.presence != nil {
				existing = append(existing, *o.presence)
			}
		}
		h.mu.Unlock()
		h.fanout(targets, f.Event, p)
		for _, e := range existing {
			h.fanout([]*Member{m}, domain.EventPresenceAnnounce, e)
		}

	case domain.EventPresenceWithdraw:
		h.mu.Lock()
		p := m.presence
		m.presence = nil
		targets := h.othersLocked(m)
		h.mu.Unlock()
		if p != nil {
			h.fanout(targets, f.Event, *p)
		}

	case domain.EventMessage:
		var msg domain.Message
		if err := decode(f, &msg); err != nil {
			return err
		}
		if err := validMessage(msg); err != nil {
			return err
		}
		if err := h.matchesPresence(m, msg.SenderPublicKeyHash); err != nil {
			return err
		}
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.MessageType != domain.MessageEncrypted && msg.Timestamp == "" {
			msg.Timestamp = h.now().UTC().Format(time.RFC3339Nano)
		}
		targets, err := h.roomFor(m, msg.Channel, true)
		if err != nil {
			return err
		}
		h.fanout(targets, f.Event, msg)

	case domain.EventTypingStart, domain.EventTypingStop:
		var p domain.Typing
		if err := decode(f, &p); err != nil {
			return err
		}
		targets, err := h.roomFor(m, p.Channel, false)
		if err != nil {
			return err
		}
		h.fanout(targets, f.Event, p)

	case domain.EventReadReceipt:
		var p domain.ReadReceipt
		if err := decode(f, &p); err != nil {
			return err
		}
		if p.MessageID == "" {
			return fmt.Errorf("%w: read receipt without messageId", ErrInvalidFrame)
		}
		targets, err := h.roomFor(m, p.Channel, false)
		if err != nil {
			return err
		}
		h.fanout(targets, f.Event, p)

	default:
		return fmt.Errorf("%w: unknown event %q", ErrInvalidFrame, f.Event)
	}
	h.metrics.RecordRelayFrame(string(f.Event))
	return nil
}

// roomFor returns the members of c, requiring m to be one of them.
func (h *Hub) roomFor(m *Member, c domain.Channel, includeSelf bool) ([]*Member, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := m.rooms[c]; !ok {
		return nil, fmt.Errorf("%w: not a member of %q", ErrInvalidFrame, c)
	}
	out := make([]*Member, 0, len(h.rooms[c]))
	for o := range h.rooms[c] {
		if o != m || includeSelf {
			out = append(out, o)
		}
	}
	return out, nil
}

func (h *Hub) joinLocked(m *Member, c domain.Channel) {
	room, ok := h.rooms[c]
	if !ok {
		room = make(map[*Member]struct{})
		h.rooms[c] = room
	}
	room[m] = struct{}{}
	m.rooms[c] = struct{}{}
}

func (h *Hub) leaveLocked(m *Member, c domain.Channel) {
	delete(m.rooms, c)
	if room, ok := h.rooms[c]; ok {
		delete(room, m)
		if len(room) == 0 {
			delete(h.rooms, c)
		}
	}
}

func (h *Hub) othersLocked(m *Member) []*Member {
	out := make([]*Member, 0, len(h.members))
	for o := range h.members {
		if o != m {
			out = append(out, o)
		}
	}
	return out
}

// fanout delivers without holding the hub lock so peers may re-enter.
func (h *Hub) fanout(targets []*Member, event domain.EventName, payload any) {
	if len(targets) == 0 {
		return
	}
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", string(event)).Msg("encode frame")
		return
	}
	for _, t := range targets {
		if !t.peer.Deliver(frame) {
			h.log.Warn().Str("member", t.id).Str("event", string(event)).Msg("peer dropped frame")
		}
	}
}

func decode(f Frame, out any) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%w: %s without data", ErrInvalidFrame, f.Event)
	}
	if err := json.Unmarshal(f.Data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidFrame, f.Event, err)
	}
	return nil
}

func validChannel(c domain.Channel) bool {
	return channel.IsGlobal(c) || pairChannel.MatchString(c.String())
}

// matchesPresence rejects a sender hash that differs from the one m
// announced. Members that never announced are not checked.
func (h *Hub) matchesPresence(m *Member, sender domain.PublicKeyHash) error {
	h.mu.RLock()
	p := m.presence
	h.mu.RUnlock()
	if p != nil && !strings.EqualFold(string(sender), string(p.PublicKeyHash)) {
		return fmt.Errorf("%w: sender hash does not match announced presence", ErrInvalidFrame)
	}
	return nil
}

func validMessage(msg domain.Message) error {
	if !validChannel(msg.Channel) {
		return fmt.Errorf("%w: channel %q", ErrInvalidFrame, msg.Channel)
	}
	switch msg.MessageType {
	case domain.MessagePlain, domain.MessageSystem:
		if !channel.IsGlobal(msg.Channel) {
			return fmt.Errorf("%w: %s message outside the public room", ErrInvalidFrame, msg.MessageType)
		}
	case domain.MessageEncrypted:
		if msg.SenderPublicKeyHash == "" || msg.ReceiverPublicKeyHash == nil {
			return fmt.Errorf("%w: encrypted message without both key hashes", ErrInvalidFrame)
		}
		if channel.ID(msg.SenderPublicKeyHash, *msg.ReceiverPublicKeyHash) != msg.Channel {
			return fmt.Errorf("%w: channel does not belong to the named parties", ErrInvalidFrame)
		}
	default:
		return fmt.Errorf("%w: message type %q", ErrInvalidFrame, msg.MessageType)
	}
	return nil
}
