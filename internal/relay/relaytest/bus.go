// Package relaytest provides an in-memory relay for tests.
//
// A Bus runs the production relay.Hub with in-process peers, so routing,
// membership and validation behave exactly as on the server. Delivery is
// synchronous: when Emit returns, every recipient's handlers have run.
package relaytest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"cipherchat/internal/domain"
	"cipherchat/internal/relay"
)

// Bus connects any number of Conns through one hub.
type Bus struct {
	hub *relay.Hub
}

// NewBus returns a bus with an empty hub.
func NewBus() *Bus {
	return &Bus{hub: relay.NewHub(zerolog.Nop(), nil)}
}

// Hub exposes the underlying hub.
func (b *Bus) Hub() *relay.Hub { return b.hub }

// Connect attaches a new connection.
func (b *Bus) Connect() *Conn {
	c := &Conn{handlers: make(map[domain.EventName]map[uint64]func(json.RawMessage))}
	c.member = b.hub.Attach(c)
	return c
}

// Conn is a domain.RelayConn attached to a Bus. Unlike a network
// connection, Emit returns the hub's rejection if it refuses a frame.
type Conn struct {
	member *relay.Member

	mu       sync.Mutex
	handlers map[domain.EventName]map[uint64]func(json.RawMessage)
	next     uint64
	received []relay.Frame
	closed   bool
}

// Emit routes payload through the hub.
func (c *Conn) Emit(ctx context.Context, event domain.EventName, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return relay.ErrClosed
	}
	frame, err := relay.EncodeFrame(event, payload)
	if err != nil {
		return err
	}
	return c.member.Handle(frame)
}

// Subscribe registers h for event.
func (c *Conn) Subscribe(event domain.EventName, h func(json.RawMessage)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]func(json.RawMessage))
	}
	c.handlers[event][id] = h
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[event], id)
	}
}

// Close detaches the connection from the hub.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.member.Detach()
	return nil
}

// Deliver implements relay.Peer.
func (c *Conn) Deliver(raw []byte) bool {
	f, err := relay.DecodeFrame(raw)
	if err != nil {
		return false
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.received = append(c.received, f)
	hs := make([]func(json.RawMessage), 0, len(c.handlers[f.Event]))
	for _, h := range c.handlers[f.Event] {
		hs = append(hs, h)
	}
	c.mu.Unlock()

	for _, h := range hs {
		h(f.Data)
	}
	return true
}

// Received returns the payloads delivered for event, oldest first.
func (c *Conn) Received(event domain.EventName) []json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []json.RawMessage
	for _, f := range c.received {
		if f.Event == event {
			out = append(out, f.Data)
		}
	}
	return out
}

// Decode unmarshals the i-th payload received for event into out.
func (c *Conn) Decode(event domain.EventName, i int, out any) error {
	got := c.Received(event)
	if i < 0 || i >= len(got) {
		return errors.New("relaytest: no such frame")
	}
	return json.Unmarshal(got[i], out)
}

// Compile-time assertions for both sides of the bus.
var (
	_ domain.RelayConn = (*Conn)(nil)
	_ relay.Peer       = (*Conn)(nil)
)
