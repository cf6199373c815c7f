package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"cipherchat/internal/domain"
)

// ErrClosed is returned by Emit after the connection has closed.
var ErrClosed = errors.New("relay connection closed")

// WSConn is a client connection to the websocket relay. Handlers run on the
// connection's read goroutine in arrival order and must not block.
type WSConn struct {
	conn *websocket.Conn
	log  zerolog.Logger

	wmu sync.Mutex

	hmu      sync.RWMutex
	handlers map[domain.EventName]map[uint64]func(json.RawMessage)
	nextID   uint64

	once sync.Once
	done chan struct{}
	err  error
}

// Dial connects to the relay at url (ws:// or wss://).
func Dial(ctx context.Context, url string, log zerolog.Logger) (*WSConn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", url, err)
	}
	c := &WSConn{
		conn:     conn,
		log:      log.With().Str("component", "wsconn").Logger(),
		handlers: make(map[domain.EventName]map[uint64]func(json.RawMessage)),
		done:     make(chan struct{}),
	}
	conn.SetReadLimit(MaxFrameBytes)
	go c.readLoop()
	return c, nil
}

// Emit sends payload as event. The write honours ctx's deadline.
func (c *WSConn) Emit(ctx context.Context, event domain.EventName, payload any) error {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

// Subscribe registers h for event.
func (c *WSConn) Subscribe(event domain.EventName, h func(json.RawMessage)) func() {
	c.hmu.Lock()
	id := c.nextID
	c.nextID++
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]func(json.RawMessage))
	}
	c.handlers[event][id] = h
	c.hmu.Unlock()

	return func() {
		c.hmu.Lock()
		delete(c.handlers[event], id)
		c.hmu.Unlock()
	}
}

// Done is closed when the connection ends.
func (c *WSConn) Done() <-chan struct{} { return c.done }

// Err reports why the connection ended, once Done is closed.
func (c *WSConn) Err() error {
	<-c.done
	return c.err
}

// Close sends a close frame and waits for the read loop to finish.
func (c *WSConn) Close() error {
	c.wmu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.wmu.Unlock()

	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		_ = c.conn.Close()
		<-c.done
	}
	return nil
}

func (c *WSConn) readLoop() {
	defer func() {
		_ = c.conn.Close()
		c.once.Do(func() { close(c.done) })
	}()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.err = err
			}
			return
		}
		f, err := DecodeFrame(raw)
		if err != nil {
			c.log.Debug().Err(err).Msg("dropping frame")
			continue
		}
		c.dispatch(f)
	}
}

func (c *WSConn) dispatch(f Frame) {
	c.hmu.RLock()
	hs := make([]func(json.RawMessage), 0, len(c.handlers[f.Event]))
	for _, h := range c.handlers[f.Event] {
		hs = append(hs, h)
	}
	c.hmu.RUnlock()
	for _, h := range hs {
		h(f.Data)
	}
}

// Compile-time assertion that WSConn implements domain.RelayConn.
var _ domain.RelayConn = (*WSConn)(nil)
