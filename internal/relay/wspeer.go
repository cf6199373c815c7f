package relay

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// wsPeer is the server side of one websocket client.
type wsPeer struct {
	conn *websocket.Conn
	send chan []byte

	once   sync.Once
	closed chan struct{}
}

// Deliver queues frame for the write pump. A full queue drops the frame.
func (p *wsPeer) Deliver(frame []byte) bool {
	select {
	case <-p.closed:
		return false
	default:
	}
	select {
	case p.send <- frame:
		return true
	default:
		return false
	}
}

func (p *wsPeer) shutdown() {
	p.once.Do(func() { close(p.closed) })
}

// ServeWS upgrades r and serves the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	p := &wsPeer{conn: conn, send: make(chan []byte, sendBuffer), closed: make(chan struct{})}
	m := h.Attach(p)

	go p.writePump()
	p.readPump(m)
}

func (p *wsPeer) readPump(m *Member) {
	defer func() {
		m.Detach()
		p.shutdown()
		_ = p.conn.Close()
	}()
	p.conn.SetReadLimit(MaxFrameBytes)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	log := m.hub.log.With().Str("member", m.ID()).Logger()
	for {
		_, raw, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("read")
			}
			return
		}
		if err := m.Handle(raw); err != nil {
			if errors.Is(err, ErrInvalidFrame) {
				log.Debug().Err(err).Msg("frame rejected")
				continue
			}
			log.Warn().Err(err).Msg("frame failed")
		}
	}
}

func (p *wsPeer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()
	for {
		select {
		case frame := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				p.shutdown()
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				p.shutdown()
				return
			}
		case <-p.closed:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
