package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"castrelay/internal/domain"
	"castrelay/internal/infrastructure/metrics"
)

// Session couples one websocket connection with its domain state and an
// outbound queue. The read pump is the only goroutine parsing inbound frames,
// which keeps per-sender ordering; the write pump is the only goroutine
// touching the connection for writes.
type Session struct {
	State *domain.Session

	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once

	pingInterval time.Duration
	pongWait     time.Duration
}

func newSession(conn *websocket.Conn, sendBuffer int, pingInterval, pongWait time.Duration) *Session {
	return &Session{
		State:        domain.NewSession(),
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		pingInterval: pingInterval,
		pongWait:     pongWait,
	}
}

func (s *Session) ConnectionID() string {
	return s.State.ConnectionID
}

// deliver enqueues a pre-marshaled frame without blocking. A recipient whose
// buffer is full simply misses the frame; fan-out to other members must not
// stall behind a slow reader.
func (s *Session) deliver(frame []byte) bool {
	select {
	case s.send <- frame:
		metrics.DeliveriesTotal.Inc()
		return true
	default:
		metrics.DeliveriesDropped.Inc()
		return false
	}
}

// sendAck marshals and enqueues an ack. Acks share the ordered outbound queue
// with pushed events, so a client sees its ack and subsequent deliveries in a
// consistent order. Pushed events may be dropped under backpressure; acks may
// not: every request gets exactly one ack, so a queue too full to take it
// closes the connection and the client observes a disconnect instead of a
// missing reply.
func (s *Session) sendAck(ack *AckFrame) {
	raw, err := json.Marshal(ack)
	if err != nil {
		return
	}
	select {
	case s.send <- raw:
	default:
		metrics.SessionsSaturated.Inc()
		s.terminate()
	}
}

// terminate force-closes the underlying connection. The failed read unblocks
// the read pump, which runs the normal cleanup path.
func (s *Session) terminate() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

// writePump drains the outbound queue onto the connection and keeps the
// connection alive with pings. Exits when the queue is closed or a write
// fails; either way the connection is torn down, which unblocks the read
// pump and triggers cleanup there.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
