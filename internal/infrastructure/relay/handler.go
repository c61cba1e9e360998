package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"castrelay/internal/domain"
	"castrelay/internal/infrastructure/logging"
	"castrelay/internal/infrastructure/metrics"
)

// Handler upgrades HTTP requests to relay connections and runs the per-
// connection pumps.
type Handler struct {
	hub        *Hub
	dispatcher *Dispatcher
	validator  KeyValidator
	logger     logging.Logger

	upgrader         websocket.Upgrader
	handshakeTimeout time.Duration
	sendBuffer       int
	pingInterval     time.Duration
	pongWait         time.Duration
	maxFrameSize     int64
}

type HandlerOptions struct {
	HandshakeTimeout time.Duration
	SendBuffer       int
	PingInterval     time.Duration
	PongWait         time.Duration
	MaxFrameSize     int64
}

func NewHandler(hub *Hub, dispatcher *Dispatcher, validator KeyValidator, logger logging.Logger, opts HandlerOptions) *Handler {
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.SendBuffer == 0 {
		opts.SendBuffer = 64
	}
	if opts.PingInterval == 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.PongWait == 0 {
		opts.PongWait = 60 * time.Second
	}
	if opts.MaxFrameSize == 0 {
		opts.MaxFrameSize = 1 << 20
	}

	return &Handler{
		hub:        hub,
		dispatcher: dispatcher,
		validator:  validator,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		handshakeTimeout: opts.HandshakeTimeout,
		sendBuffer:       opts.SendBuffer,
		pingInterval:     opts.PingInterval,
		pongWait:         opts.PongWait,
		maxFrameSize:     opts.MaxFrameSize,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(logging.Transport, logging.Handshake, "upgrade failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	s := newSession(conn, h.sendBuffer, h.pingInterval, h.pongWait)
	go s.writePump()
	go h.readPump(s)
}

// authenticate enforces the handshake: the first frame must be an auth
// request carrying a valid api key, within the handshake window. No room
// operation is reachable before this succeeds.
func (h *Handler) authenticate(s *Session) error {
	_ = s.conn.SetReadDeadline(time.Now().Add(h.handshakeTimeout))

	_, raw, err := s.conn.ReadMessage()
	if err != nil {
		// A deadline expiry means the client never sent its auth frame; any
		// other read error is the client hanging up first, which is not a
		// handshake timeout and must not be counted as one.
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			metrics.HandshakeFailures.WithLabelValues("timeout").Inc()
			return domain.ErrHandshakeTimeout
		}
		metrics.HandshakeFailures.WithLabelValues("closed").Inc()
		return fmt.Errorf("handshake read: %w", err)
	}

	var frame RequestFrame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Type != OpAuth {
		metrics.HandshakeFailures.WithLabelValues("malformed").Inc()
		return domain.ErrUnauthorized
	}

	var req authRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil || req.UserID == "" {
		metrics.HandshakeFailures.WithLabelValues("malformed").Inc()
		return domain.ErrUnauthorized
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.handshakeTimeout)
	defer cancel()
	if err := h.validator.Validate(ctx, req.APIKey); err != nil {
		metrics.HandshakeFailures.WithLabelValues("bad_key").Inc()
		return domain.ErrUnauthorized
	}

	if err := s.State.Authenticate(req.UserID); err != nil {
		return err
	}

	s.sendAck(okAck(frame.ID, authAck{ConnectionID: s.ConnectionID()}))
	return nil
}

func (h *Handler) readPump(s *Session) {
	// Cleanup is tied to the read pump returning, which happens on every
	// disconnect path: client close, timeout, protocol error, write failure
	// (write pump closes the conn, failing the pending read).
	defer func() {
		h.dispatcher.Cleanup(s)
		s.close()
		_ = s.conn.Close()
		h.logger.Info(logging.Transport, logging.Disconnect, "session closed", map[logging.ExtraKey]any{
			logging.ConnectionID: s.ConnectionID(),
			logging.UserID:       s.State.UserID(),
		})
	}()

	s.conn.SetReadLimit(h.maxFrameSize)

	if err := h.authenticate(s); err != nil {
		// Authentication failures terminate the connection with no ack.
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(time.Second),
		)
		return
	}

	h.hub.register(s)
	h.logger.Info(logging.Transport, logging.Handshake, "session authenticated", map[logging.ExtraKey]any{
		logging.ConnectionID: s.ConnectionID(),
		logging.UserID:       s.State.UserID(),
	})

	_ = s.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn(logging.Transport, logging.Disconnect, "read error", map[logging.ExtraKey]any{
					logging.ConnectionID: s.ConnectionID(),
					logging.ErrorMessage: err.Error(),
				})
			}
			return
		}

		var frame RequestFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.sendAck(errAck(0, domain.ErrInvalidInput))
			continue
		}

		s.sendAck(h.dispatcher.Handle(s, &frame))
	}
}
