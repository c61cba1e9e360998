package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrClosed reports an operation on a client that has been closed or
	// has exhausted its reconnect attempts.
	ErrClosed = errors.New("relay: client closed")

	// ErrAckTimeout reports a request whose ack did not arrive in time.
	ErrAckTimeout = errors.New("relay: ack timeout")
)

// ServerError is a failed ack, carrying the server's error text verbatim.
type ServerError struct {
	Op      string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("relay: %s failed: %s", e.Op, e.Message)
}

// EventHandler receives pushed messages. Handlers run on the client's read
// goroutine and must not block.
type EventHandler func(msg Message)

type Options struct {
	// DialTimeout bounds the websocket dial plus the auth exchange.
	DialTimeout time.Duration
	// RequestTimeout is the default wait for an ack when the caller's
	// context has no deadline of its own.
	RequestTimeout time.Duration
	// MaxReconnectAttempts bounds redials after an unexpected disconnect.
	// Zero means the default of 5; negative disables reconnection.
	MaxReconnectAttempts int
	// ReconnectBackoff is the base delay between redials; attempt n waits
	// n times this long.
	ReconnectBackoff time.Duration
}

func (o *Options) withDefaults() Options {
	opts := *o
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 10 * time.Second
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.MaxReconnectAttempts == 0 {
		opts.MaxReconnectAttempts = 5
	}
	if opts.ReconnectBackoff == 0 {
		opts.ReconnectBackoff = 500 * time.Millisecond
	}
	return opts
}

// Client is a single authenticated relay connection. All methods are safe for
// concurrent use.
type Client struct {
	url    string
	apiKey string
	userID string
	opts   Options

	nextID     atomic.Uint64
	nextHandle atomic.Uint64

	mu           sync.Mutex
	conn         *websocket.Conn
	pending      map[uint64]chan serverFrame
	handlers     map[string]map[uint64]EventHandler
	connectionID string
	currentRoom  string
	closed       bool
	done         chan struct{}
}

// Dial connects, authenticates as userID and starts the read loop. The
// returned client is ready for room operations.
func Dial(ctx context.Context, url, apiKey, userID string, opts Options) (*Client, error) {
	c := &Client{
		url:      url,
		apiKey:   apiKey,
		userID:   userID,
		opts:     opts.withDefaults(),
		pending:  make(map[uint64]chan serverFrame),
		handlers: make(map[string]map[uint64]EventHandler),
		done:     make(chan struct{}),
	}

	conn, connectionID, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.conn = conn
	c.connectionID = connectionID
	c.mu.Unlock()

	go c.readLoop(conn)

	return c, nil
}

// connect dials and runs the auth exchange on a fresh conn. It touches no
// client state so it can serve both Dial and reconnection.
func (c *Client) connect(ctx context.Context) (*websocket.Conn, string, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("relay: dial %s: %w", c.url, err)
	}

	data, err := json.Marshal(authRequest{APIKey: c.apiKey, UserID: c.userID})
	if err != nil {
		conn.Close()
		return nil, "", err
	}

	id := c.nextID.Add(1)
	frame := requestFrame{ID: id, Type: opAuth, Data: data}

	deadline := time.Now().Add(c.opts.DialTimeout)
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(frame); err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("relay: auth write: %w", err)
	}

	_ = conn.SetReadDeadline(deadline)
	var ack serverFrame
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("relay: auth handshake: %w", err)
	}
	if ack.Type != typeAck || ack.ID != id || !ack.OK {
		conn.Close()
		return nil, "", &ServerError{Op: opAuth, Message: ack.Error}
	}

	var authed authAck
	if err := json.Unmarshal(ack.Data, &authed); err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("relay: auth ack decode: %w", err)
	}

	_ = conn.SetReadDeadline(time.Time{})
	return conn, authed.ConnectionID, nil
}

// ConnectionID returns the server-assigned id for the current connection.
// It changes after a successful reconnect.
func (c *Client) ConnectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectionID
}

// CreateRoom creates roomID and joins the caller as its owner.
func (c *Client) CreateRoom(ctx context.Context, roomID string) error {
	ack, err := c.request(ctx, opRoomCreate, roomCreateRequest{RoomID: roomID})
	if err != nil {
		return err
	}
	if !ack.OK {
		return &ServerError{Op: opRoomCreate, Message: ack.Error}
	}

	c.mu.Lock()
	c.currentRoom = roomID
	c.mu.Unlock()
	return nil
}

// JoinRoom joins roomID and reports the role granted, "owner" or "member".
// Joining a new room leaves the previous one.
func (c *Client) JoinRoom(ctx context.Context, roomID string) (string, error) {
	ack, err := c.request(ctx, opRoomJoin, roomJoinRequest{RoomID: roomID})
	if err != nil {
		return "", err
	}
	if !ack.OK {
		return "", &ServerError{Op: opRoomJoin, Message: ack.Error}
	}

	var joined roomJoinAck
	if err := json.Unmarshal(ack.Data, &joined); err != nil {
		return "", fmt.Errorf("relay: join ack decode: %w", err)
	}

	c.mu.Lock()
	c.currentRoom = roomID
	c.mu.Unlock()
	return joined.Role, nil
}

// Emit relays payload to every other member of roomID under the given event
// name. Payload must marshal to JSON; recipients receive it byte for byte.
func (c *Client) Emit(ctx context.Context, roomID, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("relay: marshal payload: %w", err)
	}

	ack, err := c.request(ctx, opRoomEmit, roomEmitRequest{RoomID: roomID, Event: event, Payload: raw})
	if err != nil {
		return err
	}
	if !ack.OK {
		return &ServerError{Op: opRoomEmit, Message: ack.Error}
	}
	return nil
}

// On registers a handler for pushed messages with the given event name.
// The returned func removes the handler.
func (c *Client) On(event string, handler EventHandler) (unsubscribe func()) {
	handle := c.nextHandle.Add(1)

	c.mu.Lock()
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]EventHandler)
	}
	c.handlers[event][handle] = handler
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if m := c.handlers[event]; m != nil {
			delete(m, handle)
			if len(m) == 0 {
				delete(c.handlers, event)
			}
		}
	}
}

// Close tears the connection down and fails any in-flight requests.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	close(c.done)
	c.failPendingLocked()
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return conn.Close()
	}
	return nil
}

// Done is closed once the client is closed or reconnection has given up.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) request(ctx context.Context, op string, payload any) (serverFrame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return serverFrame{}, err
	}

	id := c.nextID.Add(1)
	ch := make(chan serverFrame, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return serverFrame{}, ErrClosed
	}
	conn := c.conn
	c.pending[id] = ch
	c.mu.Unlock()

	if conn == nil {
		c.dropPending(id)
		return serverFrame{}, ErrClosed
	}

	_ = conn.SetWriteDeadline(time.Now().Add(c.opts.RequestTimeout))
	if err := conn.WriteJSON(requestFrame{ID: id, Type: op, Data: data}); err != nil {
		c.dropPending(id)
		return serverFrame{}, fmt.Errorf("relay: %s write: %w", op, err)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
	}

	select {
	case ack, ok := <-ch:
		if !ok {
			return serverFrame{}, ErrClosed
		}
		return ack, nil
	case <-ctx.Done():
		c.dropPending(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return serverFrame{}, ErrAckTimeout
		}
		return serverFrame{}, ctx.Err()
	case <-c.done:
		return serverFrame{}, ErrClosed
	}
}

func (c *Client) dropPending(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// failPendingLocked closes every in-flight ack channel. Callers hold c.mu.
func (c *Client) failPendingLocked() {
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var frame serverFrame
		if err := conn.ReadJSON(&frame); err != nil {
			c.handleDisconnect(conn)
			return
		}

		switch frame.Type {
		case typeAck:
			c.mu.Lock()
			ch, ok := c.pending[frame.ID]
			if ok {
				delete(c.pending, frame.ID)
			}
			c.mu.Unlock()
			if ok {
				ch <- frame
			}

		case typeEvent:
			var msg Message
			if err := json.Unmarshal(frame.Data, &msg); err != nil {
				continue
			}
			msg.Event = frame.Event

			c.mu.Lock()
			registered := make([]EventHandler, 0, len(c.handlers[frame.Event]))
			for _, h := range c.handlers[frame.Event] {
				registered = append(registered, h)
			}
			c.mu.Unlock()

			for _, h := range registered {
				h(msg)
			}
		}
	}
}

// handleDisconnect runs after a read failure: fail in-flight requests, then
// try to redial, re-auth and rejoin the last room.
func (c *Client) handleDisconnect(conn *websocket.Conn) {
	_ = conn.Close()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.failPendingLocked()
	room := c.currentRoom
	c.mu.Unlock()

	for attempt := 1; attempt <= c.opts.MaxReconnectAttempts; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(time.Duration(attempt) * c.opts.ReconnectBackoff):
		}

		fresh, connectionID, err := c.connect(context.Background())
		if err != nil {
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			fresh.Close()
			return
		}
		c.conn = fresh
		c.connectionID = connectionID
		c.mu.Unlock()

		go c.readLoop(fresh)

		if room != "" {
			ctx, cancel := context.WithTimeout(context.Background(), c.opts.RequestTimeout)
			_, _ = c.JoinRoom(ctx, room)
			cancel()
		}
		return
	}

	// Out of attempts: surface termination through Done.
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.done)
		c.failPendingLocked()
	}
	c.mu.Unlock()
}
