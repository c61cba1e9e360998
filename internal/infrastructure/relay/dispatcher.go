package relay

import (
	"encoding/json"
	"errors"

	"castrelay/internal/domain"
	"castrelay/internal/infrastructure/logging"
	"castrelay/internal/infrastructure/metrics"
	"castrelay/internal/infrastructure/registry"
	"castrelay/internal/infrastructure/validate"
)

// LifecycleNotifier receives room lifecycle events for audit purposes.
// Implementations must not block; the dispatcher calls them inline.
type LifecycleNotifier interface {
	RoomCreated(roomID, createdBy string)
	MemberJoined(roomID, userID string, memberCount int)
	MemberLeft(roomID, userID string, memberCount int)
}

// Dispatcher executes authenticated room operations: create, join, emit.
// It reads both the registry and the hub but owns neither.
type Dispatcher struct {
	registry *registry.Registry
	hub      *Hub
	logger   logging.Logger
	notifier LifecycleNotifier // optional

	validRoomID validate.Validator
	validEvent  validate.Validator
}

func NewDispatcher(reg *registry.Registry, hub *Hub, logger logging.Logger, notifier LifecycleNotifier) *Dispatcher {
	return &Dispatcher{
		registry:    reg,
		hub:         hub,
		logger:      logger,
		notifier:    notifier,
		validRoomID: validate.RoomID(),
		validEvent:  validate.EventName(),
	}
}

// Handle runs one request for an authenticated session and returns its ack.
func (d *Dispatcher) Handle(s *Session, frame *RequestFrame) *AckFrame {
	switch frame.Type {
	case OpRoomCreate:
		return d.handleCreate(s, frame)
	case OpRoomJoin:
		return d.handleJoin(s, frame)
	case OpRoomEmit:
		return d.handleEmit(s, frame)
	default:
		return errAck(frame.ID, errors.New("unknown request type: "+frame.Type))
	}
}

func (d *Dispatcher) handleCreate(s *Session, frame *RequestFrame) *AckFrame {
	var req roomCreateRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return errAck(frame.ID, domain.ErrInvalidInput)
	}
	if err := d.validRoomID(req.RoomID); err != nil {
		return errAck(frame.ID, err)
	}

	userID := s.State.UserID()

	if _, err := d.registry.Create(req.RoomID, userID); err != nil {
		// "already exists" is distinct so callers can treat it as
		// idempotent-acceptable.
		return errAck(frame.ID, err)
	}
	metrics.RoomsCreated.WithLabelValues("socket").Inc()

	// The creator becomes a member automatically.
	if _, err := d.registry.Join(req.RoomID, s.ConnectionID(), userID); err != nil {
		return errAck(frame.ID, err)
	}
	d.moveSession(s, req.RoomID)

	d.logger.Info(logging.Registry, logging.Startup, "room created", map[logging.ExtraKey]any{
		logging.RoomID: req.RoomID,
		logging.UserID: userID,
	})

	if d.notifier != nil {
		d.notifier.RoomCreated(req.RoomID, userID)
		d.notifier.MemberJoined(req.RoomID, userID, d.registry.MemberCount(req.RoomID))
	}

	return okAck(frame.ID, roomCreateAck{RoomID: req.RoomID})
}

func (d *Dispatcher) handleJoin(s *Session, frame *RequestFrame) *AckFrame {
	var req roomJoinRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return errAck(frame.ID, domain.ErrInvalidInput)
	}
	if err := d.validRoomID(req.RoomID); err != nil {
		return errAck(frame.ID, err)
	}

	userID := s.State.UserID()

	// Membership is registered before session state changes, so a NotFound
	// failure leaves the session exactly as it was.
	role, err := d.registry.Join(req.RoomID, s.ConnectionID(), userID)
	if err != nil {
		return errAck(frame.ID, err)
	}
	d.moveSession(s, req.RoomID)

	if d.notifier != nil {
		d.notifier.MemberJoined(req.RoomID, userID, d.registry.MemberCount(req.RoomID))
	}

	return okAck(frame.ID, roomJoinAck{Role: string(role)})
}

// moveSession points the session at its new room, atomically leaving the
// previous one. A session holds membership in at most one room.
func (d *Dispatcher) moveSession(s *Session, roomID string) {
	left, err := s.State.EnterRoom(roomID)
	if err != nil || left == "" {
		return
	}

	d.registry.Leave(left, s.ConnectionID())
	if d.notifier != nil {
		d.notifier.MemberLeft(left, s.State.UserID(), d.registry.MemberCount(left))
	}
}

func (d *Dispatcher) handleEmit(s *Session, frame *RequestFrame) *AckFrame {
	var req roomEmitRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return errAck(frame.ID, domain.ErrInvalidInput)
	}
	if err := d.validRoomID(req.RoomID); err != nil {
		return errAck(frame.ID, err)
	}
	if err := d.validEvent(req.Event); err != nil {
		return errAck(frame.ID, err)
	}

	recipients, err := d.registry.Recipients(req.RoomID, s.ConnectionID())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotMember):
			metrics.EmitsTotal.WithLabelValues("not_member").Inc()
		case errors.Is(err, domain.ErrRoomNotFound):
			metrics.EmitsTotal.WithLabelValues("not_found").Inc()
		}
		return errAck(frame.ID, err)
	}

	push := EventFrame{
		Type:  TypeEvent,
		Event: req.Event,
		Data: Envelope{
			RoomID:  req.RoomID,
			Event:   req.Event,
			From:    s.State.UserID(),
			Payload: req.Payload,
		},
	}
	raw, err := json.Marshal(&push)
	if err != nil {
		return errAck(frame.ID, domain.ErrInvalidInput)
	}

	// Fire-and-forget multicast: each send is independent and non-blocking.
	// A recipient that disconnected since the snapshot is skipped silently.
	for _, connectionID := range recipients {
		if !d.hub.Deliver(connectionID, raw) {
			d.logger.Debug(logging.Dispatch, logging.FanOut, "recipient skipped", map[logging.ExtraKey]any{
				logging.RoomID:       req.RoomID,
				logging.ConnectionID: connectionID,
				logging.EventName:    req.Event,
			})
		}
	}

	metrics.EmitsTotal.WithLabelValues("ok").Inc()
	return okAck(frame.ID, nil)
}

// Cleanup purges a departing session from the registry and hub. It runs on
// every disconnect path and must be safe to call no matter how the
// connection ended.
func (d *Dispatcher) Cleanup(s *Session) {
	roomID := s.State.Disconnect()
	d.hub.unregister(s)
	d.registry.Leave(roomID, s.ConnectionID())

	if roomID != "" && d.notifier != nil {
		d.notifier.MemberLeft(roomID, s.State.UserID(), d.registry.MemberCount(roomID))
	}
}
