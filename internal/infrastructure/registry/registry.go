// Package registry owns every Room record in the process. All mutation goes
// through one lock so concurrent room:create calls for the same id resolve to
// exactly one winner, and membership bookkeeping never races with fan-out
// snapshots.
package registry

import (
	"sort"
	"sync"
	"time"

	"castrelay/internal/domain"
	"castrelay/internal/infrastructure/metrics"
)

// DeleteHook observes rooms removed by eviction, for audit publishing. Hooks
// run after the registry lock is released, so they may block or call back
// into the registry.
type DeleteHook func(roomID, reason string)

type eviction struct {
	roomID string
	reason string
}

type Registry struct {
	mu         sync.RWMutex
	rooms      map[string]*domain.Room
	lastAccess map[string]time.Time

	capacity   uint
	idleExpiry time.Duration
	onDelete   DeleteHook
}

type Options struct {
	Capacity       uint
	IdleRoomExpiry time.Duration
	OnDelete       DeleteHook
}

func New(opts Options) *Registry {
	if opts.Capacity == 0 {
		opts.Capacity = 1000
	}
	if opts.IdleRoomExpiry == 0 {
		opts.IdleRoomExpiry = time.Hour
	}

	return &Registry{
		rooms:      make(map[string]*domain.Room),
		lastAccess: make(map[string]time.Time),
		capacity:   opts.Capacity,
		idleExpiry: opts.IdleRoomExpiry,
		onDelete:   opts.OnDelete,
	}
}

func (r *Registry) touch(roomID string) {
	r.lastAccess[roomID] = time.Now()
}

// evictIdle removes memberless rooms that haven't been touched within the
// idle window and returns what it removed. Rooms with live members are never
// evicted. Caller holds the write lock.
func (r *Registry) evictIdle() []eviction {
	var evicted []eviction
	cutoff := time.Now().Add(-r.idleExpiry)
	for id, last := range r.lastAccess {
		if !last.Before(cutoff) {
			continue
		}
		if room, exists := r.rooms[id]; exists && room.MemberCount() > 0 {
			continue
		}
		r.deleteLocked(id)
		evicted = append(evicted, eviction{id, "idle_expired"})
	}
	return evicted
}

// enforceCapacity drops the oldest memberless rooms until under capacity and
// returns what it dropped. Caller holds the write lock.
func (r *Registry) enforceCapacity() []eviction {
	if uint(len(r.rooms)) < r.capacity {
		return nil
	}

	type entry struct {
		id   string
		time time.Time
	}
	var idle []entry
	for id, t := range r.lastAccess {
		if room, exists := r.rooms[id]; exists && room.MemberCount() == 0 {
			idle = append(idle, entry{id, t})
		}
	}
	sort.Slice(idle, func(i, j int) bool { return idle[i].time.Before(idle[j].time) })

	var evicted []eviction
	for _, e := range idle {
		if uint(len(r.rooms)) < r.capacity {
			break
		}
		r.deleteLocked(e.id)
		evicted = append(evicted, eviction{e.id, "capacity_evicted"})
	}
	return evicted
}

func (r *Registry) deleteLocked(roomID string) {
	delete(r.rooms, roomID)
	delete(r.lastAccess, roomID)
	metrics.RoomsActive.Dec()
}

// notifyDeleted fires the delete hook for each eviction. Never called with
// the lock held: the wired hook publishes to a broker, and blocking I/O under
// the registry lock would stall every other room operation.
func (r *Registry) notifyDeleted(evicted []eviction) {
	if r.onDelete == nil {
		return
	}
	for _, e := range evicted {
		r.onDelete(e.roomID, e.reason)
	}
}

// Create inserts a room with empty membership. A duplicate id fails with
// ErrRoomAlreadyExists, leaving the existing room untouched.
func (r *Registry) Create(roomID, createdBy string) (domain.RoomSummary, error) {
	if roomID == "" || createdBy == "" {
		return domain.RoomSummary{}, domain.ErrInvalidInput
	}

	r.mu.Lock()

	evicted := r.evictIdle()

	if _, exists := r.rooms[roomID]; exists {
		r.mu.Unlock()
		r.notifyDeleted(evicted)
		return domain.RoomSummary{}, domain.ErrRoomAlreadyExists
	}

	evicted = append(evicted, r.enforceCapacity()...)
	if uint(len(r.rooms)) >= r.capacity {
		r.mu.Unlock()
		r.notifyDeleted(evicted)
		return domain.RoomSummary{}, domain.ErrRegistryFull
	}

	room := domain.NewRoom(roomID, createdBy)
	r.rooms[roomID] = room
	r.touch(roomID)
	metrics.RoomsActive.Inc()
	summary := room.Summary()

	r.mu.Unlock()
	r.notifyDeleted(evicted)

	return summary, nil
}

// Get returns a summary of one room.
func (r *Registry) Get(roomID string) (domain.RoomSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return domain.RoomSummary{}, domain.ErrRoomNotFound
	}
	return room.Summary(), nil
}

// List returns summaries of all live rooms, newest first.
func (r *Registry) List() []domain.RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]domain.RoomSummary, 0, len(r.rooms))
	for _, room := range r.rooms {
		summaries = append(summaries, room.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt > summaries[j].CreatedAt
	})
	return summaries
}

// Join adds a connection to the room's member set and reports the joiner's
// role. Idempotent for an existing member. Fails with ErrRoomNotFound if the
// room does not exist; session state is left for the caller to update.
func (r *Registry) Join(roomID, connectionID, userID string) (domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return "", domain.ErrRoomNotFound
	}

	room.AddMember(connectionID, userID)
	r.touch(roomID)

	return room.RoleFor(userID), nil
}

// Leave removes a connection from a room's member set. It is a no-op when
// the room or the membership is already gone; disconnect cleanup calls this
// unconditionally and must never fail.
func (r *Registry) Leave(roomID, connectionID string) {
	if roomID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return
	}
	room.RemoveMember(connectionID)
	r.touch(roomID)
}

// Recipients returns the member connections of a room excluding the sender.
// The sender must currently be a member; otherwise ErrNotMember (or
// ErrRoomNotFound when the room is missing entirely).
func (r *Registry) Recipients(roomID, senderConnectionID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}
	if !room.HasMember(senderConnectionID) {
		return nil, domain.ErrNotMember
	}

	members := room.MemberConnections()
	recipients := members[:0]
	for _, id := range members {
		if id != senderConnectionID {
			recipients = append(recipients, id)
		}
	}
	return recipients, nil
}

// MemberCount reports current membership; 0 for unknown rooms.
func (r *Registry) MemberCount(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return 0
	}
	return room.MemberCount()
}
