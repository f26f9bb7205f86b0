// Package rooms owns the live room set: membership, password checks at join
// time, and per-room broadcast fan-out. All mutations of a given room happen
// under that room's lock, so every member observes the room's events in the
// same order.
package rooms

import (
	"sync"

	"github.com/google/uuid"

	"chat-relay/internal/protocol"
)

// Verifier hashes room passwords at creation and checks them at join time.
type Verifier interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

type Registry struct {
	verifier Verifier

	mu    sync.RWMutex
	rooms map[string]*room
}

func NewRegistry(verifier Verifier) *Registry {
	return &Registry{
		verifier: verifier,
		rooms:    make(map[string]*room),
	}
}

// Create stores a new empty room and returns its id. An empty password
// creates an open room.
func (reg *Registry) Create(plaintext string) (string, error) {
	var hash string
	if plaintext != "" {
		var err error
		hash, err = reg.verifier.Hash(plaintext)
		if err != nil {
			return "", err
		}
	}

	for {
		id := uuid.NewString()
		reg.mu.Lock()
		if _, exists := reg.rooms[id]; exists {
			// v4 collision; roll again
			reg.mu.Unlock()
			continue
		}
		reg.rooms[id] = newRoom(id, hash)
		count := len(reg.rooms)
		reg.mu.Unlock()

		setOpenRooms(count)
		return id, nil
	}
}

// Join registers m in the room after checking the password and username.
// Existing members are told about the arrival; the joiner is not.
func (reg *Registry) Join(roomID, plaintext string, m Member) error {
	rm := reg.lookup(roomID)
	if rm == nil {
		return ErrRoomNotFound
	}

	// passwordHash is immutable after creation, so the slow bcrypt check
	// runs before the room lock is taken.
	if !reg.verifier.Verify(plaintext, rm.passwordHash) {
		return ErrBadPassword
	}

	rm.mu.Lock()
	if rm.closed {
		rm.mu.Unlock()
		return ErrRoomNotFound
	}
	for _, existing := range rm.members {
		if existing.Username == m.Username {
			rm.mu.Unlock()
			return ErrUsernameTaken
		}
	}
	rm.fanOutLocked(protocol.NewUserJoined(m.Username))
	rm.members[m.Identity] = m
	rm.mu.Unlock()

	incMembers()
	return nil
}

// Leave removes the identity from the room. Removing a member that is not
// present is a no-op and so is leaving a room that no longer exists, which
// makes disconnect cleanup safe to run unconditionally. The last leave
// deletes the room.
func (reg *Registry) Leave(roomID, identity string) {
	rm := reg.lookup(roomID)
	if rm == nil {
		return
	}

	rm.mu.Lock()
	m, ok := rm.members[identity]
	if !ok || rm.closed {
		rm.mu.Unlock()
		return
	}
	delete(rm.members, identity)
	decMembers()
	rm.fanOutLocked(protocol.NewUserLeft(m.Username))
	rm.mu.Unlock()

	reg.deleteIfEmpty(rm)
}

// Send broadcasts a chat message to every current member, the sender
// included, so the sender's client reflects server-confirmed ordering.
func (reg *Registry) Send(roomID, identity, text string) error {
	rm := reg.lookup(roomID)
	if rm == nil {
		return ErrRoomNotFound
	}

	rm.mu.Lock()
	if rm.closed {
		rm.mu.Unlock()
		return ErrRoomNotFound
	}
	m, ok := rm.members[identity]
	if !ok {
		rm.mu.Unlock()
		return ErrNotAMember
	}
	incBroadcast()
	rm.fanOutLocked(protocol.NewChat(m.Username, text))
	rm.mu.Unlock()

	// the sender itself may have been evicted during fan-out
	reg.deleteIfEmpty(rm)
	return nil
}

// Members reports the current member count of a room.
func (reg *Registry) Members(roomID string) (int, bool) {
	rm := reg.lookup(roomID)
	if rm == nil {
		return 0, false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed {
		return 0, false
	}
	return len(rm.members), true
}

func (reg *Registry) lookup(roomID string) *room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[roomID]
}

func (reg *Registry) deleteIfEmpty(rm *room) {
	rm.mu.Lock()
	empty := len(rm.members) == 0 && !rm.closed
	if empty {
		rm.closed = true
	}
	rm.mu.Unlock()

	if !empty {
		return
	}
	reg.mu.Lock()
	delete(reg.rooms, rm.id)
	count := len(reg.rooms)
	reg.mu.Unlock()
	setOpenRooms(count)
}
