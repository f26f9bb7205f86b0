package rooms

import (
	"sync"

	"chat-relay/internal/protocol"
)

// Member is one room membership: a connection identity, its display name,
// the bounded queue broadcasts are enqueued into, and a Kick callback the
// registry invokes when the member is evicted as unresponsive.
type Member struct {
	Identity string
	Username string
	Sink     chan<- *protocol.Envelope
	Kick     func()
}

type room struct {
	id           string
	passwordHash string

	mu      sync.Mutex
	closed  bool
	members map[string]Member
}

func newRoom(id, passwordHash string) *room {
	return &room{
		id:           id,
		passwordHash: passwordHash,
		members:      make(map[string]Member),
	}
}

// fanOutLocked delivers env to every current member. A member whose sink is
// full is evicted on the spot: removed from membership, kicked, and announced
// to the remaining members with a user_left event. Evictions cascade until
// every remaining member has kept up. Caller must hold rm.mu; holding the
// lock across the whole fan-out is what gives each room its total event
// order.
func (rm *room) fanOutLocked(env *protocol.Envelope) {
	evicted := rm.enqueueLocked(env)
	for len(evicted) > 0 {
		var next []Member
		for _, m := range evicted {
			if m.Kick != nil {
				m.Kick()
			}
			incEvicted()
			decMembers()
			next = append(next, rm.enqueueLocked(protocol.NewUserLeft(m.Username))...)
		}
		evicted = next
	}
}

// enqueueLocked offers env to every member without blocking and returns the
// members whose queues were full. Delivery must never wait on a slow
// consumer while the room lock is held.
func (rm *room) enqueueLocked(env *protocol.Envelope) []Member {
	var evicted []Member
	for id, m := range rm.members {
		select {
		case m.Sink <- env:
			incDelivered()
		default:
			delete(rm.members, id)
			evicted = append(evicted, m)
		}
	}
	return evicted
}
