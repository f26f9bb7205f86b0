// Package session runs the per-connection protocol state machine. Each
// session drives two goroutines: a read loop decoding client requests into
// registry calls, and a write loop draining the bounded outbound queue that
// both direct replies and room broadcasts are enqueued into.
package session

import (
	"errors"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"chat-relay/internal/protocol"
	"chat-relay/internal/rooms"
)

// Conn is one client connection with transport details stripped away, so
// the TCP codec and the websocket gateway share a single session engine.
type Conn interface {
	ReadEnvelope() (*protocol.Envelope, error)
	WriteEnvelope(*protocol.Envelope) error
	Close() error
	RemoteAddr() string
}

// outboundBuffer bounds the per-connection queue of envelopes waiting to be
// written. A member that falls this far behind a room's traffic is evicted
// by the registry rather than allowed to stall the broadcast path.
const outboundBuffer = 32

type state int

const (
	stateUnjoined state = iota
	stateJoined
	stateClosed
)

type Session struct {
	identity string
	conn     Conn
	registry *rooms.Registry

	outbound  chan *protocol.Envelope
	done      chan struct{}
	writeDone chan struct{}
	once      sync.Once

	// owned by the read loop
	state    state
	roomID   string
	username string
}

func New(conn Conn, registry *rooms.Registry) *Session {
	return &Session{
		identity:  uuid.NewString(),
		conn:      conn,
		registry:  registry,
		outbound:  make(chan *protocol.Envelope, outboundBuffer),
		done:      make(chan struct{}),
		writeDone: make(chan struct{}),
	}
}

// Run services the connection until it closes. It blocks; the server loop
// calls it from the connection's own goroutine.
func (s *Session) Run() {
	go s.writeLoop()
	s.readLoop()
}

func (s *Session) readLoop() {
	defer s.teardown()

	for {
		env, err := s.conn.ReadEnvelope()
		if err != nil {
			var perr *protocol.ProtocolError
			switch {
			case errors.As(err, &perr):
				log.Printf("session %s: closing %s: %v", s.identity, s.conn.RemoteAddr(), perr)
				s.reply(protocol.NewError(protocol.ErrKindProtocol, perr.Reason))
			case errors.Is(err, io.EOF):
				// client hung up
			default:
				log.Printf("session %s: read from %s: %v", s.identity, s.conn.RemoteAddr(), err)
			}
			return
		}
		if !s.handle(env) {
			return
		}
	}
}

// handle applies one decoded request to the state machine. It returns false
// when the session should terminate.
func (s *Session) handle(env *protocol.Envelope) bool {
	payload, err := env.Payload()
	if err != nil {
		log.Printf("session %s: closing %s: %v", s.identity, s.conn.RemoteAddr(), err)
		s.reply(protocol.NewError(protocol.ErrKindProtocol, "malformed "+env.Kind+" body"))
		return false
	}

	switch req := payload.(type) {
	case *protocol.CreateRequest:
		id, err := s.registry.Create(req.Password)
		if err != nil {
			log.Printf("session %s: create room: %v", s.identity, err)
			s.reply(protocol.NewError(protocol.ErrKindInternal, "could not create room"))
			return true
		}
		s.reply(protocol.NewCreated(id))

	case *protocol.JoinRequest:
		if s.state == stateJoined {
			s.reply(protocol.NewError(protocol.ErrKindAlreadyJoined, "leave the current room first"))
			return true
		}
		member := rooms.Member{
			Identity: s.identity,
			Username: req.Username,
			Sink:     s.outbound,
			Kick:     s.close,
		}
		if err := s.registry.Join(req.RoomID, req.Password, member); err != nil {
			s.reply(errorEnvelope(err))
			return true
		}
		s.state = stateJoined
		s.roomID = req.RoomID
		s.username = req.Username
		s.reply(protocol.NewJoined(req.RoomID))

	case *protocol.SendRequest:
		if s.state != stateJoined {
			s.reply(protocol.NewError(protocol.ErrKindNotJoined, "join a room first"))
			return true
		}
		if err := s.registry.Send(s.roomID, s.identity, req.Text); err != nil {
			s.reply(errorEnvelope(err))
		}

	case *protocol.LeaveRequest:
		if s.state != stateJoined {
			s.reply(protocol.NewError(protocol.ErrKindNotJoined, "not in a room"))
			return true
		}
		s.registry.Leave(s.roomID, s.identity)
		s.state = stateUnjoined
		s.roomID = ""
		s.username = ""

	case *protocol.ExitRequest:
		return false

	default:
		// a server-to-client kind arriving from the client is a violation
		s.reply(protocol.NewError(protocol.ErrKindProtocol, "unexpected "+env.Kind+" from client"))
		return false
	}
	return true
}

// writeLoop drains the outbound queue. It is the goroutine that closes the
// transport: on shutdown it flushes what is already queued and its deferred
// Close unblocks a read loop still parked in a blocking read.
func (s *Session) writeLoop() {
	defer close(s.writeDone)
	defer s.conn.Close()

	for {
		select {
		case <-s.done:
			s.flush()
			return
		case env := <-s.outbound:
			if err := s.conn.WriteEnvelope(env); err != nil {
				s.close()
				return
			}
		}
	}
}

// flush makes a best effort to write envelopes already queued at shutdown,
// so an error reply for a fatal frame reaches the client when the
// connection is still writable.
func (s *Session) flush() {
	for {
		select {
		case env := <-s.outbound:
			if err := s.conn.WriteEnvelope(env); err != nil {
				return
			}
		default:
			return
		}
	}
}

// reply enqueues an envelope for this client. It applies the connection's
// own backpressure: a full queue blocks this session's read loop, never a
// room broadcast.
func (s *Session) reply(env *protocol.Envelope) {
	select {
	case s.outbound <- env:
	case <-s.done:
	}
}

// close signals both loops to stop. Safe to call from any goroutine; the
// registry uses it as the eviction kick.
func (s *Session) close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Session) teardown() {
	if s.state == stateJoined {
		s.registry.Leave(s.roomID, s.identity)
	}
	s.state = stateClosed
	s.close()
	// the write loop owns the transport; wait for its flush and close
	<-s.writeDone
}

func errorEnvelope(err error) *protocol.Envelope {
	switch {
	case errors.Is(err, rooms.ErrRoomNotFound):
		return protocol.NewError(protocol.ErrKindRoomNotFound, err.Error())
	case errors.Is(err, rooms.ErrBadPassword):
		return protocol.NewError(protocol.ErrKindBadPassword, err.Error())
	case errors.Is(err, rooms.ErrUsernameTaken):
		return protocol.NewError(protocol.ErrKindUsernameTaken, err.Error())
	case errors.Is(err, rooms.ErrNotAMember):
		return protocol.NewError(protocol.ErrKindNotAMember, err.Error())
	default:
		return protocol.NewError(protocol.ErrKindInternal, err.Error())
	}
}
