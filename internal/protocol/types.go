package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the wire protocol version carried in every frame header.
const Version = 1

// Request kinds (client to server).
const (
	KindCreate = "create"
	KindJoin   = "join"
	KindSend   = "send"
	KindLeave  = "leave"
	KindExit   = "exit"
)

// Response and event kinds (server to client).
const (
	KindCreated    = "created"
	KindJoined     = "joined"
	KindChat       = "chat"
	KindUserJoined = "user_joined"
	KindUserLeft   = "user_left"
	KindError      = "error"
)

// Error kinds carried in the body of an "error" envelope.
const (
	ErrKindRoomNotFound  = "room_not_found"
	ErrKindBadPassword   = "bad_password"
	ErrKindUsernameTaken = "username_taken"
	ErrKindAlreadyJoined = "already_joined"
	ErrKindNotJoined     = "not_joined"
	ErrKindNotAMember    = "not_a_member"
	ErrKindProtocol      = "protocol_error"
	ErrKindInternal      = "internal_error"
)

// Envelope is the tagged union exchanged on the wire. Body holds the
// kind-specific JSON object.
type Envelope struct {
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body,omitempty"`
}

type CreateRequest struct {
	Password string `json:"password,omitempty"`
}

type JoinRequest struct {
	RoomID   string `json:"room_id"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

type SendRequest struct {
	Text string `json:"text"`
}

type LeaveRequest struct{}

type ExitRequest struct{}

type CreatedResponse struct {
	RoomID string `json:"room_id"`
}

type JoinedResponse struct {
	RoomID string `json:"room_id"`
}

type ChatEvent struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

type UserJoinedEvent struct {
	Username string `json:"username"`
}

type UserLeftEvent struct {
	Username string `json:"username"`
}

type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

var knownKinds = map[string]bool{
	KindCreate:     true,
	KindJoin:       true,
	KindSend:       true,
	KindLeave:      true,
	KindExit:       true,
	KindCreated:    true,
	KindJoined:     true,
	KindChat:       true,
	KindUserJoined: true,
	KindUserLeft:   true,
	KindError:      true,
}

// Payload unmarshals the body into the struct matching the envelope's kind.
func (e *Envelope) Payload() (any, error) {
	var out any
	switch e.Kind {
	case KindCreate:
		out = new(CreateRequest)
	case KindJoin:
		out = new(JoinRequest)
	case KindSend:
		out = new(SendRequest)
	case KindLeave:
		out = new(LeaveRequest)
	case KindExit:
		out = new(ExitRequest)
	case KindCreated:
		out = new(CreatedResponse)
	case KindJoined:
		out = new(JoinedResponse)
	case KindChat:
		out = new(ChatEvent)
	case KindUserJoined:
		out = new(UserJoinedEvent)
	case KindUserLeft:
		out = new(UserLeftEvent)
	case KindError:
		out = new(ErrorBody)
	default:
		return nil, &ProtocolError{Reason: fmt.Sprintf("unknown envelope kind %q", e.Kind)}
	}
	if len(e.Body) > 0 {
		if err := json.Unmarshal(e.Body, out); err != nil {
			return nil, &ProtocolError{Reason: "invalid envelope body", Err: err}
		}
	}
	return out, nil
}

func mustEnvelope(kind string, body any) *Envelope {
	raw, err := json.Marshal(body)
	if err != nil {
		// bodies are plain string-bearing structs; marshaling them cannot fail
		panic(fmt.Sprintf("protocol: marshal %s body: %v", kind, err))
	}
	return &Envelope{Kind: kind, Body: raw}
}

func NewCreate(password string) *Envelope {
	return mustEnvelope(KindCreate, CreateRequest{Password: password})
}

func NewJoin(roomID, username, password string) *Envelope {
	return mustEnvelope(KindJoin, JoinRequest{RoomID: roomID, Username: username, Password: password})
}

func NewSend(text string) *Envelope {
	return mustEnvelope(KindSend, SendRequest{Text: text})
}

func NewLeave() *Envelope {
	return mustEnvelope(KindLeave, LeaveRequest{})
}

func NewExit() *Envelope {
	return mustEnvelope(KindExit, ExitRequest{})
}

func NewCreated(roomID string) *Envelope {
	return mustEnvelope(KindCreated, CreatedResponse{RoomID: roomID})
}

func NewJoined(roomID string) *Envelope {
	return mustEnvelope(KindJoined, JoinedResponse{RoomID: roomID})
}

func NewChat(username, text string) *Envelope {
	return mustEnvelope(KindChat, ChatEvent{Username: username, Text: text})
}

func NewUserJoined(username string) *Envelope {
	return mustEnvelope(KindUserJoined, UserJoinedEvent{Username: username})
}

func NewUserLeft(username string) *Envelope {
	return mustEnvelope(KindUserLeft, UserLeftEvent{Username: username})
}

func NewError(kind, message string) *Envelope {
	return mustEnvelope(KindError, ErrorBody{Kind: kind, Message: message})
}
