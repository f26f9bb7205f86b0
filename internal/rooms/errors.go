package rooms

import "errors"

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrBadPassword   = errors.New("wrong room password")
	ErrUsernameTaken = errors.New("username already taken in this room")
	ErrNotAMember    = errors.New("not a member of this room")
)
