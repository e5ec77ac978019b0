// internal/room/errors.go
package room

import "errors"

// Validation-level errors are surfaced to the acting participant as a
// transient notice; none of them are fatal to the room.
var (
	ErrEmptyName        = errors.New("room name must not be empty")
	ErrRoomClosed       = errors.New("room no longer exists")
	ErrNotParticipant   = errors.New("not a participant of this room")
	ErrNotHost          = errors.New("only the host may do that")
	ErrWrongPhase       = errors.New("action not allowed in the current phase")
	ErrAlreadySubmitted = errors.New("a question was already submitted this cycle")
	ErrAlreadyVoted     = errors.New("a vote was already cast this cycle")
	ErrUnknownMessage   = errors.New("no such focus message")
)
