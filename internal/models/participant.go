package models

import "github.com/google/uuid"

// Participant is the identity triple attached to every presence in a room.
// It is carried in the session token so the room layer never hits the DB.
type Participant struct {
	UID        uuid.UUID `json:"uid"`
	Username   string    `json:"username"`
	AvatarSeed string    `json:"avatar_seed"`
}
