package models

import "github.com/google/uuid"

type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	// AvatarSeed feeds the client-side avatar generator. Stable per account.
	AvatarSeed string `json:"avatar_seed"`

	IsEphemeral bool `json:"is_ephemeral"`
}
