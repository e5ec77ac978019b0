// internal/handlers/api_server.go
package handlers

import (
	"sync"

	"github.com/lunaveil/seance/internal/room"
)

// RoomServer is a high-level struct that holds the in-memory room registry
// and the room configuration shared by every room it creates.
type RoomServer struct {
	Mutex sync.Mutex
	Store *room.Store
	Cfg   room.Config
}

func NewRoomServer() *RoomServer {
	return &RoomServer{
		Store: room.NewStore(),
		Cfg:   room.ConfigFromEnv(),
		Mutex: sync.Mutex{},
	}
}
