// internal/room/connection.go
package room

import (
	"log"

	"github.com/lunaveil/seance/internal/models"
)

// Connection is a single participant's live presence in a room.
type Connection struct {
	Participant models.Participant
	Cancel      func()
	OutChan     chan map[string]interface{}
}

// Write pushes a message onto the participant's OutChan non-blockingly.
// Logs if the channel is closed or full and the message is dropped.
func (conn *Connection) Write(msg map[string]interface{}) {
	select {
	case conn.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		log.Printf("Connection Write WARNING: OutChan for participant %s closed or full. Dropped message type '%s'.", conn.Participant.UID, msgType)
	}
}

// WriteError is a convenience to send an error notice.
func (conn *Connection) WriteError(msg string) {
	conn.Write(map[string]interface{}{
		"type":    "error",
		"message": msg,
	})
}
