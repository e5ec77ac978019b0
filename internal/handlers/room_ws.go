// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/lunaveil/seance/internal/middleware"
	"github.com/lunaveil/seance/internal/models"
	"github.com/lunaveil/seance/internal/room"
	"github.com/sirupsen/logrus"
)

// RoomWSHandler upgrades the connection and joins the caller to the room in
// the URL path. The server is the only writer of room state; clients send
// action packets and receive broadcasts.
func RoomWSHandler(logger *logrus.Logger, rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/room/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "missing room_id", http.StatusBadRequest)
			return
		}
		roomUUID, err := uuid.Parse(pathParts[0])
		if err != nil {
			http.Error(w, "invalid room_id", http.StatusBadRequest)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"seance"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "seance" {
			c.Close(BadSubprotocolError, "client must speak the seance subprotocol")
			return
		}

		identity, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.Warnf("User authentication failed for room %s: %v", roomUUID, err)
			c.Close(websocket.StatusPolicyViolation, "Authentication failed.")
			return
		}

		rm, exists := rs.Store.GetRoom(roomUUID)
		if !exists {
			// Client treats this code as "room gone" and returns to the registry.
			c.Close(InvalidRoomIDError, "room does not exist")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		conn := &room.Connection{
			Participant: identity,
			Cancel:      cancel,
			OutChan:     make(chan map[string]interface{}, 10),
		}

		if err := rm.AddConnection(conn); err != nil {
			logger.Warnf("failed AddConnection: %v", err)
			if errors.Is(err, room.ErrRoomClosed) {
				c.Close(InvalidRoomIDError, "room is closed")
			} else {
				c.Close(websocket.StatusPolicyViolation, fmt.Sprintf("AddConnection error: %v", err))
			}
			cancel()
			return
		}

		middleware.LogWebSocketConnect(logger, remoteAddr, r.URL.Path)
		logger.Infof("User %v connected to room %v", identity.UID, roomUUID)

		go writePump(ctx, c, conn, logger)

		readPump(ctx, c, rm, conn, logger, roomUUID)

		middleware.LogWebSocketDisconnect(logger, remoteAddr, r.URL.Path, nil)
		logger.Infof("User %v readPump exited for room %v. Initiating cleanup.", identity.UID, roomUUID)
		// Connection-aware removal: a reconnect replaces this connection, and
		// the stale handler's cleanup must not evict the fresh one.
		rm.RemoveConnection(conn, false)
	}
}

// readPump handles incoming action packets from the room websocket. It blocks
// until the connection closes or the context is cancelled.
func readPump(ctx context.Context, c *websocket.Conn, rm *room.Room, conn *room.Connection, logger *logrus.Logger, roomID uuid.UUID) {
	logger.Infof("Room %s: Starting read pump for user %v", roomID, conn.Participant.UID)
	defer logger.Infof("Room %s: Exiting read pump for user %v", roomID, conn.Participant.UID)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("Room %s: WebSocket closed normally for user %v.", roomID, conn.Participant.UID)
			} else if strings.Contains(err.Error(), "context canceled") {
				// context cancelled by cleanup, nothing to log
			} else {
				logger.Warnf("Room %s: Read error for user %v: %v (CloseStatus: %d)", roomID, conn.Participant.UID, err, closeStatus)
			}
			return
		}

		if typ != websocket.MessageText {
			logger.Warnf("Room %s: Received non-text message type %d from user %v. Ignoring.", roomID, typ, conn.Participant.UID)
			continue
		}

		var packet map[string]interface{}
		if err := json.Unmarshal(msg, &packet); err != nil {
			logger.Warnf("Room %s: Invalid json from user %v: %v", roomID, conn.Participant.UID, err)
			conn.WriteError("Invalid JSON format")
			continue
		}

		actionType, _ := packet["type"].(string)
		action := models.RoomAction{ActionType: actionType, Payload: packet}

		if done := handleRoomMessage(action, rm, conn, logger); done {
			return
		}
	}
}

// handleRoomMessage dispatches one action packet. Room methods lock
// internally, so no lock is held here. Returns true when the pump should
// stop (the participant left).
func handleRoomMessage(action models.RoomAction, rm *room.Room, senderConn *room.Connection, logger *logrus.Logger) bool {
	uid := senderConn.Participant.UID

	switch action.ActionType {
	case "start_focus":
		if err := rm.StartFocus(uid); err != nil {
			senderConn.WriteError(err.Error())
		}
	case "submit_message":
		text, _ := action.Payload["message"].(string)
		if err := rm.SubmitFocusMessage(uid, text); err != nil {
			senderConn.WriteError(err.Error())
		}
	case "vote":
		msgIDStr, _ := action.Payload["message_id"].(string)
		msgID, err := uuid.Parse(msgIDStr)
		if err != nil {
			senderConn.WriteError("Invalid message_id format for vote")
			return false
		}
		if err := rm.CastVote(uid, msgID); err != nil {
			senderConn.WriteError(err.Error())
		}
	case "ready":
		if err := rm.MarkReady(uid); err != nil {
			senderConn.WriteError(err.Error())
		}
	case "chat":
		msg, _ := action.Payload["msg"].(string)
		if msg != "" {
			rm.BroadcastChat(uid, msg)
		}
	case "leave_room":
		rm.RemoveConnection(senderConn, false)
		return true
	case "banish":
		if err := rm.Banish(uid); err != nil {
			senderConn.WriteError(err.Error())
		}
	default:
		logger.Warnf("Room %s: Unknown action '%s' from user %v", rm.ID, action.ActionType, uid)
		senderConn.WriteError(fmt.Sprintf("Unknown action type: %s", action.ActionType))
	}
	return false
}

// writePump serializes outgoing broadcasts for one connection and keeps the
// socket alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *room.Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	defer func() {
		_, closeCancel := context.WithTimeout(context.Background(), 1*time.Second)
		_ = c.Close(websocket.StatusGoingAway, "Write pump stopping")
		closeCancel()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("Room: Failed to marshal outgoing msg for user %v: %v", conn.Participant.UID, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()

			if err != nil {
				logger.Warnf("Room: Failed to write to websocket for user %v: %v", conn.Participant.UID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("Room: Failed to send ping to user %v: %v. Assuming disconnect.", conn.Participant.UID, err)
				return
			}
		}
	}
}
