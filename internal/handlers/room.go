// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/lunaveil/seance/internal/database"
	"github.com/lunaveil/seance/internal/room"
)

// CreateRoomHandler creates an in-memory room. No DB writes; the OnEmpty
// callback removes it from the registry once everyone has left.
func CreateRoomHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := EnsureEphemeralUser(w, r)
		if err != nil {
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}

		var req struct {
			Name     string `json:"name"`
			IsPublic bool   `json:"is_public"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
			http.Error(w, "bad room request payload", http.StatusBadRequest)
			return
		}

		rm, err := room.NewRoom(req.Name, req.IsPublic, identity, rs.Cfg)
		if err != nil {
			if errors.Is(err, room.ErrEmptyName) {
				http.Error(w, "room name must not be empty", http.StatusBadRequest)
				return
			}
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		// OnEmpty => remove from the registry
		rm.OnEmpty = func(roomID uuid.UUID) {
			rs.Store.DeleteRoom(roomID)
		}
		rs.Store.AddRoom(rm)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         rm.ID.String(),
			"name":       rm.Name,
			"is_public":  rm.IsPublic,
			"host_uid":   rm.HostUID.String(),
			"created_at": rm.CreatedAt,
		})
	}
}

// ListRoomsHandler returns public rooms plus the caller's own private rooms,
// filtered to the retention window.
func ListRoomsHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := EnsureEphemeralUser(w, r)
		if err != nil {
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}

		summaries := rs.Store.ListVisible(identity.UID, rs.Cfg.RetentionWindow)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summaries)
	}
}

// SeanceHistoryHandler returns archived cycles for a room from the chronicle.
// Requires the database; a build running without one serves 503.
func SeanceHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := EnsureEphemeralUser(w, r); err != nil {
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}
		if database.DB == nil {
			http.Error(w, "chronicle unavailable", http.StatusServiceUnavailable)
			return
		}

		roomID, err := uuid.Parse(r.URL.Query().Get("room_id"))
		if err != nil {
			http.Error(w, "invalid room_id", http.StatusBadRequest)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		recs, err := database.GetSeancesByRoom(r.Context(), roomID, limit)
		if err != nil {
			http.Error(w, "failed to fetch history", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(recs)
	}
}
