// cmd/chronicler/main_test.go
package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lunaveil/seance/internal/cache"
)

// TestSeanceFromEvent checks a session_complete event, as it arrives off the
// queue after a JSON round trip, projects onto the archive row.
func TestSeanceFromEvent(t *testing.T) {
	roomID := uuid.New()
	ts := time.Now().UnixMilli()

	raw, _ := json.Marshal(cache.SeanceEventRecord{
		RoomID:     roomID,
		EventIndex: 7,
		EventType:  "session_complete",
		Payload: map[string]interface{}{
			"room_name":    "The Parlor",
			"question":     "WILL IT RAIN",
			"answer":       "SIGNS POINT TO YES",
			"farewell":     false,
			"participants": 3,
		},
		Timestamp: ts,
	})
	var rec cache.SeanceEventRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("failed to unmarshal event: %v", err)
	}

	seance := seanceFromEvent(rec)
	if seance.RoomID != roomID {
		t.Fatalf("room id mismatch: %v", seance.RoomID)
	}
	if seance.RoomName != "The Parlor" || seance.Question != "WILL IT RAIN" {
		t.Fatalf("unexpected projection: %+v", seance)
	}
	if seance.Answer != "SIGNS POINT TO YES" {
		t.Fatalf("answer mismatch: %q", seance.Answer)
	}
	if seance.Participants != 3 {
		t.Fatalf("participants mismatch after JSON round trip: %d", seance.Participants)
	}
	if seance.Farewell {
		t.Fatalf("farewell should be false")
	}
	if seance.CompletedAt.UnixMilli() != ts {
		t.Fatalf("completed_at mismatch: %v", seance.CompletedAt)
	}
}
