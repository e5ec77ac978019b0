package models

// RoomAction captures a participant's in-room command as received over the wire.
type RoomAction struct {
	ActionType string                 `json:"action_type"`
	Payload    map[string]interface{} `json:"payload"`
}
