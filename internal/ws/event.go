package ws

// EventType identifies a broadcast frame on the live channel.
type EventType string

const (
	// EventRoomUpdate announces a committed cleaning transition (start/finish).
	EventRoomUpdate EventType = "room_update"
	// EventRoomReset announces a room returned to available with history cleared.
	EventRoomReset EventType = "room_reset"
	// EventDNDUpdate announces a committed do-not-disturb flag change.
	EventDNDUpdate EventType = "dnd_update"
	// EventLogsCleared instructs clients to discard their local view entirely.
	EventLogsCleared EventType = "logs_cleared"
)

// Event is the wire format for all live updates. Fields not relevant to the
// event type are omitted from the JSON payload.
type Event struct {
	Type           EventType `json:"type"`
	Room           int       `json:"room,omitempty"`
	Status         string    `json:"status,omitempty"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	Active         *bool     `json:"active,omitempty"`
}

// RoomUpdate builds a cleaning transition event.
func RoomUpdate(room int, status, previous string) Event {
	return Event{Type: EventRoomUpdate, Room: room, Status: status, PreviousStatus: previous}
}

// RoomReset builds a reset event.
func RoomReset(room int, status string) Event {
	return Event{Type: EventRoomReset, Room: room, Status: status}
}

// DNDUpdate builds a do-not-disturb event.
func DNDUpdate(room int, active bool) Event {
	return Event{Type: EventDNDUpdate, Room: room, Active: &active}
}

// LogsCleared builds the cache-reset broadcast.
func LogsCleared() Event {
	return Event{Type: EventLogsCleared}
}
