package model

import "time"

// Cleaning statuses for a room. DND is tracked separately on the record and
// never changes as part of a cleaning transition.
const (
	StatusAvailable  = "available"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
)

// RoomRecord is the persisted cleaning status for one physical room.
// There is exactly one record per room number; all writes go through
// single-statement upserts keyed on RoomNumber.
type RoomRecord struct {
	RoomNumber int        `gorm:"primaryKey" json:"roomNumber"`
	Status     string     `gorm:"size:32;not null" json:"status"`
	StartTime  *time.Time `json:"startTime"`
	StartedBy  *string    `gorm:"size:128" json:"startedBy"`
	FinishTime *time.Time `json:"finishTime"`
	FinishedBy *string    `gorm:"size:128" json:"finishedBy"`
	DNDActive  bool       `gorm:"not null;default:false" json:"dndActive"`
	CreatedAt  time.Time  `json:"-"`
	UpdatedAt  time.Time  `json:"-"`
}

// NewRoomRecord returns an available record with no cleaning history.
func NewRoomRecord(room int) RoomRecord {
	return RoomRecord{RoomNumber: room, Status: StatusAvailable}
}
