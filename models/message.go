package models

import "time"

// Action kinds a sender can pick. The message body is always one of the
// fixed templates keyed by these.
const (
	ActionCollect    = "collect"
	ActionNoCollect  = "no-collect"
	ActionRecollect  = "recollect"
	ActionStaffReply = "staff-reply"
)

// RoomMessage is the single live message slot of a room. The room id is
// the row's identity: each send overwrites the previous state, so a room
// holds zero or one current message, never a log.
type RoomMessage struct {
	RoomID      string    `json:"room_id" gorm:"primaryKey"`
	SenderID    string    `json:"sender_id"`
	IsCustomer  bool      `json:"isCustomer"`
	Text        string    `json:"text"`
	Action      string    `json:"selectedAction" gorm:"column:selected_action"`
	Time        string    `json:"time"` // HH:mm display string of the send
	IsStaffRead bool      `json:"is_staff_read"`
	ReadAt      string    `json:"read_at"` // HH:mm display string, empty until staff reply
	PickupAt    string    `json:"pickup_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
