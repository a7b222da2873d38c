package model

// Room maps a numeric sub-room identifier to its external meeting link.
// The resolver produces a room number; this table turns it into a URL
// a participant can actually be redirected to.
type Room struct {
	RoomNumber int    // rooms.room_number
	RoomLink   string // rooms.room_link
	RoomLabel  string // rooms.room_label
}
