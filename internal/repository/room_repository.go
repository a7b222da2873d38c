package repository

import (
	"context"
	"database/sql"
	"errors"

	"roomreserve/internal/model"
)

// RoomRepo manages the lookup table mapping a numeric sub-room
// identifier to its external meeting link.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// GetByNumber returns the room row for a sub-room number, or
// ErrRoomNotFound when the number has no configured link.
func (r *RoomRepo) GetByNumber(ctx context.Context, number int) (*model.Room, error) {
	const q = `SELECT room_number, room_link, room_label FROM rooms WHERE room_number = ?`
	var room model.Room
	err := r.db.QueryRowContext(ctx, q, number).Scan(&room.RoomNumber, &room.RoomLink, &room.RoomLabel)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// Upsert inserts or replaces the link for a sub-room number.
func (r *RoomRepo) Upsert(ctx context.Context, room *model.Room) error {
	const q = `INSERT INTO rooms (room_number, room_link, room_label)
               VALUES (?, ?, ?)
               ON DUPLICATE KEY UPDATE room_link = VALUES(room_link), room_label = VALUES(room_label)`
	_, err := r.db.ExecContext(ctx, q, room.RoomNumber, room.RoomLink, room.RoomLabel)
	return err
}

// List returns every configured sub-room ordered by number.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	const q = `SELECT room_number, room_link, room_label FROM rooms ORDER BY room_number ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.Room, 0)
	for rows.Next() {
		var room model.Room
		if err := rows.Scan(&room.RoomNumber, &room.RoomLink, &room.RoomLabel); err != nil {
			return nil, err
		}
		result = append(result, room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
