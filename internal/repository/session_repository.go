package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"roomreserve/internal/model"
)

// SessionRepo manages persistence for sessions. All timestamps are
// stored as UTC DATETIME columns; the DSN's parseTime+loc=UTC settings
// make them scan directly into time.Time.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo constructs a SessionRepo with the given DB handle.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// DB exposes the underlying sql.DB. It allows callers to begin
// transactions spanning multiple repositories.
func (r *SessionRepo) DB() *sql.DB { return r.db }

const sessionCols = `id, title, starts_at, duration_minutes, seat_cap, status, price_cents, room_link, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*model.Session, error) {
	var s model.Session
	var roomLink sql.NullString
	err := row.Scan(&s.ID, &s.Title, &s.StartsAt, &s.DurationMinutes, &s.SeatCap,
		&s.Status, &s.PriceCents, &roomLink, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if roomLink.Valid {
		link := roomLink.String
		s.RoomLink = &link
	}
	s.StartsAt = s.StartsAt.UTC()
	return &s, nil
}

// Create inserts a new session and populates the generated ID and
// DB-default fields on the given struct.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	const q = `INSERT INTO sessions (title, starts_at, duration_minutes, seat_cap, status, price_cents, room_link)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.Title, s.StartsAt.UTC(), s.DurationMinutes,
		s.SeatCap, s.Status, s.PriceCents, s.RoomLink)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	fresh, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *fresh
	return nil
}

// GetByID retrieves a session by its ID. It returns ErrSessionNotFound
// when there is no matching row.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions WHERE id = ?`
	s, err := scanSession(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// GetForUpdateTx loads a session within a transaction while taking a
// row lock on it. The ledger relies on this lock as its single
// serialization point for concurrent reservation attempts against the
// same session.
func (r *SessionRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions WHERE id = ? FOR UPDATE`
	s, err := scanSession(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListUpcoming returns scheduled sessions that have not yet ended,
// ordered by start time ascending. When none exist it returns an empty
// slice and nil error.
func (r *SessionRepo) ListUpcoming(ctx context.Context, now time.Time) ([]model.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions
               WHERE status = 'scheduled'
                 AND DATE_ADD(starts_at, INTERVAL duration_minutes MINUTE) >= ?
               ORDER BY starts_at ASC`
	rows, err := r.db.QueryContext(ctx, q, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListAll returns every session regardless of status, newest first.
// Used by the admin surface.
func (r *SessionRepo) ListAll(ctx context.Context) ([]model.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions ORDER BY starts_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update rewrites every mutable column of the session. It returns
// ErrSessionNotFound when no row matched.
func (r *SessionRepo) Update(ctx context.Context, s *model.Session) error {
	const q = `UPDATE sessions
               SET title = ?, starts_at = ?, duration_minutes = ?, seat_cap = ?,
                   status = ?, price_cents = ?, room_link = ?
               WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, s.Title, s.StartsAt.UTC(), s.DurationMinutes,
		s.SeatCap, s.Status, s.PriceCents, s.RoomLink, s.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// The UPDATE may have matched a row whose values were already
		// identical; distinguish that from a missing row.
		if _, err := r.GetByID(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a session. Reservations referencing it are removed by
// the FK cascade. Returns ErrSessionNotFound when no row matched.
func (r *SessionRepo) Delete(ctx context.Context, id uint64) error {
	const q = `DELETE FROM sessions WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
