package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"roomreserve/internal/model"
)

// mysqlDuplicateEntry is the server error number for a unique key
// violation (ER_DUP_ENTRY).
const mysqlDuplicateEntry = 1062

// ReservationRepo provides data access for reservations. The table
// carries a unique key on (session_id, user_id); inserting through this
// repo is therefore naturally idempotent per participant and session.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationCols = `id, session_id, user_id, user_email,
       reminder_24h_at, reminder_24h_sent, reminder_1h_at, reminder_1h_sent,
       confirmation_sent, timezone, created_at`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var res model.Reservation
	var email, tz sql.NullString
	var r24, r1 sql.NullTime
	err := row.Scan(&res.ID, &res.SessionID, &res.UserID, &email,
		&r24, &res.Reminder24hSent, &r1, &res.Reminder1hSent,
		&res.ConfirmationSent, &tz, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		v := email.String
		res.UserEmail = &v
	}
	if tz.Valid {
		v := tz.String
		res.Timezone = &v
	}
	if r24.Valid {
		t := r24.Time.UTC()
		res.Reminder24hAt = &t
	}
	if r1.Valid {
		t := r1.Time.UTC()
		res.Reminder1hAt = &t
	}
	res.CreatedAt = res.CreatedAt.UTC()
	return &res, nil
}

// InsertTx inserts a reservation row within the caller's transaction.
// A unique key violation is translated to ErrDuplicateReservation so
// the ledger can report an idempotent outcome instead of an error.
func (r *ReservationRepo) InsertTx(ctx context.Context, tx *sql.Tx, sessionID uint64, userID string) (uint64, error) {
	const q = `INSERT INTO reservations (session_id, user_id) VALUES (?, ?)`
	res, err := tx.ExecContext(ctx, q, sessionID, userID)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return 0, ErrDuplicateReservation
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ExistsTx reports whether a reservation already exists for the pair
// within the caller's transaction.
func (r *ReservationRepo) ExistsTx(ctx context.Context, tx *sql.Tx, sessionID uint64, userID string) (bool, error) {
	const q = `SELECT 1 FROM reservations WHERE session_id = ? AND user_id = ?`
	var one int
	err := tx.QueryRowContext(ctx, q, sessionID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountBySessionTx counts reservations for a session inside the
// caller's transaction. Used by the ledger's capacity check while the
// session row is locked.
func (r *ReservationRepo) CountBySessionTx(ctx context.Context, tx *sql.Tx, sessionID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM reservations WHERE session_id = ?`
	var n int
	if err := tx.QueryRowContext(ctx, q, sessionID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountBySession counts reservations for a session outside any
// transaction. Feeds the occupancy cache.
func (r *ReservationRepo) CountBySession(ctx context.Context, sessionID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM reservations WHERE session_id = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, sessionID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// GetBySessionAndUser fetches the reservation a participant holds for a
// session. Returns ErrReservationNotFound when none exists.
func (r *ReservationRepo) GetBySessionAndUser(ctx context.Context, sessionID uint64, userID string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE session_id = ? AND user_id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, sessionID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return res, nil
}

// GetByID fetches a reservation by primary key.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return res, nil
}

// ListBySession returns the full roster for a session ordered by
// creation instant (ties broken by id). The store-recorded creation
// order is the only valid ordering truth for room assignment.
func (r *ReservationRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
               WHERE session_id = ?
               ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roster := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		roster = append(roster, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roster, nil
}

// UpdateEnrichment persists the post-booking enrichment performed by
// payment reconciliation: resolved email, display timezone and the
// reminder milestone instants. Nil pointers clear nothing; each column
// is only written when a value is present.
func (r *ReservationRepo) UpdateEnrichment(ctx context.Context, id uint64, email, timezone *string, reminder24h, reminder1h *time.Time) error {
	const q = `UPDATE reservations
               SET user_email      = COALESCE(?, user_email),
                   timezone        = COALESCE(?, timezone),
                   reminder_24h_at = COALESCE(?, reminder_24h_at),
                   reminder_1h_at  = COALESCE(?, reminder_1h_at)
               WHERE id = ?`
	var r24, r1 any
	if reminder24h != nil {
		r24 = reminder24h.UTC()
	}
	if reminder1h != nil {
		r1 = reminder1h.UTC()
	}
	_, err := r.db.ExecContext(ctx, q, email, timezone, r24, r1, id)
	return err
}

// MarkConfirmationSent flips the confirmation flag. It reports whether
// this call performed the flip, so concurrent reconciliations of the
// same event cannot both believe they own the confirmation email.
func (r *ReservationRepo) MarkConfirmationSent(ctx context.Context, id uint64) (bool, error) {
	const q = `UPDATE reservations SET confirmation_sent = TRUE WHERE id = ? AND confirmation_sent = FALSE`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DueReminders returns reservations whose named milestone instant has
// passed and whose sent flag is still false. milestone must be "24h" or
// "1h".
func (r *ReservationRepo) DueReminders(ctx context.Context, milestone string, now time.Time, limit int) ([]model.Reservation, error) {
	var q string
	switch milestone {
	case "24h":
		q = `SELECT ` + reservationCols + ` FROM reservations
             WHERE reminder_24h_sent = FALSE AND reminder_24h_at IS NOT NULL AND reminder_24h_at <= ?
             ORDER BY reminder_24h_at ASC LIMIT ?`
	case "1h":
		q = `SELECT ` + reservationCols + ` FROM reservations
             WHERE reminder_1h_sent = FALSE AND reminder_1h_at IS NOT NULL AND reminder_1h_at <= ?
             ORDER BY reminder_1h_at ASC LIMIT ?`
	default:
		return nil, errors.New("unknown reminder milestone: " + milestone)
	}
	rows, err := r.db.QueryContext(ctx, q, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	due := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return due, nil
}

// MarkReminderSent flips one milestone's sent flag. Like
// MarkConfirmationSent it reports whether this call did the flip, which
// lets concurrent sweeps detect that another run already claimed the
// reservation.
func (r *ReservationRepo) MarkReminderSent(ctx context.Context, id uint64, milestone string) (bool, error) {
	var q string
	switch milestone {
	case "24h":
		q = `UPDATE reservations SET reminder_24h_sent = TRUE WHERE id = ? AND reminder_24h_sent = FALSE`
	case "1h":
		q = `UPDATE reservations SET reminder_1h_sent = TRUE WHERE id = ? AND reminder_1h_sent = FALSE`
	default:
		return false, errors.New("unknown reminder milestone: " + milestone)
	}
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes a reservation. Only the admin flow calls this.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	const q = `DELETE FROM reservations WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}
