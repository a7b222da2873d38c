package database

import (
	"context"
	"database/sql"
)

// Schema statements are idempotent (CREATE TABLE IF NOT EXISTS) so the
// server can apply them on every boot. The unique key on
// (session_id, user_id) is load-bearing: it is what makes a reservation
// insert double as the ledger's idempotency check.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
        id               BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        title            VARCHAR(255)    NOT NULL,
        starts_at        DATETIME        NOT NULL,
        duration_minutes INT             NOT NULL,
        seat_cap         INT             NOT NULL,
        status           ENUM('scheduled','cancelled','completed') NOT NULL DEFAULT 'scheduled',
        price_cents      INT             NOT NULL DEFAULT 0,
        room_link        VARCHAR(512)    NULL,
        created_at       DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at       DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        KEY idx_sessions_starts_at (starts_at)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reservations (
        id                BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        session_id        BIGINT UNSIGNED NOT NULL,
        user_id           VARCHAR(191)    NOT NULL,
        user_email        VARCHAR(320)    NULL,
        reminder_24h_at   DATETIME        NULL,
        reminder_24h_sent BOOLEAN         NOT NULL DEFAULT FALSE,
        reminder_1h_at    DATETIME        NULL,
        reminder_1h_sent  BOOLEAN         NOT NULL DEFAULT FALSE,
        confirmation_sent BOOLEAN         NOT NULL DEFAULT FALSE,
        timezone          VARCHAR(64)     NULL,
        created_at        DATETIME(6)     NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
        PRIMARY KEY (id),
        UNIQUE KEY uq_reservations_session_user (session_id, user_id),
        KEY idx_reservations_reminder_24h (reminder_24h_sent, reminder_24h_at),
        KEY idx_reservations_reminder_1h (reminder_1h_sent, reminder_1h_at),
        CONSTRAINT fk_reservations_session FOREIGN KEY (session_id)
            REFERENCES sessions (id) ON DELETE CASCADE
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS rooms (
        room_number INT          NOT NULL,
        room_link   VARCHAR(512) NOT NULL,
        room_label  VARCHAR(255) NOT NULL DEFAULT '',
        PRIMARY KEY (room_number)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the tables the service needs if they do not
// already exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
