package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate runs the idempotent schema migrations for the messaging core.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Identity directory (owned externally; mirrored here so the server
		// can resolve display names without a network hop).
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			display_name VARCHAR(100) NOT NULL,
			avatar_url TEXT DEFAULT NULL
		);`,
		// Connection graph (read-only to this service).
		`CREATE TABLE IF NOT EXISTS connections (
			user_a INTEGER NOT NULL,
			user_b INTEGER NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			PRIMARY KEY (user_a, user_b),
			FOREIGN KEY (user_a) REFERENCES users(id),
			FOREIGN KEY (user_b) REFERENCES users(id)
		);`,
		// Conversations. is_archived is conversation-wide, not per-user.
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			last_message_at DATETIME DEFAULT NULL,
			is_archived BOOLEAN NOT NULL DEFAULT 0
		);`,
		// Conversation participants: per-user mute and last-read state.
		`CREATE TABLE IF NOT EXISTS conversation_participants (
			conversation_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			joined_at DATETIME NOT NULL,
			last_read_at DATETIME DEFAULT NULL,
			is_muted BOOLEAN NOT NULL DEFAULT 0,
			PRIMARY KEY (conversation_id, user_id),
			FOREIGN KEY (conversation_id) REFERENCES conversations(id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		);`,
		// Messages. reply_to_id must reference a message in the same
		// conversation; enforced at the service layer.
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			conversation_id INTEGER NOT NULL,
			sender_id INTEGER NOT NULL,
			content TEXT NOT NULL,
			message_type VARCHAR(10) NOT NULL DEFAULT 'text',
			file_url TEXT DEFAULT NULL,
			file_name TEXT DEFAULT NULL,
			file_size INTEGER DEFAULT NULL,
			reply_to_id INTEGER DEFAULT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			is_deleted BOOLEAN NOT NULL DEFAULT 0,
			deleted_at DATETIME DEFAULT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id),
			FOREIGN KEY (sender_id) REFERENCES users(id),
			FOREIGN KEY (reply_to_id) REFERENCES messages(id)
		);`,
		// Reactions: unique per (message, user, reaction) triple.
		`CREATE TABLE IF NOT EXISTS message_reactions (
			message_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			reaction VARCHAR(10) NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (message_id, user_id, reaction),
			FOREIGN KEY (message_id) REFERENCES messages(id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		);`,
		// Read receipts: unique per (message, user) pair.
		`CREATE TABLE IF NOT EXISTS message_reads (
			message_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			read_at DATETIME NOT NULL,
			PRIMARY KEY (message_id, user_id),
			FOREIGN KEY (message_id) REFERENCES messages(id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		);`,
		// Notification store (owned externally; local table backs the
		// narrow create-notification adapter).
		`CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY,
			recipient_id INTEGER NOT NULL,
			type VARCHAR(20) NOT NULL,
			sender_id INTEGER NOT NULL,
			related_id INTEGER NOT NULL,
			title VARCHAR(200) NOT NULL,
			body TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (recipient_id) REFERENCES users(id)
		);`,

		`CREATE INDEX IF NOT EXISTS idx_conversations_last_message ON conversations(last_message_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_conv_participants_user ON conversation_participants(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);`,
		`CREATE INDEX IF NOT EXISTS idx_reactions_message ON message_reactions(message_id);`,
		`CREATE INDEX IF NOT EXISTS idx_reads_user ON message_reads(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite unique or primary key
// constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite3.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE ||
			code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
