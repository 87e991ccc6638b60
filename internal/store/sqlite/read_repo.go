package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"chatcore/internal/domain"
)

type ReadRepo struct {
	db *sql.DB
}

func NewReadRepo(db *sql.DB) *ReadRepo {
	return &ReadRepo{db: db}
}

var _ domain.ReadRepository = (*ReadRepo)(nil)

func (r *ReadRepo) MarkRead(ctx context.Context, messageID, userID int64, at time.Time) (bool, error) {
	// INSERT OR IGNORE makes a repeat mark-as-read a silent no-op.
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO message_reads (message_id, user_id, read_at)
		VALUES (?, ?, ?)
	`, messageID, userID, at)
	if err != nil {
		return false, fmt.Errorf("insert read receipt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *ReadRepo) MarkAllRead(ctx context.Context, conversationID, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO message_reads (message_id, user_id, read_at)
		SELECT m.id, ?, ?
		FROM messages m
		WHERE m.conversation_id = ? AND m.sender_id <> ?
	`, userID, now, conversationID, userID); err != nil {
		return fmt.Errorf("insert read receipts: %w", err)
	}

	// last_read_at catches up to the latest message in the conversation,
	// including the caller's own, not just the ones marked above.
	if _, err := tx.ExecContext(ctx, `
		UPDATE conversation_participants
		SET last_read_at = (
			SELECT MAX(created_at) FROM messages WHERE conversation_id = ?
		)
		WHERE conversation_id = ? AND user_id = ?
		AND EXISTS (SELECT 1 FROM messages WHERE conversation_id = ?)
	`, conversationID, conversationID, userID, conversationID); err != nil {
		return fmt.Errorf("advance last read: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *ReadRepo) ReadByUser(ctx context.Context, messageIDs []int64, userID int64) (map[int64]bool, error) {
	res := make(map[int64]bool, len(messageIDs))
	if len(messageIDs) == 0 {
		return res, nil
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(messageIDs)), ",")
	args := make([]any, 0, len(messageIDs)+1)
	args = append(args, userID)
	for _, id := range messageIDs {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id
		FROM message_reads
		WHERE user_id = ? AND message_id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list read receipts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan read receipt: %w", err)
		}
		res[id] = true
	}
	return res, rows.Err()
}
