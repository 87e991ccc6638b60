package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatcore/internal/domain"
)

type ParticipantRepo struct {
	db *sql.DB
}

func NewParticipantRepo(db *sql.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

var _ domain.ParticipantRepository = (*ParticipantRepo)(nil)

func (r *ParticipantRepo) ListForConversation(ctx context.Context, conversationID int64) ([]*domain.Participant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT conversation_id, user_id, joined_at, last_read_at, is_muted
		FROM conversation_participants
		WHERE conversation_id = ?
		ORDER BY joined_at ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var res []*domain.Participant
	for rows.Next() {
		p := &domain.Participant{}
		if err := rows.Scan(
			&p.ConversationID,
			&p.UserID,
			&p.JoinedAt,
			&p.LastReadAt,
			&p.IsMuted,
		); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r *ParticipantRepo) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1
		FROM conversation_participants
		WHERE conversation_id = ? AND user_id = ?
	`, conversationID, userID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is participant: %w", err)
	}
	return true, nil
}

func (r *ParticipantRepo) SetMuted(ctx context.Context, conversationID, userID int64, muted bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE conversation_participants
		SET is_muted = ?
		WHERE conversation_id = ? AND user_id = ?
	`, muted, conversationID, userID)
	if err != nil {
		return fmt.Errorf("set muted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ParticipantRepo) Delete(ctx context.Context, conversationID, userID int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM conversation_participants
		WHERE conversation_id = ? AND user_id = ?
	`, conversationID, userID)
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ParticipantRepo) AdvanceLastRead(ctx context.Context, conversationID, userID int64, t time.Time) error {
	// Moves forward only; a stale timestamp never rewinds last_read_at.
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversation_participants
		SET last_read_at = ?
		WHERE conversation_id = ? AND user_id = ?
		AND (last_read_at IS NULL OR last_read_at < ?)
	`, t, conversationID, userID, t)
	if err != nil {
		return fmt.Errorf("advance last read: %w", err)
	}
	return nil
}
