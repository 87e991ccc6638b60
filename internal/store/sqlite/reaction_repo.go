package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"chatcore/internal/domain"
)

type ReactionRepo struct {
	db *sql.DB
}

func NewReactionRepo(db *sql.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

var _ domain.ReactionRepository = (*ReactionRepo)(nil)

func (r *ReactionRepo) Add(ctx context.Context, reaction *domain.MessageReaction) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO message_reactions (message_id, user_id, reaction, created_at)
		VALUES (?, ?, ?, ?)
	`, reaction.MessageID, reaction.UserID, reaction.Reaction, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyReacted
		}
		return fmt.Errorf("insert reaction: %w", err)
	}
	reaction.CreatedAt = now
	return nil
}

func (r *ReactionRepo) Remove(ctx context.Context, messageID, userID int64, reaction string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM message_reactions
		WHERE message_id = ? AND user_id = ? AND reaction = ?
	`, messageID, userID, reaction)
	if err != nil {
		return fmt.Errorf("delete reaction: %w", err)
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

func (r *ReactionRepo) ListForMessages(ctx context.Context, messageIDs []int64) (map[int64][]*domain.MessageReaction, error) {
	res := make(map[int64][]*domain.MessageReaction, len(messageIDs))
	if len(messageIDs) == 0 {
		return res, nil
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(messageIDs)), ",")
	args := make([]any, len(messageIDs))
	for i, id := range messageIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id, user_id, reaction, created_at
		FROM message_reactions
		WHERE message_id IN (`+placeholders+`)
		ORDER BY created_at ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		mr := &domain.MessageReaction{}
		if err := rows.Scan(&mr.MessageID, &mr.UserID, &mr.Reaction, &mr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		res[mr.MessageID] = append(res[mr.MessageID], mr)
	}
	return res, rows.Err()
}
