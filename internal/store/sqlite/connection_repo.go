package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"chatcore/internal/domain"
)

// ConnectionRepo is the read-only sqlite adapter for the connection graph
// collaborator. Only accepted connections gate conversation creation.
type ConnectionRepo struct {
	db *sql.DB
}

func NewConnectionRepo(db *sql.DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

var _ domain.ConnectionChecker = (*ConnectionRepo)(nil)

func (r *ConnectionRepo) IsConnected(ctx context.Context, userA, userB int64) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1
		FROM connections
		WHERE status = 'accepted'
		AND ((user_a = ? AND user_b = ?) OR (user_a = ? AND user_b = ?))
	`, userA, userB, userB, userA).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check connection: %w", err)
	}
	return true, nil
}
