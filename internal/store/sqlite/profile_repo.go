package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"chatcore/internal/domain"
)

// ProfileRepo is the sqlite adapter for the identity directory collaborator.
type ProfileRepo struct {
	db *sql.DB
}

func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

var _ domain.ProfileDirectory = (*ProfileRepo)(nil)

func (r *ProfileRepo) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	p := &domain.Profile{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, display_name, avatar_url
		FROM users
		WHERE id = ?
	`, userID).Scan(&p.ID, &p.DisplayName, &p.AvatarURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepo) GetProfiles(ctx context.Context, userIDs []int64) (map[int64]*domain.Profile, error) {
	res := make(map[int64]*domain.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return res, nil
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, display_name, avatar_url
		FROM users
		WHERE id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("get profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p := &domain.Profile{}
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		res[p.ID] = p
	}
	return res, rows.Err()
}
