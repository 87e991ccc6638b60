package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatcore/internal/domain"
)

// NotificationRepo is the sqlite adapter for the notification store
// collaborator's narrow create interface.
type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

var _ domain.NotificationStore = (*NotificationRepo)(nil)

func (r *NotificationRepo) CreateNotification(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (recipient_id, type, sender_id, related_id, title, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.RecipientID, n.Type, n.SenderID, n.RelatedID, n.Title, n.Body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
