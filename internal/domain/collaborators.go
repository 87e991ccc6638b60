package domain

import (
	"context"
	"io"
)

// External collaborators consumed by the messaging core. Each is a narrow
// interface over a system owned elsewhere (connection graph, notification
// store, object storage, identity directory).

// ConnectionChecker answers whether two users have an accepted connection.
// Consulted only when creating a conversation.
type ConnectionChecker interface {
	IsConnected(ctx context.Context, userA, userB int64) (bool, error)
}

// NotificationStore creates per-recipient notifications for new messages.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *Notification) error
}

// ProfileDirectory resolves user identity for enrichment.
type ProfileDirectory interface {
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	GetProfiles(ctx context.Context, userIDs []int64) (map[int64]*Profile, error)
}

// ObjectStorage stores and deletes message attachments.
type ObjectStorage interface {
	Store(ctx context.Context, name string, r io.Reader) (*StoredFile, error)
	Delete(ctx context.Context, url string) error
}
