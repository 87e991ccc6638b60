package domain

import (
	"context"
	"time"
)

// ConversationRepository defines persistence operations for conversations.
type ConversationRepository interface {
	// Create inserts the conversation and one participant row per user in a
	// single transaction. A partial participant set is never observable.
	Create(ctx context.Context, c *Conversation, participantIDs []int64) error
	GetByID(ctx context.Context, id int64) (*Conversation, error)
	// FindDirect returns the conversation both users participate in, or nil.
	FindDirect(ctx context.Context, userA, userB int64) (*Conversation, error)
	// ListForUser orders by last_message_at falling back to created_at,
	// newest first.
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*Conversation, error)
	SetArchived(ctx context.Context, id int64, archived bool) error
}

// ParticipantRepository defines operations on conversation membership rows.
type ParticipantRepository interface {
	ListForConversation(ctx context.Context, conversationID int64) ([]*Participant, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	// SetMuted updates the caller's row only; ErrNotFound if no row exists.
	SetMuted(ctx context.Context, conversationID, userID int64, muted bool) error
	// Delete removes the membership row; ErrNotFound if no row exists.
	Delete(ctx context.Context, conversationID, userID int64) error
	// AdvanceLastRead moves last_read_at forward to t, never backward.
	AdvanceLastRead(ctx context.Context, conversationID, userID int64, t time.Time) error
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	// Create inserts the message and touches the conversation's
	// last_message_at/updated_at in a single transaction.
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id int64) (*Message, error)
	// ListForConversation returns messages newest first, optionally bounded
	// to created_at earlier than before.
	ListForConversation(ctx context.Context, conversationID int64, limit, offset int, before *time.Time) ([]*Message, error)
	LatestForConversation(ctx context.Context, conversationID int64) (*Message, error)
	UpdateContent(ctx context.Context, id int64, content string) error
	// SoftDelete tombstones the message: content is replaced with
	// DeletedPlaceholder, type and attachment fields are retained.
	SoftDelete(ctx context.Context, id int64) error
	// CountUnread counts messages sent by others with no read receipt for
	// the given user.
	CountUnread(ctx context.Context, conversationID, userID int64) (int, error)
}

// ReactionRepository defines persistence operations for message reactions.
type ReactionRepository interface {
	// Add inserts the reaction; a duplicate triple yields ErrAlreadyReacted.
	Add(ctx context.Context, r *MessageReaction) error
	// Remove deletes the matching row; ErrNotFound if none existed.
	Remove(ctx context.Context, messageID, userID int64, reaction string) error
	ListForMessages(ctx context.Context, messageIDs []int64) (map[int64][]*MessageReaction, error)
}

// ReadRepository defines persistence operations for read receipts.
type ReadRepository interface {
	// MarkRead inserts a receipt; a duplicate is a silent no-op. Returns
	// whether a row was inserted.
	MarkRead(ctx context.Context, messageID, userID int64, at time.Time) (bool, error)
	// MarkAllRead inserts receipts for every unread message sent by others
	// in the conversation and advances the participant's last_read_at to the
	// conversation's latest message timestamp, in one transaction.
	MarkAllRead(ctx context.Context, conversationID, userID int64) error
	// ReadByUser reports, per message id, whether the user has a receipt.
	ReadByUser(ctx context.Context, messageIDs []int64, userID int64) (map[int64]bool, error)
}
