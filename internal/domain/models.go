package domain

import "time"

// MessageType is the closed set of message kinds.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

// Validation limits and fixed strings used across the messaging core.
const (
	MaxTextContentLen = 4000
	MaxCaptionLen     = 1000
	MaxReactionLen    = 10

	// DeletedPlaceholder permanently replaces the content of a deleted
	// message. Attachments and type are retained for display context.
	DeletedPlaceholder = "This message has been deleted"
)

// Conversation is a two-party messaging thread. IsArchived is a
// conversation-wide flag shared by both participants, not per-user.
type Conversation struct {
	ID            int64      `db:"id" json:"id"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	IsArchived    bool       `db:"is_archived" json:"is_archived"`
}

// Participant is a user's membership record in a conversation, carrying the
// per-user state (mute, last-read). Deleting the row is how a user leaves.
type Participant struct {
	ConversationID int64      `db:"conversation_id" json:"conversation_id"`
	UserID         int64      `db:"user_id" json:"user_id"`
	JoinedAt       time.Time  `db:"joined_at" json:"joined_at"`
	LastReadAt     *time.Time `db:"last_read_at" json:"last_read_at,omitempty"`
	IsMuted        bool       `db:"is_muted" json:"is_muted"`
}

// Message is a single message in a conversation. Attachment fields are
// populated only for image and file messages.
type Message struct {
	ID             int64       `db:"id" json:"id"`
	ConversationID int64       `db:"conversation_id" json:"conversation_id"`
	SenderID       int64       `db:"sender_id" json:"sender_id"`
	Content        string      `db:"content" json:"content"`
	Type           MessageType `db:"message_type" json:"message_type"`
	FileURL        *string     `db:"file_url" json:"file_url,omitempty"`
	FileName       *string     `db:"file_name" json:"file_name,omitempty"`
	FileSize       *int64      `db:"file_size" json:"file_size,omitempty"`
	ReplyToID      *int64      `db:"reply_to_id" json:"reply_to_id,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
	IsDeleted      bool        `db:"is_deleted" json:"is_deleted"`
	DeletedAt      *time.Time  `db:"deleted_at" json:"deleted_at,omitempty"`
}

// HasAttachment reports whether the message carries a stored file.
func (m *Message) HasAttachment() bool {
	return m.Type == MessageTypeImage || m.Type == MessageTypeFile
}

// MessageReaction is one user's reaction to one message. The
// (message, user, reaction) triple is unique.
type MessageReaction struct {
	MessageID int64     `db:"message_id" json:"message_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Reaction  string    `db:"reaction" json:"reaction"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MessageRead is a per-user, per-message read receipt.
type MessageRead struct {
	MessageID int64     `db:"message_id" json:"message_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ReadAt    time.Time `db:"read_at" json:"read_at"`
}

// Profile is the identity shape resolved through the external directory.
type Profile struct {
	ID          int64   `json:"id"`
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// Notification is the record handed to the external notification store.
type Notification struct {
	RecipientID int64  `json:"recipient_id"`
	Type        string `json:"type"`
	SenderID    int64  `json:"sender_id"`
	RelatedID   int64  `json:"related_id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
}

// StoredFile describes an attachment persisted in object storage.
type StoredFile struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}
