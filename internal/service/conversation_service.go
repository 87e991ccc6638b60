package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"chatcore/internal/domain"
)

// Pagination caps for conversation listing.
const (
	DefaultConversationLimit = 20
	MaxConversationLimit     = 50
)

type ConversationService struct {
	conversations domain.ConversationRepository
	participants  domain.ParticipantRepository
	messages      domain.MessageRepository
	connections   domain.ConnectionChecker
	profiles      domain.ProfileDirectory
}

func NewConversationService(
	conversations domain.ConversationRepository,
	participants domain.ParticipantRepository,
	messages domain.MessageRepository,
	connections domain.ConnectionChecker,
	profiles domain.ProfileDirectory,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		participants:  participants,
		messages:      messages,
		connections:   connections,
		profiles:      profiles,
	}
}

// LastMessagePreview is the most recent message shown on a conversation
// summary. A deleted message keeps its tombstone content.
type LastMessagePreview struct {
	ID        int64              `json:"id"`
	SenderID  int64              `json:"sender_id"`
	Content   string             `json:"content"`
	Type      domain.MessageType `json:"message_type"`
	CreatedAt time.Time          `json:"created_at"`
	IsDeleted bool               `json:"is_deleted"`
}

// ConversationSummary is a listing row enriched with the other participant's
// profile, the latest message, the unread count, and the viewer's own state.
type ConversationSummary struct {
	ID            int64               `json:"id"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	LastMessageAt *time.Time          `json:"last_message_at,omitempty"`
	IsArchived    bool                `json:"is_archived"`
	OtherUser     *domain.Profile     `json:"other_user,omitempty"`
	LastMessage   *LastMessagePreview `json:"last_message,omitempty"`
	UnreadCount   int                 `json:"unread_count"`
	IsMuted       bool                `json:"is_muted"`
	LastReadAt    *time.Time          `json:"last_read_at,omitempty"`
}

// ParticipantInfo is one roster entry on a conversation detail.
type ParticipantInfo struct {
	UserID     int64           `json:"user_id"`
	Profile    *domain.Profile `json:"profile,omitempty"`
	JoinedAt   time.Time       `json:"joined_at"`
	LastReadAt *time.Time      `json:"last_read_at,omitempty"`
}

// ConversationDetail is the full view of one conversation for a participant.
type ConversationDetail struct {
	ID            int64             `json:"id"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	LastMessageAt *time.Time        `json:"last_message_at,omitempty"`
	IsArchived    bool              `json:"is_archived"`
	Participants  []ParticipantInfo `json:"participants"`
	IsMuted       bool              `json:"is_muted"`
	LastReadAt    *time.Time        `json:"last_read_at,omitempty"`
}

// Create starts a conversation between two mutually connected users. At most
// one conversation per pair exists; a second attempt returns
// ConversationExistsError carrying the existing id.
func (s *ConversationService) Create(ctx context.Context, requesterID, otherUserID int64) (*domain.Conversation, error) {
	if otherUserID <= 0 {
		return nil, fmt.Errorf("other user id is required: %w", domain.ErrInvalidInput)
	}
	if requesterID == otherUserID {
		return nil, fmt.Errorf("cannot start a conversation with yourself: %w", domain.ErrInvalidInput)
	}

	connected, err := s.connections.IsConnected(ctx, requesterID, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("check connection: %w", err)
	}
	if !connected {
		return nil, fmt.Errorf("users are not connected: %w", domain.ErrForbidden)
	}

	existing, err := s.conversations.FindDirect(ctx, requesterID, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("find existing conversation: %w", err)
	}
	if existing != nil {
		return nil, &domain.ConversationExistsError{ConversationID: existing.ID}
	}

	conv := &domain.Conversation{}
	if err := s.conversations.Create(ctx, conv, []int64{requesterID, otherUserID}); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// List returns the caller's conversations ordered by last activity, enriched
// best-effort: a failed sub-query degrades that row to safe defaults instead
// of failing the listing.
func (s *ConversationService) List(ctx context.Context, userID int64, limit, offset int) ([]*ConversationSummary, error) {
	limit = clampLimit(limit, DefaultConversationLimit, MaxConversationLimit)
	if offset < 0 {
		offset = 0
	}

	convs, err := s.conversations.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	res := make([]*ConversationSummary, 0, len(convs))
	for _, c := range convs {
		res = append(res, s.summarize(ctx, c, userID))
	}
	return res, nil
}

func (s *ConversationService) summarize(ctx context.Context, c *domain.Conversation, viewerID int64) *ConversationSummary {
	sum := &ConversationSummary{
		ID:            c.ID,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		LastMessageAt: c.LastMessageAt,
		IsArchived:    c.IsArchived,
	}

	participants, err := s.participants.ListForConversation(ctx, c.ID)
	if err != nil {
		log.Printf("conversation %d: list participants: %v", c.ID, err)
	}
	for _, p := range participants {
		if p.UserID == viewerID {
			sum.IsMuted = p.IsMuted
			sum.LastReadAt = p.LastReadAt
			continue
		}
		if profile, err := s.profiles.GetProfile(ctx, p.UserID); err != nil {
			log.Printf("conversation %d: profile for user %d: %v", c.ID, p.UserID, err)
		} else {
			sum.OtherUser = profile
		}
	}

	if last, err := s.messages.LatestForConversation(ctx, c.ID); err != nil {
		log.Printf("conversation %d: latest message: %v", c.ID, err)
	} else if last != nil {
		sum.LastMessage = &LastMessagePreview{
			ID:        last.ID,
			SenderID:  last.SenderID,
			Content:   last.Content,
			Type:      last.Type,
			CreatedAt: last.CreatedAt,
			IsDeleted: last.IsDeleted,
		}
	}

	if unread, err := s.messages.CountUnread(ctx, c.ID, viewerID); err != nil {
		log.Printf("conversation %d: count unread: %v", c.ID, err)
	} else {
		sum.UnreadCount = unread
	}

	return sum
}

// Get returns the full roster and viewer state for one conversation.
func (s *ConversationService) Get(ctx context.Context, userID, conversationID int64) (*ConversationDetail, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %d: %w", conversationID, domain.ErrNotFound)
	}

	participants, err := s.participants.ListForConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	detail := &ConversationDetail{
		ID:            conv.ID,
		CreatedAt:     conv.CreatedAt,
		UpdatedAt:     conv.UpdatedAt,
		LastMessageAt: conv.LastMessageAt,
		IsArchived:    conv.IsArchived,
	}

	viewer := false
	ids := make([]int64, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
		if p.UserID == userID {
			viewer = true
			detail.IsMuted = p.IsMuted
			detail.LastReadAt = p.LastReadAt
		}
	}
	if !viewer {
		return nil, fmt.Errorf("user %d is not a participant: %w", userID, domain.ErrForbidden)
	}

	profiles, err := s.profiles.GetProfiles(ctx, ids)
	if err != nil {
		log.Printf("conversation %d: resolve profiles: %v", conversationID, err)
		profiles = map[int64]*domain.Profile{}
	}
	for _, p := range participants {
		detail.Participants = append(detail.Participants, ParticipantInfo{
			UserID:     p.UserID,
			Profile:    profiles[p.UserID],
			JoinedAt:   p.JoinedAt,
			LastReadAt: p.LastReadAt,
		})
	}

	return detail, nil
}

// Archive toggles the conversation-wide archived flag. The flag is shared by
// both participants; calling twice restores the original state.
func (s *ConversationService) Archive(ctx context.Context, userID, conversationID int64) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %d: %w", conversationID, domain.ErrNotFound)
	}

	isParticipant, err := s.participants.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("check participant: %w", err)
	}
	if !isParticipant {
		return nil, fmt.Errorf("user %d is not a participant: %w", userID, domain.ErrForbidden)
	}

	if err := s.conversations.SetArchived(ctx, conversationID, !conv.IsArchived); err != nil {
		return nil, fmt.Errorf("set archived: %w", err)
	}
	conv.IsArchived = !conv.IsArchived
	return conv, nil
}

// Mute updates only the caller's participant row.
func (s *ConversationService) Mute(ctx context.Context, userID, conversationID int64, muted bool) error {
	if err := s.participants.SetMuted(ctx, conversationID, userID, muted); err != nil {
		return fmt.Errorf("set muted: %w", err)
	}
	return nil
}

// Leave removes the caller's participant row. Messages and the conversation
// itself are retained, even when the last participant leaves.
func (s *ConversationService) Leave(ctx context.Context, userID, conversationID int64) error {
	if err := s.participants.Delete(ctx, conversationID, userID); err != nil {
		return fmt.Errorf("leave conversation: %w", err)
	}
	return nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
