package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"chatcore/internal/domain"
	"chatcore/internal/fanout"
)

// Pagination caps for message listing.
const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 100
)

type MessageService struct {
	participants domain.ParticipantRepository
	messages     domain.MessageRepository
	reactions    domain.ReactionRepository
	reads        domain.ReadRepository
	profiles     domain.ProfileDirectory
	storage      domain.ObjectStorage
	queue        fanout.Queue
}

func NewMessageService(
	participants domain.ParticipantRepository,
	messages domain.MessageRepository,
	reactions domain.ReactionRepository,
	reads domain.ReadRepository,
	profiles domain.ProfileDirectory,
	storage domain.ObjectStorage,
	queue fanout.Queue,
) *MessageService {
	return &MessageService{
		participants: participants,
		messages:     messages,
		reactions:    reactions,
		reads:        reads,
		profiles:     profiles,
		storage:      storage,
		queue:        queue,
	}
}

// ReplySummary is the resolved reply-to target shown on a message. A deleted
// target shows its tombstone content.
type ReplySummary struct {
	ID        int64              `json:"id"`
	SenderID  int64              `json:"sender_id"`
	Content   string             `json:"content"`
	Type      domain.MessageType `json:"message_type"`
	IsDeleted bool               `json:"is_deleted"`
}

// ReactionGroup aggregates one reaction string on a message.
type ReactionGroup struct {
	Reaction string            `json:"reaction"`
	Count    int               `json:"count"`
	Users    []*domain.Profile `json:"users"`
}

// MessageView is the enriched message shape returned to callers.
type MessageView struct {
	ID             int64              `json:"id"`
	ConversationID int64              `json:"conversation_id"`
	SenderID       int64              `json:"sender_id"`
	Sender         *domain.Profile    `json:"sender,omitempty"`
	Content        string             `json:"content"`
	Type           domain.MessageType `json:"message_type"`
	FileURL        *string            `json:"file_url,omitempty"`
	FileName       *string            `json:"file_name,omitempty"`
	FileSize       *int64             `json:"file_size,omitempty"`
	ReplyTo        *ReplySummary      `json:"reply_to,omitempty"`
	Reactions      []ReactionGroup    `json:"reactions,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	IsDeleted      bool               `json:"is_deleted"`
	IsReadByUser   bool               `json:"is_read_by_user"`
}

// List returns a page of messages for a participant. Storage is queried
// newest first (optionally bounded by before); the page is reversed so
// callers always render oldest to newest.
func (s *MessageService) List(ctx context.Context, userID, conversationID int64, limit, offset int, before *time.Time) ([]*MessageView, error) {
	limit = clampLimit(limit, DefaultMessageLimit, MaxMessageLimit)
	if offset < 0 {
		offset = 0
	}

	isParticipant, err := s.participants.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("check participant: %w", err)
	}
	if !isParticipant {
		return nil, fmt.Errorf("user %d is not a participant: %w", userID, domain.ErrForbidden)
	}

	msgs, err := s.messages.ListForConversation(ctx, conversationID, limit, offset, before)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return s.enrich(ctx, msgs, userID)
}

func (s *MessageService) enrich(ctx context.Context, msgs []*domain.Message, viewerID int64) ([]*MessageView, error) {
	ids := make([]int64, 0, len(msgs))
	byID := make(map[int64]*domain.Message, len(msgs))
	userIDs := make(map[int64]struct{})
	for _, m := range msgs {
		ids = append(ids, m.ID)
		byID[m.ID] = m
		userIDs[m.SenderID] = struct{}{}
	}

	reactions, err := s.reactions.ListForMessages(ctx, ids)
	if err != nil {
		log.Printf("enrich: list reactions: %v", err)
		reactions = map[int64][]*domain.MessageReaction{}
	}
	for _, rs := range reactions {
		for _, r := range rs {
			userIDs[r.UserID] = struct{}{}
		}
	}

	readByUser, err := s.reads.ReadByUser(ctx, ids, viewerID)
	if err != nil {
		log.Printf("enrich: read receipts: %v", err)
		readByUser = map[int64]bool{}
	}

	// Reply targets may fall outside the fetched page.
	replyTargets := make(map[int64]*domain.Message)
	for _, m := range msgs {
		if m.ReplyToID == nil {
			continue
		}
		if target, ok := byID[*m.ReplyToID]; ok {
			replyTargets[*m.ReplyToID] = target
			continue
		}
		if _, ok := replyTargets[*m.ReplyToID]; ok {
			continue
		}
		target, err := s.messages.GetByID(ctx, *m.ReplyToID)
		if err != nil {
			log.Printf("enrich: resolve reply %d: %v", *m.ReplyToID, err)
			continue
		}
		if target != nil {
			replyTargets[*m.ReplyToID] = target
			userIDs[target.SenderID] = struct{}{}
		}
	}

	idList := make([]int64, 0, len(userIDs))
	for id := range userIDs {
		idList = append(idList, id)
	}
	profiles, err := s.profiles.GetProfiles(ctx, idList)
	if err != nil {
		log.Printf("enrich: resolve profiles: %v", err)
		profiles = map[int64]*domain.Profile{}
	}

	views := make([]*MessageView, 0, len(msgs))
	for _, m := range msgs {
		v := &MessageView{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			Sender:         profiles[m.SenderID],
			Content:        m.Content,
			Type:           m.Type,
			FileURL:        m.FileURL,
			FileName:       m.FileName,
			FileSize:       m.FileSize,
			CreatedAt:      m.CreatedAt,
			UpdatedAt:      m.UpdatedAt,
			IsDeleted:      m.IsDeleted,
			IsReadByUser:   readByUser[m.ID],
		}
		if m.ReplyToID != nil {
			if target, ok := replyTargets[*m.ReplyToID]; ok {
				v.ReplyTo = &ReplySummary{
					ID:        target.ID,
					SenderID:  target.SenderID,
					Content:   target.Content,
					Type:      target.Type,
					IsDeleted: target.IsDeleted,
				}
			}
		}
		v.Reactions = groupReactions(reactions[m.ID], profiles)
		views = append(views, v)
	}
	return views, nil
}

func groupReactions(rs []*domain.MessageReaction, profiles map[int64]*domain.Profile) []ReactionGroup {
	if len(rs) == 0 {
		return nil
	}
	order := make([]string, 0, len(rs))
	grouped := make(map[string]*ReactionGroup)
	for _, r := range rs {
		g, ok := grouped[r.Reaction]
		if !ok {
			g = &ReactionGroup{Reaction: r.Reaction}
			grouped[r.Reaction] = g
			order = append(order, r.Reaction)
		}
		g.Count++
		if p := profiles[r.UserID]; p != nil {
			g.Users = append(g.Users, p)
		}
	}
	res := make([]ReactionGroup, 0, len(order))
	for _, reaction := range order {
		res = append(res, *grouped[reaction])
	}
	return res
}

// Send persists a text message and, after the transaction commits, enqueues
// the fan-out broadcast and notifications. Fan-out failure never unwinds the
// committed write.
func (s *MessageService) Send(ctx context.Context, userID, conversationID int64, content string, replyToID *int64) (*domain.Message, error) {
	if err := validateContent(content, domain.MaxTextContentLen); err != nil {
		return nil, err
	}

	isParticipant, err := s.participants.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("check participant: %w", err)
	}
	if !isParticipant {
		return nil, fmt.Errorf("user %d is not a participant: %w", userID, domain.ErrForbidden)
	}

	if replyToID != nil {
		target, err := s.messages.GetByID(ctx, *replyToID)
		if err != nil {
			return nil, fmt.Errorf("resolve reply target: %w", err)
		}
		if target == nil || target.IsDeleted || target.ConversationID != conversationID {
			return nil, fmt.Errorf("reply target must be a message in the same conversation: %w", domain.ErrInvalidInput)
		}
	}

	m := &domain.Message{
		ConversationID: conversationID,
		SenderID:       userID,
		Content:        content,
		Type:           domain.MessageTypeText,
		ReplyToID:      replyToID,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	s.dispatchNew(ctx, m)
	return m, nil
}

// FileInput describes an uploaded attachment.
type FileInput struct {
	Filename    string
	ContentType string
	Reader      io.Reader
}

// SendFile stores the attachment, then persists an image or file message. If
// the database write fails the stored object is cleaned up; fan-out failure
// alone never triggers cleanup.
func (s *MessageService) SendFile(ctx context.Context, userID, conversationID int64, file FileInput, caption string) (*domain.Message, error) {
	if file.Reader == nil || file.Filename == "" {
		return nil, fmt.Errorf("file is required: %w", domain.ErrInvalidInput)
	}
	if len([]rune(caption)) > domain.MaxCaptionLen {
		return nil, fmt.Errorf("caption exceeds %d characters: %w", domain.MaxCaptionLen, domain.ErrInvalidInput)
	}

	isParticipant, err := s.participants.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("check participant: %w", err)
	}
	if !isParticipant {
		return nil, fmt.Errorf("user %d is not a participant: %w", userID, domain.ErrForbidden)
	}

	stored, err := s.storage.Store(ctx, file.Filename, file.Reader)
	if err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}

	msgType := domain.MessageTypeFile
	if strings.HasPrefix(file.ContentType, "image/") {
		msgType = domain.MessageTypeImage
	}

	m := &domain.Message{
		ConversationID: conversationID,
		SenderID:       userID,
		Content:        caption,
		Type:           msgType,
		FileURL:        &stored.URL,
		FileName:       &stored.Name,
		FileSize:       &stored.Size,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		// Compensating cleanup, scoped strictly to transaction failure.
		if delErr := s.storage.Delete(ctx, stored.URL); delErr != nil {
			log.Printf("send file: cleanup %s after failed write: %v", stored.URL, delErr)
		}
		return nil, fmt.Errorf("create message: %w", err)
	}

	s.dispatchNew(ctx, m)
	return m, nil
}

// Edit updates a non-deleted text message owned by the caller. The
// conversation's last_message_at is left untouched.
func (s *MessageService) Edit(ctx context.Context, userID, messageID int64, content string) (*domain.Message, error) {
	if err := validateContent(content, domain.MaxTextContentLen); err != nil {
		return nil, err
	}

	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if m == nil || m.IsDeleted || m.SenderID != userID || m.Type != domain.MessageTypeText {
		return nil, fmt.Errorf("editable message %d: %w", messageID, domain.ErrNotFound)
	}

	if err := s.messages.UpdateContent(ctx, messageID, content); err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}
	m.Content = content
	m.UpdatedAt = time.Now().UTC()

	s.queue.Enqueue(fanout.Task{
		ConversationID: m.ConversationID,
		SenderID:       userID,
		Event: map[string]any{
			"type":            fanout.EventMessageUpdated,
			"conversation_id": m.ConversationID,
			"message_id":      m.ID,
			"content":         m.Content,
			"updated_at":      m.UpdatedAt,
		},
	})
	return m, nil
}

// Delete tombstones a non-deleted message owned by the caller. Content is
// permanently replaced; type and attachment fields are retained for context.
func (s *MessageService) Delete(ctx context.Context, userID, messageID int64) error {
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("get message: %w", err)
	}
	if m == nil || m.IsDeleted || m.SenderID != userID {
		return fmt.Errorf("deletable message %d: %w", messageID, domain.ErrNotFound)
	}

	if err := s.messages.SoftDelete(ctx, messageID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	s.queue.Enqueue(fanout.Task{
		ConversationID: m.ConversationID,
		SenderID:       userID,
		Event: map[string]any{
			"type":            fanout.EventMessageDeleted,
			"conversation_id": m.ConversationID,
			"message_id":      m.ID,
			"content":         domain.DeletedPlaceholder,
		},
	})
	return nil
}

// dispatchNew enqueues the post-commit broadcast and notification task for a
// freshly committed message.
func (s *MessageService) dispatchNew(ctx context.Context, m *domain.Message) {
	event := map[string]any{
		"type":            fanout.EventMessageNew,
		"conversation_id": m.ConversationID,
		"message_id":      m.ID,
		"sender_id":       m.SenderID,
		"content":         m.Content,
		"message_type":    m.Type,
		"created_at":      m.CreatedAt,
	}
	if m.ReplyToID != nil {
		event["reply_to_id"] = *m.ReplyToID
	}
	if m.HasAttachment() {
		event["file_url"] = m.FileURL
		event["file_name"] = m.FileName
		event["file_size"] = m.FileSize
	}
	if sender, err := s.profiles.GetProfile(ctx, m.SenderID); err == nil && sender != nil {
		event["sender_name"] = sender.DisplayName
	}

	s.queue.Enqueue(fanout.Task{
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Event:          event,
		Notify:         true,
		Preview:        fanout.Preview(m.Type, m.Content),
	})
}

func validateContent(content string, max int) error {
	n := len([]rune(content))
	if n == 0 {
		return fmt.Errorf("content cannot be empty: %w", domain.ErrInvalidInput)
	}
	if n > max {
		return fmt.Errorf("content exceeds %d characters: %w", max, domain.ErrInvalidInput)
	}
	return nil
}
