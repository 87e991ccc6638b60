package service

import (
	"context"
	"fmt"
	"time"

	"chatcore/internal/domain"
	"chatcore/internal/fanout"
)

// ReactionService handles per-user reactions and read receipts.
type ReactionService struct {
	participants domain.ParticipantRepository
	messages     domain.MessageRepository
	reactions    domain.ReactionRepository
	reads        domain.ReadRepository
	queue        fanout.Queue
}

func NewReactionService(
	participants domain.ParticipantRepository,
	messages domain.MessageRepository,
	reactions domain.ReactionRepository,
	reads domain.ReadRepository,
	queue fanout.Queue,
) *ReactionService {
	return &ReactionService{
		participants: participants,
		messages:     messages,
		reactions:    reactions,
		reads:        reads,
		queue:        queue,
	}
}

// resolveMessage loads the message and verifies the caller participates in
// its conversation.
func (s *ReactionService) resolveMessage(ctx context.Context, userID, messageID int64) (*domain.Message, error) {
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("message %d: %w", messageID, domain.ErrNotFound)
	}

	isParticipant, err := s.participants.IsParticipant(ctx, m.ConversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("check participant: %w", err)
	}
	if !isParticipant {
		return nil, fmt.Errorf("user %d is not a participant: %w", userID, domain.ErrForbidden)
	}
	return m, nil
}

// AddReaction applies a reaction to a message. The same (message, user,
// reaction) triple twice yields ErrAlreadyReacted.
func (s *ReactionService) AddReaction(ctx context.Context, userID, messageID int64, reaction string) (*domain.MessageReaction, error) {
	n := len([]rune(reaction))
	if n == 0 || n > domain.MaxReactionLen {
		return nil, fmt.Errorf("reaction must be 1-%d characters: %w", domain.MaxReactionLen, domain.ErrInvalidInput)
	}

	m, err := s.resolveMessage(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	if m.IsDeleted {
		return nil, fmt.Errorf("message %d is deleted: %w", messageID, domain.ErrNotFound)
	}

	r := &domain.MessageReaction{
		MessageID: messageID,
		UserID:    userID,
		Reaction:  reaction,
	}
	if err := s.reactions.Add(ctx, r); err != nil {
		return nil, err
	}

	s.queue.Enqueue(fanout.Task{
		ConversationID: m.ConversationID,
		SenderID:       userID,
		Event: map[string]any{
			"type":            fanout.EventReactionAdded,
			"conversation_id": m.ConversationID,
			"message_id":      messageID,
			"user_id":         userID,
			"reaction":        reaction,
		},
	})
	return r, nil
}

// RemoveReaction deletes the caller's reaction from a message.
func (s *ReactionService) RemoveReaction(ctx context.Context, userID, messageID int64, reaction string) error {
	m, err := s.resolveMessage(ctx, userID, messageID)
	if err != nil {
		return err
	}

	if err := s.reactions.Remove(ctx, messageID, userID, reaction); err != nil {
		return err
	}

	s.queue.Enqueue(fanout.Task{
		ConversationID: m.ConversationID,
		SenderID:       userID,
		Event: map[string]any{
			"type":            fanout.EventReactionRemoved,
			"conversation_id": m.ConversationID,
			"message_id":      messageID,
			"user_id":         userID,
			"reaction":        reaction,
		},
	})
	return nil
}

// MarkMessageRead records a read receipt for one message. A repeat call is a
// silent no-op. The caller's last_read_at advances if the message is newer.
func (s *ReactionService) MarkMessageRead(ctx context.Context, userID, messageID int64) error {
	m, err := s.resolveMessage(ctx, userID, messageID)
	if err != nil {
		return err
	}

	if _, err := s.reads.MarkRead(ctx, messageID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if err := s.participants.AdvanceLastRead(ctx, m.ConversationID, userID, m.CreatedAt); err != nil {
		return fmt.Errorf("advance last read: %w", err)
	}
	return nil
}

// MarkAllRead catches the caller up to the latest message in the
// conversation: receipts for every unread message by others plus a
// last_read_at equal to the conversation's max message timestamp.
func (s *ReactionService) MarkAllRead(ctx context.Context, userID, conversationID int64) error {
	isParticipant, err := s.participants.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return fmt.Errorf("check participant: %w", err)
	}
	if !isParticipant {
		return fmt.Errorf("user %d is not a participant: %w", userID, domain.ErrForbidden)
	}

	if err := s.reads.MarkAllRead(ctx, conversationID, userID); err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}
