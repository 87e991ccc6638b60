package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatcore/internal/domain"
	"chatcore/internal/fanout"
	"chatcore/internal/service"
)

type reactionServiceFixture struct {
	svc       *service.ReactionService
	partRepo  *MockParticipantRepo
	msgRepo   *MockMessageRepo
	reactRepo *MockReactionRepo
	readRepo  *MockReadRepo
	queue     *recordingQueue
}

func newReactionService() *reactionServiceFixture {
	f := &reactionServiceFixture{
		partRepo:  new(MockParticipantRepo),
		msgRepo:   new(MockMessageRepo),
		reactRepo: new(MockReactionRepo),
		readRepo:  new(MockReadRepo),
		queue:     &recordingQueue{},
	}
	f.svc = service.NewReactionService(f.partRepo, f.msgRepo, f.reactRepo, f.readRepo, f.queue)
	return f
}

func TestReactionService_AddReaction(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects oversized reaction", func(t *testing.T) {
		f := newReactionService()

		_, err := f.svc.AddReaction(ctx, 1, 7, strings.Repeat("x", domain.MaxReactionLen+1))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		f.msgRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("unknown message", func(t *testing.T) {
		f := newReactionService()
		f.msgRepo.On("GetByID", mock.Anything, int64(7)).Return(nil, nil)

		_, err := f.svc.AddReaction(ctx, 1, 7, "👍")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("deleted message cannot be reacted to", func(t *testing.T) {
		f := newReactionService()
		f.msgRepo.On("GetByID", mock.Anything, int64(7)).Return(&domain.Message{
			ID: 7, ConversationID: 2, IsDeleted: true,
		}, nil)
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)

		_, err := f.svc.AddReaction(ctx, 1, 7, "👍")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("non-participant is rejected", func(t *testing.T) {
		f := newReactionService()
		f.msgRepo.On("GetByID", mock.Anything, int64(7)).Return(&domain.Message{ID: 7, ConversationID: 2}, nil)
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(9)).Return(false, nil)

		_, err := f.svc.AddReaction(ctx, 9, 7, "👍")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("duplicate reaction is a conflict", func(t *testing.T) {
		f := newReactionService()
		f.msgRepo.On("GetByID", mock.Anything, int64(7)).Return(&domain.Message{ID: 7, ConversationID: 2}, nil)
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)
		f.reactRepo.On("Add", mock.Anything, mock.Anything).Return(domain.ErrAlreadyReacted)

		_, err := f.svc.AddReaction(ctx, 1, 7, "👍")
		assert.ErrorIs(t, err, domain.ErrAlreadyReacted)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Empty(t, f.queue.Tasks())
	})

	t.Run("successful reaction is broadcast", func(t *testing.T) {
		f := newReactionService()
		f.msgRepo.On("GetByID", mock.Anything, int64(7)).Return(&domain.Message{ID: 7, ConversationID: 2}, nil)
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)
		f.reactRepo.On("Add", mock.Anything, mock.MatchedBy(func(r *domain.MessageReaction) bool {
			return r.MessageID == 7 && r.UserID == 1 && r.Reaction == "👍"
		})).Return(nil)

		r, err := f.svc.AddReaction(ctx, 1, 7, "👍")
		require.NoError(t, err)
		assert.Equal(t, "👍", r.Reaction)

		tasks := f.queue.Tasks()
		require.Len(t, tasks, 1)
		event := tasks[0].Event.(map[string]any)
		assert.Equal(t, fanout.EventReactionAdded, event["type"])
		assert.Equal(t, "👍", event["reaction"])
		assert.False(t, tasks[0].Notify)
	})
}

func TestReactionService_RemoveReaction(t *testing.T) {
	ctx := context.Background()

	t.Run("absent reaction passes not found through", func(t *testing.T) {
		f := newReactionService()
		f.msgRepo.On("GetByID", mock.Anything, int64(7)).Return(&domain.Message{ID: 7, ConversationID: 2}, nil)
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)
		f.reactRepo.On("Remove", mock.Anything, int64(7), int64(1), "👍").Return(domain.ErrNotFound)

		err := f.svc.RemoveReaction(ctx, 1, 7, "👍")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Empty(t, f.queue.Tasks())
	})

	t.Run("successful removal is broadcast", func(t *testing.T) {
		f := newReactionService()
		f.msgRepo.On("GetByID", mock.Anything, int64(7)).Return(&domain.Message{ID: 7, ConversationID: 2}, nil)
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)
		f.reactRepo.On("Remove", mock.Anything, int64(7), int64(1), "👍").Return(nil)

		err := f.svc.RemoveReaction(ctx, 1, 7, "👍")
		require.NoError(t, err)

		tasks := f.queue.Tasks()
		require.Len(t, tasks, 1)
		event := tasks[0].Event.(map[string]any)
		assert.Equal(t, fanout.EventReactionRemoved, event["type"])
	})
}

func TestReactionService_MarkMessageRead(t *testing.T) {
	ctx := context.Background()
	created := time.Now().UTC().Add(-time.Minute)

	t.Run("records receipt and advances last read", func(t *testing.T) {
		f := newReactionService()
		f.msgRepo.On("GetByID", mock.Anything, int64(7)).Return(&domain.Message{
			ID: 7, ConversationID: 2, SenderID: 3, CreatedAt: created,
		}, nil)
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)
		f.readRepo.On("MarkRead", mock.Anything, int64(7), int64(1), mock.Anything).Return(true, nil)
		f.partRepo.On("AdvanceLastRead", mock.Anything, int64(2), int64(1), created).Return(nil)

		err := f.svc.MarkMessageRead(ctx, 1, 7)
		assert.NoError(t, err)
		f.partRepo.AssertCalled(t, "AdvanceLastRead", mock.Anything, int64(2), int64(1), created)
	})

	t.Run("repeat call stays silent", func(t *testing.T) {
		f := newReactionService()
		f.msgRepo.On("GetByID", mock.Anything, int64(7)).Return(&domain.Message{
			ID: 7, ConversationID: 2, SenderID: 3, CreatedAt: created,
		}, nil)
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)
		f.readRepo.On("MarkRead", mock.Anything, int64(7), int64(1), mock.Anything).Return(false, nil)
		f.partRepo.On("AdvanceLastRead", mock.Anything, int64(2), int64(1), created).Return(nil)

		err := f.svc.MarkMessageRead(ctx, 1, 7)
		assert.NoError(t, err)
	})
}

func TestReactionService_MarkAllRead(t *testing.T) {
	ctx := context.Background()

	t.Run("non-participant is rejected", func(t *testing.T) {
		f := newReactionService()
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(9)).Return(false, nil)

		err := f.svc.MarkAllRead(ctx, 9, 2)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		f.readRepo.AssertNotCalled(t, "MarkAllRead", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("participant catches up", func(t *testing.T) {
		f := newReactionService()
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)
		f.readRepo.On("MarkAllRead", mock.Anything, int64(2), int64(1)).Return(nil)

		err := f.svc.MarkAllRead(ctx, 1, 2)
		assert.NoError(t, err)
		f.readRepo.AssertExpectations(t)
	})
}
