package service_test

import (
	"context"
	"errors"
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

type messageServiceFixture struct {
	svc       *service.MessageService
	partRepo  *MockParticipantRepo
	msgRepo   *MockMessageRepo
	reactRepo *MockReactionRepo
	readRepo  *MockReadRepo
	profiles  *MockProfileDirectory
	storage   *MockObjectStorage
	queue     *recordingQueue
}

func newMessageService() *messageServiceFixture {
	f := &messageServiceFixture{
		partRepo:  new(MockParticipantRepo),
		msgRepo:   new(MockMessageRepo),
		reactRepo: new(MockReactionRepo),
		readRepo:  new(MockReadRepo),
		profiles:  new(MockProfileDirectory),
		storage:   new(MockObjectStorage),
		queue:     &recordingQueue{},
	}
	f.svc = service.NewMessageService(f.partRepo, f.msgRepo, f.reactRepo, f.readRepo, f.profiles, f.storage, f.queue)
	return f
}

func TestMessageService_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty content", func(t *testing.T) {
		f := newMessageService()

		_, err := f.svc.Send(ctx, 1, 2, "", nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		f.msgRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects oversized content", func(t *testing.T) {
		f := newMessageService()

		_, err := f.svc.Send(ctx, 1, 2, strings.Repeat("a", domain.MaxTextContentLen+1), nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		f.msgRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("accepts content at the limit", func(t *testing.T) {
		f := newMessageService()
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)
		f.msgRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)
		f.profiles.On("GetProfile", mock.Anything, int64(1)).Return(&domain.Profile{ID: 1, DisplayName: "Ann"}, nil)

		_, err := f.svc.Send(ctx, 1, 2, strings.Repeat("a", domain.MaxTextContentLen), nil)
		assert.NoError(t, err)
	})

	t.Run("rejects non-participant", func(t *testing.T) {
		f := newMessageService()
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(9)).Return(false, nil)

		_, err := f.svc.Send(ctx, 9, 2, "hi", nil)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		f.msgRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects reply to message in another conversation", func(t *testing.T) {
		f := newMessageService()
		replyTo := int64(11)
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)
		f.msgRepo.On("GetByID", mock.Anything, replyTo).Return(&domain.Message{ID: replyTo, ConversationID: 99}, nil)

		_, err := f.svc.Send(ctx, 1, 2, "hi", &replyTo)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("rejects reply to deleted message", func(t *testing.T) {
		f := newMessageService()
		replyTo := int64(11)
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)
		f.msgRepo.On("GetByID", mock.Anything, replyTo).Return(&domain.Message{ID: replyTo, ConversationID: 2, IsDeleted: true}, nil)

		_, err := f.svc.Send(ctx, 1, 2, "hi", &replyTo)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("committed message is fanned out with notification", func(t *testing.T) {
		f := newMessageService()
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)
		f.msgRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Message")).Run(func(args mock.Arguments) {
			m := args.Get(1).(*domain.Message)
			m.ID = 101
			m.CreatedAt = time.Now().UTC()
		}).Return(nil)
		f.profiles.On("GetProfile", mock.Anything, int64(1)).Return(&domain.Profile{ID: 1, DisplayName: "Ann"}, nil)

		m, err := f.svc.Send(ctx, 1, 2, "hello there", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(101), m.ID)
		assert.Equal(t, domain.MessageTypeText, m.Type)

		tasks := f.queue.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, int64(2), tasks[0].ConversationID)
		assert.True(t, tasks[0].Notify)
		assert.Equal(t, "hello there", tasks[0].Preview)

		event := tasks[0].Event.(map[string]any)
		assert.Equal(t, fanout.EventMessageNew, event["type"])
		assert.Equal(t, int64(101), event["message_id"])
		assert.Equal(t, "Ann", event["sender_name"])
	})

	t.Run("failed write enqueues nothing", func(t *testing.T) {
		f := newMessageService()
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)
		f.msgRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		_, err := f.svc.Send(ctx, 1, 2, "hi", nil)
		assert.Error(t, err)
		assert.Empty(t, f.queue.Tasks())
	})
}

func TestMessageService_SendFile(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects oversized caption", func(t *testing.T) {
		f := newMessageService()

		_, err := f.svc.SendFile(ctx, 1, 2, service.FileInput{
			Filename: "a.png",
			Reader:   strings.NewReader("data"),
		}, strings.Repeat("x", domain.MaxCaptionLen+1))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		f.storage.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("image content type yields an image message", func(t *testing.T) {
		f := newMessageService()
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)
		f.storage.On("Store", mock.Anything, "pic.png", mock.Anything).Return(&domain.StoredFile{
			URL: "/api/uploads/abc.png", Name: "pic.png", Size: 4,
		}, nil)
		f.msgRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)
		f.profiles.On("GetProfile", mock.Anything, int64(1)).Return(nil, nil)

		m, err := f.svc.SendFile(ctx, 1, 2, service.FileInput{
			Filename:    "pic.png",
			ContentType: "image/png",
			Reader:      strings.NewReader("data"),
		}, "look")
		require.NoError(t, err)
		assert.Equal(t, domain.MessageTypeImage, m.Type)
		require.NotNil(t, m.FileURL)
		assert.Equal(t, "/api/uploads/abc.png", *m.FileURL)

		tasks := f.queue.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, "sent an image", tasks[0].Preview)
	})

	t.Run("failed write cleans up the stored object", func(t *testing.T) {
		f := newMessageService()
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)
		f.storage.On("Store", mock.Anything, "doc.pdf", mock.Anything).Return(&domain.StoredFile{
			URL: "/api/uploads/doc.pdf", Name: "doc.pdf", Size: 9,
		}, nil)
		f.msgRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("constraint"))
		f.storage.On("Delete", mock.Anything, "/api/uploads/doc.pdf").Return(nil)

		_, err := f.svc.SendFile(ctx, 1, 2, service.FileInput{
			Filename:    "doc.pdf",
			ContentType: "application/pdf",
			Reader:      strings.NewReader("data"),
		}, "")
		assert.Error(t, err)
		f.storage.AssertCalled(t, "Delete", mock.Anything, "/api/uploads/doc.pdf")
		assert.Empty(t, f.queue.Tasks())
	})
}

func TestMessageService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("non-participant is rejected", func(t *testing.T) {
		f := newMessageService()
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(9)).Return(false, nil)

		_, err := f.svc.List(ctx, 9, 2, 0, 0, nil)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("page is returned oldest first with enrichment", func(t *testing.T) {
		f := newMessageService()
		now := time.Now().UTC()
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)
		// Storage order is newest first.
		f.msgRepo.On("ListForConversation", mock.Anything, int64(2), 50, 0, (*time.Time)(nil)).Return([]*domain.Message{
			{ID: 12, ConversationID: 2, SenderID: 3, Content: "second", Type: domain.MessageTypeText, CreatedAt: now},
			{ID: 11, ConversationID: 2, SenderID: 1, Content: "first", Type: domain.MessageTypeText, CreatedAt: now.Add(-time.Minute)},
		}, nil)
		f.reactRepo.On("ListForMessages", mock.Anything, []int64{11, 12}).Return(map[int64][]*domain.MessageReaction{
			12: {
				{MessageID: 12, UserID: 1, Reaction: "👍"},
				{MessageID: 12, UserID: 3, Reaction: "👍"},
				{MessageID: 12, UserID: 1, Reaction: "🎉"},
			},
		}, nil)
		f.readRepo.On("ReadByUser", mock.Anything, []int64{11, 12}, int64(1)).Return(map[int64]bool{11: true}, nil)
		f.profiles.On("GetProfiles", mock.Anything, mock.Anything).Return(map[int64]*domain.Profile{
			1: {ID: 1, DisplayName: "Ann"},
			3: {ID: 3, DisplayName: "Cal"},
		}, nil)

		views, err := f.svc.List(ctx, 1, 2, 0, 0, nil)
		require.NoError(t, err)
		require.Len(t, views, 2)

		assert.Equal(t, int64(11), views[0].ID)
		assert.Equal(t, int64(12), views[1].ID)
		assert.True(t, views[0].IsReadByUser)
		assert.False(t, views[1].IsReadByUser)

		require.Len(t, views[1].Reactions, 2)
		assert.Equal(t, "👍", views[1].Reactions[0].Reaction)
		assert.Equal(t, 2, views[1].Reactions[0].Count)
		assert.Equal(t, "🎉", views[1].Reactions[1].Reaction)
		assert.Equal(t, 1, views[1].Reactions[1].Count)
	})

	t.Run("reply target outside the page is resolved", func(t *testing.T) {
		f := newMessageService()
		replyTo := int64(5)
		f.partRepo.On("IsParticipant", mock.Anything, int64(2), int64(1)).Return(true, nil)
		f.msgRepo.On("ListForConversation", mock.Anything, int64(2), 50, 0, (*time.Time)(nil)).Return([]*domain.Message{
			{ID: 20, ConversationID: 2, SenderID: 1, Content: "re", Type: domain.MessageTypeText, ReplyToID: &replyTo},
		}, nil)
		f.msgRepo.On("GetByID", mock.Anything, replyTo).Return(&domain.Message{
			ID: 5, ConversationID: 2, SenderID: 3, Content: domain.DeletedPlaceholder, Type: domain.MessageTypeText, IsDeleted: true,
		}, nil)
		f.reactRepo.On("ListForMessages", mock.Anything, []int64{20}).Return(map[int64][]*domain.MessageReaction{}, nil)
		f.readRepo.On("ReadByUser", mock.Anything, []int64{20}, int64(1)).Return(map[int64]bool{}, nil)
		f.profiles.On("GetProfiles", mock.Anything, mock.Anything).Return(map[int64]*domain.Profile{}, nil)

		views, err := f.svc.List(ctx, 1, 2, 0, 0, nil)
		require.NoError(t, err)
		require.Len(t, views, 1)
		require.NotNil(t, views[0].ReplyTo)
		assert.True(t, views[0].ReplyTo.IsDeleted)
		assert.Equal(t, domain.DeletedPlaceholder, views[0].ReplyTo.Content)
	})
}

func TestMessageService_Edit(t *testing.T) {
	ctx := context.Background()

	t.Run("editing another user's message looks like not found", func(t *testing.T) {
		f := newMessageService()
		f.msgRepo.On("GetByID", mock.Anything, int64(7)).Return(&domain.Message{
			ID: 7, ConversationID: 2, SenderID: 3, Type: domain.MessageTypeText,
		}, nil)

		_, err := f.svc.Edit(ctx, 1, 7, "new text")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("deleted message cannot be edited", func(t *testing.T) {
		f := newMessageService()
		f.msgRepo.On("GetByID", mock.Anything, int64(7)).Return(&domain.Message{
			ID: 7, ConversationID: 2, SenderID: 1, Type: domain.MessageTypeText, IsDeleted: true,
		}, nil)

		_, err := f.svc.Edit(ctx, 1, 7, "new text")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("file message cannot be edited", func(t *testing.T) {
		f := newMessageService()
		f.msgRepo.On("GetByID", mock.Anything, int64(7)).Return(&domain.Message{
			ID: 7, ConversationID: 2, SenderID: 1, Type: domain.MessageTypeFile,
		}, nil)

		_, err := f.svc.Edit(ctx, 1, 7, "new text")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("successful edit broadcasts the update", func(t *testing.T) {
		f := newMessageService()
		f.msgRepo.On("GetByID", mock.Anything, int64(7)).Return(&domain.Message{
			ID: 7, ConversationID: 2, SenderID: 1, Content: "old", Type: domain.MessageTypeText,
		}, nil)
		f.msgRepo.On("UpdateContent", mock.Anything, int64(7), "new text").Return(nil)

		m, err := f.svc.Edit(ctx, 1, 7, "new text")
		require.NoError(t, err)
		assert.Equal(t, "new text", m.Content)

		tasks := f.queue.Tasks()
		require.Len(t, tasks, 1)
		event := tasks[0].Event.(map[string]any)
		assert.Equal(t, fanout.EventMessageUpdated, event["type"])
		assert.Equal(t, "new text", event["content"])
		assert.False(t, tasks[0].Notify)
	})
}

func TestMessageService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("double delete looks like not found", func(t *testing.T) {
		f := newMessageService()
		f.msgRepo.On("GetByID", mock.Anything, int64(7)).Return(&domain.Message{
			ID: 7, ConversationID: 2, SenderID: 1, IsDeleted: true,
		}, nil)

		err := f.svc.Delete(ctx, 1, 7)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("successful delete broadcasts the tombstone", func(t *testing.T) {
		f := newMessageService()
		f.msgRepo.On("GetByID", mock.Anything, int64(7)).Return(&domain.Message{
			ID: 7, ConversationID: 2, SenderID: 1, Content: "secret", Type: domain.MessageTypeText,
		}, nil)
		f.msgRepo.On("SoftDelete", mock.Anything, int64(7)).Return(nil)

		err := f.svc.Delete(ctx, 1, 7)
		require.NoError(t, err)

		tasks := f.queue.Tasks()
		require.Len(t, tasks, 1)
		event := tasks[0].Event.(map[string]any)
		assert.Equal(t, fanout.EventMessageDeleted, event["type"])
		assert.Equal(t, domain.DeletedPlaceholder, event["content"])
	})
}
