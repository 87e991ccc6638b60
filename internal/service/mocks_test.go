package service_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"chatcore/internal/domain"
	"chatcore/internal/fanout"
)

type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) Create(ctx context.Context, c *domain.Conversation, participantIDs []int64) error {
	args := m.Called(ctx, c, participantIDs)
	return args.Error(0)
}

func (m *MockConversationRepo) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) FindDirect(ctx context.Context, userA, userB int64) (*domain.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.Conversation, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) SetArchived(ctx context.Context, id int64, archived bool) error {
	args := m.Called(ctx, id, archived)
	return args.Error(0)
}

type MockParticipantRepo struct {
	mock.Mock
}

func (m *MockParticipantRepo) ListForConversation(ctx context.Context, conversationID int64) ([]*domain.Participant, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Participant), args.Error(1)
}

func (m *MockParticipantRepo) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockParticipantRepo) SetMuted(ctx context.Context, conversationID, userID int64, muted bool) error {
	args := m.Called(ctx, conversationID, userID, muted)
	return args.Error(0)
}

func (m *MockParticipantRepo) Delete(ctx context.Context, conversationID, userID int64) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *MockParticipantRepo) AdvanceLastRead(ctx context.Context, conversationID, userID int64, t time.Time) error {
	args := m.Called(ctx, conversationID, userID, t)
	return args.Error(0)
}

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListForConversation(ctx context.Context, conversationID int64, limit, offset int, before *time.Time) ([]*domain.Message, error) {
	args := m.Called(ctx, conversationID, limit, offset, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) LatestForConversation(ctx context.Context, conversationID int64) (*domain.Message, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) UpdateContent(ctx context.Context, id int64, content string) error {
	args := m.Called(ctx, id, content)
	return args.Error(0)
}

func (m *MockMessageRepo) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMessageRepo) CountUnread(ctx context.Context, conversationID, userID int64) (int, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Int(0), args.Error(1)
}

type MockReactionRepo struct {
	mock.Mock
}

func (m *MockReactionRepo) Add(ctx context.Context, r *domain.MessageReaction) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReactionRepo) Remove(ctx context.Context, messageID, userID int64, reaction string) error {
	args := m.Called(ctx, messageID, userID, reaction)
	return args.Error(0)
}

func (m *MockReactionRepo) ListForMessages(ctx context.Context, messageIDs []int64) (map[int64][]*domain.MessageReaction, error) {
	args := m.Called(ctx, messageIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64][]*domain.MessageReaction), args.Error(1)
}

type MockReadRepo struct {
	mock.Mock
}

func (m *MockReadRepo) MarkRead(ctx context.Context, messageID, userID int64, at time.Time) (bool, error) {
	args := m.Called(ctx, messageID, userID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockReadRepo) MarkAllRead(ctx context.Context, conversationID, userID int64) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *MockReadRepo) ReadByUser(ctx context.Context, messageIDs []int64, userID int64) (map[int64]bool, error) {
	args := m.Called(ctx, messageIDs, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]bool), args.Error(1)
}

type MockConnectionChecker struct {
	mock.Mock
}

func (m *MockConnectionChecker) IsConnected(ctx context.Context, userA, userB int64) (bool, error) {
	args := m.Called(ctx, userA, userB)
	return args.Bool(0), args.Error(1)
}

type MockProfileDirectory struct {
	mock.Mock
}

func (m *MockProfileDirectory) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileDirectory) GetProfiles(ctx context.Context, userIDs []int64) (map[int64]*domain.Profile, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]*domain.Profile), args.Error(1)
}

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Store(ctx context.Context, name string, r io.Reader) (*domain.StoredFile, error) {
	args := m.Called(ctx, name, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StoredFile), args.Error(1)
}

func (m *MockObjectStorage) Delete(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

// recordingQueue captures enqueued fan-out tasks for assertions.
type recordingQueue struct {
	mu    sync.Mutex
	tasks []fanout.Task
}

func (q *recordingQueue) Enqueue(t fanout.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
}

func (q *recordingQueue) Tasks() []fanout.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]fanout.Task(nil), q.tasks...)
}
