package fanout

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"chatcore/internal/domain"
)

// Outbound event kinds pushed to conversation subscribers.
const (
	EventMessageNew      = "message:new"
	EventMessageUpdated  = "message:updated"
	EventMessageDeleted  = "message:deleted"
	EventReactionAdded   = "message:reaction:added"
	EventReactionRemoved = "message:reaction:removed"
)

// Task is one unit of post-commit fan-out work. It is issued only after the
// originating transaction has committed; its failure never affects the
// outcome already returned to the writer.
type Task struct {
	ConversationID int64
	SenderID       int64
	Event          any
	// Notify asks for one notification per non-muted participant other
	// than the sender, with Preview as the body.
	Notify  bool
	Preview string
}

// Queue is the narrow enqueue interface the write path depends on.
type Queue interface {
	Enqueue(t Task)
}

// Dispatcher consumes fan-out tasks from a bounded queue: it broadcasts the
// event to the conversation's subscribers and, when asked, creates
// per-participant notifications through the external store.
type Dispatcher struct {
	registry      *Registry
	participants  domain.ParticipantRepository
	notifications domain.NotificationStore
	profiles      domain.ProfileDirectory

	tasks       chan Task
	maxAttempts int

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewDispatcher(
	registry *Registry,
	participants domain.ParticipantRepository,
	notifications domain.NotificationStore,
	profiles domain.ProfileDirectory,
	queueSize int,
	maxAttempts int,
) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Dispatcher{
		registry:      registry,
		participants:  participants,
		notifications: notifications,
		profiles:      profiles,
		tasks:         make(chan Task, queueSize),
		maxAttempts:   maxAttempts,
	}
}

var _ Queue = (*Dispatcher)(nil)

// Start launches the worker goroutine.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for t := range d.tasks {
			d.process(t)
		}
	}()
}

// Close drains the queue and stops the worker.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.tasks)
	})
	d.wg.Wait()
}

// Enqueue hands a task to the worker without blocking the write path. A full
// queue drops the task with a log line; the durable write already succeeded.
func (d *Dispatcher) Enqueue(t Task) {
	select {
	case d.tasks <- t:
	default:
		log.Printf("fanout: queue full, dropping task for conversation %d", t.ConversationID)
	}
}

func (d *Dispatcher) process(t Task) {
	if t.Event != nil {
		d.registry.Broadcast(t.ConversationID, t.Event)
	}
	if t.Notify {
		d.notifyParticipants(t)
	}
}

func (d *Dispatcher) notifyParticipants(t Task) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	participants, err := d.participants.ListForConversation(ctx, t.ConversationID)
	if err != nil {
		log.Printf("fanout: list participants for conversation %d: %v", t.ConversationID, err)
		return
	}

	title := "New message"
	if sender, err := d.profiles.GetProfile(ctx, t.SenderID); err == nil && sender != nil {
		title = fmt.Sprintf("New message from %s", sender.DisplayName)
	}

	for _, p := range participants {
		if p.UserID == t.SenderID || p.IsMuted {
			continue
		}
		n := &domain.Notification{
			RecipientID: p.UserID,
			Type:        "message",
			SenderID:    t.SenderID,
			RelatedID:   t.ConversationID,
			Title:       title,
			Body:        t.Preview,
		}
		if err := d.createWithRetry(ctx, n); err != nil {
			log.Printf("fanout: notify user %d for conversation %d: %v", p.UserID, t.ConversationID, err)
		}
	}
}

func (d *Dispatcher) createWithRetry(ctx context.Context, n *domain.Notification) error {
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err = d.notifications.CreateNotification(ctx, n); err == nil {
			return nil
		}
		if attempt < d.maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
	}
	return err
}
