package fanout

import (
	"log"
	"sync"
)

// Subscriber is one connected client able to receive conversation events.
type Subscriber interface {
	// Send pushes one event to the client. Implementations must be safe for
	// concurrent use.
	Send(event any) error
}

// Registry tracks which subscribers are watching which conversation. The
// membership is ephemeral, in-memory only, and is rebuilt by clients on
// reconnect.
type Registry struct {
	mu sync.RWMutex
	// conversation id -> subscriber set
	subs map[int64]map[Subscriber]struct{}
	// reverse index for pruning on disconnect
	convs map[Subscriber]map[int64]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		subs:  make(map[int64]map[Subscriber]struct{}),
		convs: make(map[Subscriber]map[int64]struct{}),
	}
}

// Subscribe adds s to the conversation's channel.
func (r *Registry) Subscribe(conversationID int64, s Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.subs[conversationID] == nil {
		r.subs[conversationID] = make(map[Subscriber]struct{})
	}
	r.subs[conversationID][s] = struct{}{}

	if r.convs[s] == nil {
		r.convs[s] = make(map[int64]struct{})
	}
	r.convs[s][conversationID] = struct{}{}
}

// Unsubscribe removes s from the conversation's channel.
func (r *Registry) Unsubscribe(conversationID int64, s Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(conversationID, s)
}

// Drop removes s from every conversation it subscribed to. Called on
// disconnect.
func (r *Registry) Drop(s Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for convID := range r.convs[s] {
		r.removeLocked(convID, s)
	}
}

func (r *Registry) removeLocked(conversationID int64, s Subscriber) {
	if set, ok := r.subs[conversationID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(r.subs, conversationID)
		}
	}
	if set, ok := r.convs[s]; ok {
		delete(set, conversationID)
		if len(set) == 0 {
			delete(r.convs, s)
		}
	}
}

// SubscriberCount returns the number of subscribers on a conversation.
func (r *Registry) SubscriberCount(conversationID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[conversationID])
}

// Broadcast delivers the event to every current subscriber of the
// conversation. Zero subscribers is a no-op. Send failures are logged and do
// not interrupt delivery to the remaining subscribers.
func (r *Registry) Broadcast(conversationID int64, event any) {
	r.mu.RLock()
	targets := make([]Subscriber, 0, len(r.subs[conversationID]))
	for s := range r.subs[conversationID] {
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	for _, s := range targets {
		if err := s.Send(event); err != nil {
			log.Printf("fanout: broadcast to subscriber on conversation %d: %v", conversationID, err)
		}
	}
}
