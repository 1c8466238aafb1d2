package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SentEvent is published after an automated message has been delivered and
// recorded. Downstream consumers (push notifications, creator dashboards)
// subscribe to these; the send ledger, not the queue, is the source of truth,
// so a lost event is an observability gap rather than a correctness bug.
type SentEvent struct {
	EventID       string    `json:"event_id"`
	AutoMessageID int       `json:"auto_message_id"`
	CreatorID     int       `json:"creator_id"`
	SubscriberID  int       `json:"subscriber_id"`
	ChatMessageID int       `json:"chat_message_id"`
	SentAt        time.Time `json:"sent_at"`
}

// NewSentEvent builds an event with a fresh uuid.
func NewSentEvent(autoMessageID, creatorID, subscriberID, chatMessageID int, sentAt time.Time) SentEvent {
	return SentEvent{
		EventID:       uuid.NewString(),
		AutoMessageID: autoMessageID,
		CreatorID:     creatorID,
		SubscriberID:  subscriberID,
		ChatMessageID: chatMessageID,
		SentAt:        sentAt,
	}
}

// Publisher sends events to a topic.
type Publisher interface {
	Publish(topic string, event SentEvent) error
}

// InMemoryQueue is a process-local Publisher used in tests and local runs.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(SentEvent)
	events   map[string][]SentEvent
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(SentEvent)),
		events:   make(map[string][]SentEvent),
	}
}

func (q *InMemoryQueue) Publish(topic string, event SentEvent) error {
	q.mu.Lock()
	q.events[topic] = append(q.events[topic], event)
	handlers := append([]func(SentEvent){}, q.handlers[topic]...)
	q.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

func (q *InMemoryQueue) Subscribe(topic string, handler func(SentEvent)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
}

// Events returns a copy of everything published to a topic.
func (q *InMemoryQueue) Events(topic string) []SentEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]SentEvent{}, q.events[topic]...)
}

var _ Publisher = (*InMemoryQueue)(nil)
