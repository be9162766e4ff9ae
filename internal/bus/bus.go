// Package bus is the in-process reconciliation bus. Notifications are cache
// invalidation signals: they are delivered synchronously to the subscribers
// present at publish time and are never stored.
package bus

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"staffplan-backend/internal/model"
)

// Topic names a class of change.
type Topic string

const (
	TopicStatusChanged        Topic = "status-changed"
	TopicWorkAreasChanged     Topic = "work-areas-changed"
	TopicConfigurationChanged Topic = "configuration-changed"
	TopicAssignmentsChanged   Topic = "assignments-changed"
)

// Topics lists every topic.
var Topics = []Topic{TopicStatusChanged, TopicWorkAreasChanged, TopicConfigurationChanged, TopicAssignmentsChanged}

// Notification is the payload carried by every topic. Fields that do not
// apply to a topic are left empty.
type Notification struct {
	Topic      Topic        `json:"topic"`
	EventID    string       `json:"event_id"`
	EmployeeID string       `json:"employee_id,omitempty"`
	Status     model.Status `json:"status,omitempty"`
	Kind       string       `json:"kind,omitempty"`
	Count      int          `json:"count,omitempty"`
	Origin     string       `json:"origin"`
	At         time.Time    `json:"at"`
}

// Handler receives notifications.
type Handler func(Notification)

// MetricsRecorder counts published notifications.
type MetricsRecorder interface {
	RecordPublish(topic string)
}

type subscriber struct {
	topic   Topic
	all     bool
	handler Handler
}

// Bus fans notifications out to subscribers.
type Bus struct {
	id          string
	subscribers *xsync.Map[uint64, *subscriber]
	nextID      atomic.Uint64
	logger      *zap.Logger
	metrics     MetricsRecorder
}

// New creates a bus with a fresh origin id.
func New(logger *zap.Logger, metrics MetricsRecorder) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		id:          uuid.NewString(),
		subscribers: xsync.NewMap[uint64, *subscriber](),
		logger:      logger,
		metrics:     metrics,
	}
}

// ID is the origin stamped on locally published notifications.
func (b *Bus) ID() string {
	return b.id
}

// Subscribe registers handler for one topic and returns its unsubscribe func.
func (b *Bus) Subscribe(topic Topic, handler Handler) func() {
	return b.add(&subscriber{topic: topic, handler: handler})
}

// SubscribeAll registers handler for every topic.
func (b *Bus) SubscribeAll(handler Handler) func() {
	return b.add(&subscriber{all: true, handler: handler})
}

func (b *Bus) add(sub *subscriber) func() {
	id := b.nextID.Add(1)
	b.subscribers.Store(id, sub)
	return func() {
		b.subscribers.Delete(id)
	}
}

// Publish delivers n on topic to every current subscriber.
func (b *Bus) Publish(topic Topic, n Notification) {
	n.Topic = topic
	if n.Origin == "" {
		n.Origin = b.id
	}
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	if b.metrics != nil {
		b.metrics.RecordPublish(string(topic))
	}

	b.subscribers.Range(func(_ uint64, sub *subscriber) bool {
		if sub.all || sub.topic == topic {
			b.deliver(sub, n)
		}
		return true
	})
}

func (b *Bus) deliver(sub *subscriber, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus handler panicked",
				zap.String("topic", string(n.Topic)),
				zap.String("event_id", n.EventID),
				zap.Any("panic", r))
		}
	}()
	sub.handler(n)
}
