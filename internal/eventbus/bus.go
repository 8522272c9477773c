// Package eventbus carries session lifecycle and download-capture events
// between the driver and observers (the /events websocket feed, tests).
package eventbus

import (
	"log"
	"sync"
	"time"
)

// Topic identifies a logical channel on the bus.
type Topic string

const (
	TopicSessionNavigated Topic = "session.navigated"
	TopicSessionInput     Topic = "session.input"
	TopicSessionButton    Topic = "session.button"
	TopicProgramInjected  Topic = "program.injected"
	TopicDownloadCaptured Topic = "download.captured"
)

// Source describes which component produced an event.
type Source string

const (
	SourceDriver    Source = "driver"
	SourceDownloads Source = "downloads"
	SourceRouter    Source = "router"
	SourceUnknown   Source = "unknown"
)

// Envelope wraps one published event.
type Envelope struct {
	Topic     Topic     `json:"topic"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// Bus is a topic-based publish/subscribe hub. Delivery is best effort: a
// subscriber whose buffer is full loses the event, with a logged warning, so
// a stalled observer can never block a driver operation.
type Bus struct {
	logger      *log.Logger
	mu          sync.RWMutex
	subscribers map[Topic]map[uint64]*Subscription
	nextID      uint64
}

// defaultBuffer is the per-subscription channel depth.
const defaultBuffer = 64

// New constructs an empty bus.
func New() *Bus {
	return &Bus{
		logger:      log.Default(),
		subscribers: make(map[Topic]map[uint64]*Subscription),
	}
}

// Publish sends an event to all subscribers of the topic. A nil bus accepts
// and drops everything, so components can publish unconditionally.
func (b *Bus) Publish(topic Topic, source Source, payload any) {
	if b == nil || topic == "" {
		return
	}
	env := Envelope{
		Topic:     topic,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers[topic] {
		select {
		case sub.ch <- env:
		default:
			b.logger.Printf("[EventBus] dropping %s event for slow subscriber", topic)
		}
	}
}

// Subscription is one subscriber's feed. Close it when done; the channel is
// closed on Close and on bus shutdown.
type Subscription struct {
	bus       *Bus
	topics    []Topic
	id        uint64
	ch        chan Envelope
	closeOnce sync.Once
}

// C returns the event channel.
func (s *Subscription) C() <-chan Envelope { return s.ch }

// Close detaches the subscription from the bus and closes its channel.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		if s.bus != nil {
			s.bus.mu.Lock()
			for _, topic := range s.topics {
				delete(s.bus.subscribers[topic], s.id)
			}
			s.bus.mu.Unlock()
		}
		close(s.ch)
	})
}

// Subscribe registers for one or more topics on a single channel. A nil bus
// returns a subscription whose channel is already closed.
func (b *Bus) Subscribe(topics ...Topic) *Subscription {
	if b == nil {
		ch := make(chan Envelope)
		close(ch)
		sub := &Subscription{ch: ch}
		sub.closeOnce.Do(func() {})
		return sub
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{
		bus:    b,
		topics: topics,
		id:     b.nextID,
		ch:     make(chan Envelope, defaultBuffer),
	}
	for _, topic := range topics {
		if b.subscribers[topic] == nil {
			b.subscribers[topic] = make(map[uint64]*Subscription)
		}
		b.subscribers[topic][sub.id] = sub
	}
	return sub
}

// AllTopics lists every topic the bus knows about, for observers that want
// the full feed.
func AllTopics() []Topic {
	return []Topic{
		TopicSessionNavigated,
		TopicSessionInput,
		TopicSessionButton,
		TopicProgramInjected,
		TopicDownloadCaptured,
	}
}
