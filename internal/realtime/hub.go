package realtime

import (
	"context"
	"sync"
	"time"
)

// Message is one event delivered on a topic.
type Message struct {
	Topic  string    `json:"topic"`
	Event  string    `json:"event"`
	Data   any       `json:"data"`
	SentAt time.Time `json:"sentAt"`
}

const defaultBuffer = 8

// Hub fans topic messages out to in-process subscribers. The last message of
// every topic is kept and replayed to new subscribers.
type Hub struct {
	now    func() time.Time
	buffer int

	mu     sync.Mutex
	subs   map[string]map[chan Message]struct{}
	latest map[string]Message
	evict  map[string]struct{}
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		now:    time.Now,
		buffer: buffer,
		subs:   make(map[string]map[chan Message]struct{}),
		latest: make(map[string]Message),
		evict:  make(map[string]struct{}),
	}
}

// EvictOn marks events that close a topic: they are still delivered, but the
// topic's stored snapshot is dropped instead of replaced.
func (h *Hub) EvictOn(events ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range events {
		h.evict[e] = struct{}{}
	}
}

// Broadcast publishes payload on topic to every local subscriber.
func (h *Hub) Broadcast(_ context.Context, topic, event string, payload any) error {
	h.Deliver(Message{Topic: topic, Event: event, Data: payload, SentAt: h.now()})
	return nil
}

// Deliver hands an already built message to subscribers. Slow subscribers
// lose their oldest pending message instead of blocking the sender.
func (h *Hub) Deliver(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, closing := h.evict[msg.Event]; closing {
		delete(h.latest, msg.Topic)
	} else {
		h.latest[msg.Topic] = msg
	}
	for ch := range h.subs[msg.Topic] {
		select {
		case ch <- msg:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- msg
		}
	}
}

// Subscribe returns one channel carrying messages from all given topics. The
// caller must invoke cancel to release it.
func (h *Hub) Subscribe(topics ...string) (<-chan Message, func()) {
	ch := make(chan Message, h.buffer+len(topics))

	h.mu.Lock()
	for _, topic := range topics {
		set, ok := h.subs[topic]
		if !ok {
			set = make(map[chan Message]struct{})
			h.subs[topic] = set
		}
		set[ch] = struct{}{}
		if last, ok := h.latest[topic]; ok {
			ch <- last
		}
	}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			for _, topic := range topics {
				if set, ok := h.subs[topic]; ok {
					delete(set, ch)
					if len(set) == 0 {
						delete(h.subs, topic)
					}
				}
			}
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Subscribers reports how many channels listen on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topic])
}
