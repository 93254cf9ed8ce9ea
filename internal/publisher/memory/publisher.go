// Package memory keeps published job events in process for local runs and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// DefaultLimit is how many recent messages New retains.
const DefaultLimit = 1000

// Publisher stores the most recent published payloads for inspection.
type Publisher struct {
	mu       sync.RWMutex
	limit    int
	seq      int
	messages []PublishedMessage
}

// PublishedMessage captures one publish call with its JSON encoding.
type PublishedMessage struct {
	ID      string
	Topic   string
	Payload any
	Data    []byte
}

// New returns a memory Publisher that keeps the last DefaultLimit messages.
func New() *Publisher {
	return NewWithLimit(DefaultLimit)
}

// NewWithLimit returns a memory Publisher that keeps the last limit messages.
func NewWithLimit(limit int) *Publisher {
	if limit < 1 {
		limit = 1
	}
	return &Publisher{limit: limit}
}

// Publish encodes the payload as JSON, as the Pub/Sub publisher would, and
// records it.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	id := fmt.Sprintf("memory-%d", p.seq)
	if len(p.messages) >= p.limit {
		n := copy(p.messages, p.messages[len(p.messages)-p.limit+1:])
		clear(p.messages[n:])
		p.messages = p.messages[:n]
	}
	p.messages = append(p.messages, PublishedMessage{ID: id, Topic: topic, Payload: payload, Data: data})
	return id, nil
}

// Messages returns the retained publishes, oldest first.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}
