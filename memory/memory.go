// Package memory stores conversation history for "memory" steps.
//
// A [Store] keeps an ordered list of messages per session key. [Conversation]
// keeps everything in process, [NewBuffer] keeps only the most recent
// messages and [RedisStore] shares history between processes.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultBufferSize is the message limit of NewBuffer when size is not positive.
const DefaultBufferSize = 10

// Roles used by the memory step.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one conversation entry.
type Message struct {
	Role    string    `yaml:"role" json:"role"`
	Content string    `yaml:"content" json:"content"`
	Time    time.Time `yaml:"time" json:"time"`
}

// Store persists messages per session key.
type Store interface {
	Append(ctx context.Context, key string, msg Message) error
	Messages(ctx context.Context, key string) ([]Message, error)
	Clear(ctx context.Context, key string) error
}

// Transcript renders messages as "role: content" lines.
func Transcript(msgs []Message) string {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = fmt.Sprintf("%s: %s", m.Role, m.Content)
	}
	return strings.Join(lines, "\n")
}

// -----------------------------------------------------------------------------
// Conversation - in-process Store
// -----------------------------------------------------------------------------

// Conversation is an in-process Store. With a positive limit only the most
// recent limit messages are kept per key.
type Conversation struct {
	mu       sync.RWMutex
	limit    int
	messages map[string][]Message
}

var _ Store = (*Conversation)(nil)

// NewConversation creates an unbounded Conversation.
func NewConversation() *Conversation {
	return &Conversation{messages: make(map[string][]Message)}
}

// NewBuffer creates a Conversation that keeps the last size messages.
func NewBuffer(size int) *Conversation {
	if size <= 0 {
		size = DefaultBufferSize
	}
	c := NewConversation()
	c.limit = size
	return c
}

// Limit returns the per-key message limit, or 0 when unbounded.
func (c *Conversation) Limit() int {
	return c.limit
}

// Append implements Store.
func (c *Conversation) Append(_ context.Context, key string, msg Message) error {
	if msg.Time.IsZero() {
		msg.Time = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := append(c.messages[key], msg)
	if c.limit > 0 && len(msgs) > c.limit {
		msgs = append([]Message(nil), msgs[len(msgs)-c.limit:]...)
	}
	c.messages[key] = msgs
	return nil
}

// Messages implements Store. The returned slice is a copy.
func (c *Conversation) Messages(_ context.Context, key string) ([]Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Message(nil), c.messages[key]...), nil
}

// Clear implements Store.
func (c *Conversation) Clear(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.messages, key)
	return nil
}
