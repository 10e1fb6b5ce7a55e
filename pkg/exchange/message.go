package exchange

import (
	"sync"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is an immutable entry of the MessageLog.
type Message struct {
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Sequence  int       `json:"sequence" yaml:"sequence"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// MessageLog is an append-only sequence of messages. Insertion order is display
// order; sequence numbers start at 0 and strictly increase.
type MessageLog struct {
	mu       sync.RWMutex
	messages []Message
	next     int
	now      func() time.Time
}

func NewMessageLog() *MessageLog {
	return &MessageLog{now: time.Now}
}

// Append stores a new message and returns it with its assigned sequence number.
func (l *MessageLog) Append(role Role, content string) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now
	if l.now != nil {
		now = l.now
	}
	msg := Message{
		Role:      role,
		Content:   content,
		Sequence:  l.next,
		CreatedAt: now(),
	}
	l.next++
	l.messages = append(l.messages, msg)
	return msg
}

// Messages returns a copy of the log.
func (l *MessageLog) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Last returns the most recent message with the given role.
func (l *MessageLog) Last(role Role) (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].Role == role {
			return l.messages[i], true
		}
	}
	return Message{}, false
}
