package chat

import (
	"sync"

	"github.com/Daffaariff/nawatech-chatbot/internal/evaluation"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn. Assistant messages carry the evaluation of the
// answer for the display layer.
type Message struct {
	Role       string                 `json:"role"`
	Content    string                 `json:"content"`
	Evaluation *evaluation.Evaluation `json:"evaluation,omitempty"`
}

// History is a bounded FIFO message list owned by one chat session. When the
// cap is exceeded the oldest messages are evicted first. Mutations are
// serialized so eviction order stays correct if a session is ever driven
// concurrently.
type History struct {
	mu       sync.Mutex
	messages []Message
	maxLen   int
}

func NewHistory(maxLen int) *History {
	if maxLen <= 0 {
		maxLen = 20
	}
	return &History{maxLen: maxLen}
}

func (h *History) Add(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, message)
	if len(h.messages) > h.maxLen {
		h.messages = h.messages[len(h.messages)-h.maxLen:]
	}
}

// Messages returns a copy of the current history, oldest first.
func (h *History) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.messages)
}
