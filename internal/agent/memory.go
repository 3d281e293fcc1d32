package agent

import "sync"

const DefaultMemoryWindow = 50

// Memory is a bounded conversation buffer of user inputs and final
// assistant replies. The oldest messages are dropped once the window is
// full, and the buffer always opens with a user message.
type Memory struct {
	mu       sync.Mutex
	window   int
	messages []Message
}

func NewMemory(window int, seed ...Message) *Memory {
	if window <= 0 {
		window = DefaultMemoryWindow
	}
	m := &Memory{window: window}
	m.Add(seed...)
	return m
}

func (m *Memory) Add(messages ...Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, messages...)
	if overflow := len(m.messages) - m.window; overflow > 0 {
		m.messages = append([]Message(nil), m.messages[overflow:]...)
	}

	// Providers reject a conversation that does not open with a user turn.
	start := 0
	for start < len(m.messages) && m.messages[start].Role != RoleUser {
		start++
	}
	m.messages = m.messages[start:]
}

// Messages returns a copy of the buffered messages, oldest first.
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Message(nil), m.messages...)
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.messages)
}

func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = nil
}
