// Package store provides document stores for jsonedit sessions.
package store

import (
	"context"
	"sync"
)

// Memory keeps the document text in memory and tells subscribers about every
// replacement.
type Memory struct {
	mu     sync.RWMutex
	text   []byte
	subs   map[int]func([]byte)
	nextID int
}

func NewMemory(text []byte) *Memory {
	return &Memory{text: append([]byte(nil), text...), subs: map[int]func([]byte){}}
}

func (m *Memory) Contents(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.text...), nil
}

func (m *Memory) SetContents(ctx context.Context, text []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.text = append([]byte(nil), text...)
	subs := make([]func([]byte), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(append([]byte(nil), text...))
	}
	return nil
}

// Subscribe registers fn to receive each new text. The returned func
// unregisters it.
func (m *Memory) Subscribe(fn func([]byte)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}
