// Package storage adapts external key-value byte stores for snapshot
// persistence. The engine only ever sees the Provider surface.
package storage

import "chat-sync/errors"

// Provider is the contract a persistence collaborator must satisfy:
// getItem/setItem/removeItem over opaque byte values. Absence is signalled
// with errors.ErrNotFound rather than a nil value.
type Provider interface {
	GetItem(key string) ([]byte, error)
	SetItem(key string, value []byte) error
	RemoveItem(key string) error
}

// Memory is an in-process Provider used by tests and as a fallback when no
// durable store is configured.
type Memory struct {
	items map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) GetItem(key string) ([]byte, error) {
	value, ok := m.items[key]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *Memory) SetItem(key string, value []byte) error {
	m.items[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) RemoveItem(key string) error {
	delete(m.items, key)
	return nil
}
