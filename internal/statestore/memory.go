// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package statestore

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Memory is an in-process KV used for tests and single-node runs.
// Expiry is evaluated lazily on read, so an idle counter decays to
// "missing" once its window elapses without a sweeper goroutine.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	nowFunc func() time.Time // for testing
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		nowFunc: time.Now,
	}
}

// SetNowFunc overrides the time source (for testing).
func (m *Memory) SetNowFunc(fn func() time.Time) {
	m.mu.Lock()
	m.nowFunc = fn
	m.mu.Unlock()
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.liveEntry(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) SetWithTTL(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.nowFunc().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	if e, ok := m.liveEntry(key); ok {
		count, _ = strconv.ParseInt(e.value, 10, 64)
	}
	count++

	e := memoryEntry{value: strconv.FormatInt(count, 10)}
	if ttl > 0 {
		e.expiresAt = m.nowFunc().Add(ttl)
	}
	m.entries[key] = e
	return count, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

func (m *Memory) Close() error { return nil }

// liveEntry returns the entry for key, dropping it if expired.
// Caller must hold m.mu.
func (m *Memory) liveEntry(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !m.nowFunc().Before(e.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}
