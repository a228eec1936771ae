// Package cache содержит кэш результатов чтения с ограниченным временем жизни.
package cache

import (
	"context"
	"sync"
	"time"
)

// sweepEvery задаёт, через сколько записей Memory удаляет устаревшие элементы.
const sweepEvery = 256

// Cache хранит сериализованные результаты запросов.
// Generation растёт при каждой инвалидации; ключи записей включают поколение,
// поэтому значение, загруженное до записи, не читается после неё.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Generation(ctx context.Context) (int64, error)
	Invalidate(ctx context.Context) error
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory хранит кэш в памяти процесса, когда Redis не настроен.
type Memory struct {
	mu         sync.Mutex
	items      map[string]entry
	generation int64
	sets       int
	now        func() time.Time
}

// NewMemory создаёт пустой кэш в памяти.
func NewMemory() *Memory {
	return &Memory{
		items: map[string]entry{},
		now:   time.Now,
	}
}

// Get возвращает значение, если оно есть и не устарело. Устаревший элемент удаляется.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if m.now().After(e.expiresAt) {
		delete(m.items, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set сохраняет значение на время ttl.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sets++
	if m.sets%sweepEvery == 0 {
		m.sweepLocked()
	}

	m.items[key] = entry{
		value:     value,
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

// sweepLocked удаляет устаревшие элементы. Вызывается под m.mu.
func (m *Memory) sweepLocked() {
	now := m.now()
	for key, e := range m.items {
		if now.After(e.expiresAt) {
			delete(m.items, key)
		}
	}
}

// Generation возвращает текущее поколение кэша.
func (m *Memory) Generation(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation, nil
}

// Invalidate переводит кэш на новое поколение и освобождает все элементы.
func (m *Memory) Invalidate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	clear(m.items)
	return nil
}
