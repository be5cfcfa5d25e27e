package session

import (
	"context"
	"maps"
	"sync"
	"time"
)

type memoryEntry struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryBackend はプロセス内メモリにセッションを保持するBackend。
// 単一インスタンスでの開発・テスト用途を想定する。
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// compile-time interface check
var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend はMemoryBackendを生成する。
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Load は期限内のセッション属性のコピーを返す。
func (b *MemoryBackend) Load(_ context.Context, id string) (map[string]string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[id]
	if !ok {
		return nil, false, nil
	}
	if !b.now().Before(e.expiresAt) {
		delete(b.entries, id)
		return nil, false, nil
	}

	out := make(map[string]string, len(e.values))
	maps.Copy(out, e.values)
	return out, true, nil
}

// Save は属性を上書き保存する。
func (b *MemoryBackend) Save(_ context.Context, id string, values map[string]string, ttl time.Duration) error {
	v := make(map[string]string, len(values))
	maps.Copy(v, values)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[id] = memoryEntry{values: v, expiresAt: b.now().Add(ttl)}
	return nil
}

// DeleteExpired は期限切れのセッションを削除し、削除件数を返す。
func (b *MemoryBackend) DeleteExpired(_ context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	var n int64
	for id, e := range b.entries {
		if !now.Before(e.expiresAt) {
			delete(b.entries, id)
			n++
		}
	}
	return n, nil
}

// Len は保持しているセッション数を返す。
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
