// Package session はCookieで識別される外部セッションの取得・永続化を提供する。
//
// ハンドラーはStore.Scopeでリクエスト単位にセッションを取得し、
// Scopeの終了時に最終的な属性がバックエンドへ保存される。
package session

import (
	"maps"
	"sync"
)

// KeyUsername はログイン中のユーザー名を保持するセッション属性のキー。
const KeyUsername = "username"

// Session は1クライアントのセッション属性を保持する。
// 同一クライアントの並行リクエストから安全にアクセスできる。
type Session struct {
	id string

	mu     sync.RWMutex
	values map[string]string
	isNew  bool
	dirty  bool
}

// newSession は属性のコピーを持つSessionを生成する。
func newSession(id string, values map[string]string, isNew bool) *Session {
	v := make(map[string]string, len(values))
	maps.Copy(v, values)
	return &Session{id: id, values: v, isNew: isNew}
}

// ID はセッションIDを返す。
func (s *Session) ID() string {
	return s.id
}

// Get は属性値を返す。読み取りは状態を変更しない。
func (s *Session) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set は属性値を設定する。
func (s *Session) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.dirty = true
}

// Remove は属性を削除する。存在しない場合は何もしない。
func (s *Session) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// Snapshot は現在の属性のコピーを返す。
func (s *Session) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	maps.Copy(out, s.values)
	return out
}

// IsNew はこのリクエストで新規作成されたセッションかを返す。
func (s *Session) IsNew() bool {
	return s.isNew
}

// Dirty は取得後に属性が変更されたかを返す。
func (s *Session) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// markClean は保存完了後に呼ばれる。
func (s *Session) markClean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
	s.isNew = false
}
