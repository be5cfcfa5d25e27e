package session

import (
	"sync"
	"testing"
)

func TestSession_SetGetRemove(t *testing.T) {
	s := newSession("id", nil, true)

	if _, ok := s.Get(KeyUsername); ok {
		t.Error("expected no username on a new session")
	}
	if s.Dirty() {
		t.Error("reading should not mark the session dirty")
	}

	s.Set(KeyUsername, "alice")
	if got, ok := s.Get(KeyUsername); !ok || got != "alice" {
		t.Errorf("Get() = %q, %v", got, ok)
	}
	if !s.Dirty() {
		t.Error("Set should mark the session dirty")
	}

	s.Remove(KeyUsername)
	if _, ok := s.Get(KeyUsername); ok {
		t.Error("username should be removed")
	}
}

func TestSession_RemoveMissingKey_StaysClean(t *testing.T) {
	s := newSession("id", map[string]string{"a": "1"}, false)

	s.Remove("missing")

	if s.Dirty() {
		t.Error("removing a missing key should not mark the session dirty")
	}
}

func TestSession_SnapshotIsCopy(t *testing.T) {
	s := newSession("id", map[string]string{"a": "1"}, false)

	snap := s.Snapshot()
	snap["a"] = "changed"

	if got, _ := s.Get("a"); got != "1" {
		t.Errorf("Snapshot should not alias session values, got %q", got)
	}
}

func TestSession_ConcurrentAccess(t *testing.T) {
	s := newSession("id", nil, true)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Set(KeyUsername, "alice")
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()

	if got, _ := s.Get(KeyUsername); got != "alice" {
		t.Errorf("username = %q, want %q", got, "alice")
	}
}
