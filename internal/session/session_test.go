package session

import (
	"sync"
	"testing"
)

func TestStoreCreatesOnFirstContact(t *testing.T) {
	store := NewStore()

	s := store.Get(42)
	if s == nil {
		t.Fatal("Get returned nil session")
	}
	if s.State != StateIdle {
		t.Errorf("new session state = %v, want %v", s.State, StateIdle)
	}
	if s.HasLastJoke {
		t.Error("new session should have no last joke")
	}

	if store.Get(42) != s {
		t.Error("Get should return the same session for the same chat")
	}
	if store.Get(43) == s {
		t.Error("Get should return distinct sessions for distinct chats")
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}

func TestLastJokeSlot(t *testing.T) {
	s := &Session{State: StateIdle}

	s.SetLastJoke(0)
	if !s.HasLastJoke {
		t.Error("HasLastJoke should be true after SetLastJoke, even for joke id 0")
	}
	if s.LastJokeID != 0 {
		t.Errorf("LastJokeID = %d, want 0", s.LastJokeID)
	}

	s.ClearLastJoke()
	if s.HasLastJoke {
		t.Error("HasLastJoke should be false after ClearLastJoke")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()
			s := store.Get(chatID % 5)
			s.Lock()
			s.SetLastJoke(chatID)
			s.ClearLastJoke()
			s.Unlock()
		}(int64(i))
	}
	wg.Wait()

	if store.Len() != 5 {
		t.Errorf("Len() = %d, want 5", store.Len())
	}
}
