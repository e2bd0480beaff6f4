package session

import (
	"sync"

	"hahornah-bot/internal/models"
)

// State tracks which guided flow, if any, a chat is currently inside.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingUsername State = "awaiting_username"
	StateAwaitingJoke     State = "awaiting_joke"
)

// Session is the ephemeral per-chat conversation context. It lives only in
// memory and is rebuilt from scratch after a restart.
type Session struct {
	mu sync.Mutex

	State State

	// User caches the registered user for this chat so handlers skip the
	// lookup on every message.
	User *models.User

	// LastJokeID is the joke most recently shown for voting. HasLastJoke
	// distinguishes joke id 0 from "nothing shown".
	LastJokeID  int64
	HasLastJoke bool
}

// Lock serializes handling of messages from the same chat. The poller may
// run handlers concurrently; without this two quick messages could race on
// State or the last-joke slot.
func (s *Session) Lock() {
	s.mu.Lock()
}

func (s *Session) Unlock() {
	s.mu.Unlock()
}

func (s *Session) SetLastJoke(jokeID int64) {
	s.LastJokeID = jokeID
	s.HasLastJoke = true
}

// ClearLastJoke empties the vote slot. Called after every vote attempt,
// successful or not, so a stale joke can never be voted on twice.
func (s *Session) ClearLastJoke() {
	s.LastJokeID = 0
	s.HasLastJoke = false
}

// Store maps chat ids to sessions, creating them on first contact.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
	}
}

func (st *Store) Get(chatID int64) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[chatID]
	if !ok {
		s = &Session{State: StateIdle}
		st.sessions[chatID] = s
	}
	return s
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
