package models

import (
	"errors"
	"time"
	"unicode/utf8"
)

const (
	UsernameLengthMin = 5
	UsernameLengthMax = 20
	JokeLengthMin     = 10
	JokeLengthMax     = 1000
)

var (
	ErrInvalidCharacters = errors.New("contains characters outside letters, digits, '-' and '_'")
	ErrTooShort          = errors.New("too short")
	ErrTooLong           = errors.New("too long")
)

// User is keyed by the Telegram chat id. Score is the running sum of votes
// cast on jokes the user authored.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Joke ids form a 0-based sequence: each insert takes max existing id + 1.
type Joke struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	AuthorID  int64     `json:"author_id"`
	VoteCount int       `json:"vote_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Vote links a user to a joke they rated. A user votes on a joke at most once.
type Vote struct {
	UserID    int64     `json:"user_id"`
	JokeID    int64     `json:"joke_id"`
	Positive  bool      `json:"positive"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateUsername checks the charset before the length bounds, so a short
// string with bad characters reports ErrInvalidCharacters, not ErrTooShort.
func ValidateUsername(username string) error {
	for _, r := range username {
		if !isUsernameRune(r) {
			return ErrInvalidCharacters
		}
	}
	if len(username) < UsernameLengthMin {
		return ErrTooShort
	}
	if len(username) > UsernameLengthMax {
		return ErrTooLong
	}
	return nil
}

func isUsernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}

// ValidateJokeBody bounds the body length in characters, not bytes, so a
// multibyte joke is measured the same as an ASCII one.
func ValidateJokeBody(body string) error {
	length := utf8.RuneCountInString(body)
	if length < JokeLengthMin {
		return ErrTooShort
	}
	if length > JokeLengthMax {
		return ErrTooLong
	}
	return nil
}
