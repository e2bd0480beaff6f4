package database

import (
	"errors"
	"strings"
	"testing"
)

func TestConnectionError(t *testing.T) {
	baseErr := errors.New("connection refused")
	err := &ConnectionError{
		Host: "localhost",
		Port: 5432,
		Err:  baseErr,
	}

	if err.Error() == "" {
		t.Error("Expected error message")
	}

	if !errors.Is(err, baseErr) {
		t.Error("Expected underlying error to be unwrapped")
	}
}

func TestConnectionErrorMessage(t *testing.T) {
	baseErr := errors.New("connection refused")
	err := &ConnectionError{
		Host: "postgres.example.com",
		Port: 5432,
		Err:  baseErr,
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, "postgres.example.com:5432") {
		t.Errorf("Error() should name host and port: %v", errMsg)
	}
	if !strings.Contains(errMsg, "connection refused") {
		t.Errorf("Error() should include the cause: %v", errMsg)
	}
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrUserNotFound,
		ErrAlreadyRegistered,
		ErrJokeNotFound,
		ErrNoJokes,
		ErrNoFavorites,
		ErrInvalidVote,
	}

	for i, a := range sentinels {
		if !errors.Is(a, a) {
			t.Errorf("sentinel %d should match itself", i)
		}
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinels %d and %d should not match", i, j)
			}
		}
	}
}
