package queue

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFetchMaxWaitBlocks(t *testing.T) {
	// Sub-millisecond waits degenerate into a busy-spin on empty fetches.
	if fetchMaxWait < 100*time.Millisecond {
		t.Errorf("fetchMaxWait = %v, want at least 100ms", fetchMaxWait)
	}
}

func TestReplyMessageJSON(t *testing.T) {
	msg := ReplyMessage{
		ChatID:  123456789,
		Text:    "So, hah or nah?",
		Buttons: [][]string{{"/hah"}, {"/nah"}},
		OneTime: true,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal ReplyMessage: %v", err)
	}

	var parsed ReplyMessage
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Failed to unmarshal ReplyMessage: %v", err)
	}

	if parsed.ChatID != msg.ChatID {
		t.Errorf("ChatID = %v, want %v", parsed.ChatID, msg.ChatID)
	}
	if parsed.Text != msg.Text {
		t.Errorf("Text = %v, want %v", parsed.Text, msg.Text)
	}
	if !parsed.OneTime {
		t.Error("OneTime flag was lost")
	}
	if len(parsed.Buttons) != 2 || parsed.Buttons[0][0] != "/hah" || parsed.Buttons[1][0] != "/nah" {
		t.Errorf("Buttons = %v, want /hah and /nah rows", parsed.Buttons)
	}
}

func TestReplyMessageRemoveKeyboardJSON(t *testing.T) {
	msg := ReplyMessage{
		ChatID:         1,
		Text:           "Vote counted!",
		RemoveKeyboard: true,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal ReplyMessage: %v", err)
	}

	var parsed ReplyMessage
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Failed to unmarshal ReplyMessage: %v", err)
	}

	if !parsed.RemoveKeyboard {
		t.Error("RemoveKeyboard flag was lost")
	}
	if parsed.Buttons != nil {
		t.Errorf("Buttons = %v, want none", parsed.Buttons)
	}
}
