package bot

import (
	"testing"

	"hahornah-bot/internal/config"
	"hahornah-bot/internal/queue"
)

func TestNewBot(t *testing.T) {
	cfg := config.BotConfig{
		Token:     "test-token",
		ParseMode: "Markdown",
	}

	_, err := New(cfg, nil, nil)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestNewBotNoToken(t *testing.T) {
	cfg := config.BotConfig{
		Token:     "",
		ParseMode: "Markdown",
	}

	_, err := New(cfg, nil, nil)
	if err == nil {
		t.Error("Expected error when token is empty")
	}
}

func TestMarkupForKeyboard(t *testing.T) {
	msg := &queue.ReplyMessage{
		ChatID:  1,
		Text:    "pick one",
		Buttons: [][]string{{"/hah"}, {"/nah"}},
		OneTime: true,
	}

	markup := markupFor(msg)
	if markup == nil {
		t.Fatal("markupFor returned nil for a message with buttons")
	}
	if !markup.OneTimeKeyboard {
		t.Error("OneTimeKeyboard should be set")
	}
	if len(markup.ReplyKeyboard) != 2 {
		t.Fatalf("keyboard rows = %d, want 2", len(markup.ReplyKeyboard))
	}
	if markup.ReplyKeyboard[0][0].Text != "/hah" || markup.ReplyKeyboard[1][0].Text != "/nah" {
		t.Errorf("keyboard labels = %v", markup.ReplyKeyboard)
	}
}

func TestMarkupForRemoveKeyboard(t *testing.T) {
	msg := &queue.ReplyMessage{
		ChatID:         1,
		Text:           "done",
		RemoveKeyboard: true,
	}

	markup := markupFor(msg)
	if markup == nil || !markup.RemoveKeyboard {
		t.Errorf("markupFor = %+v, want RemoveKeyboard", markup)
	}
}

func TestMarkupForPlainText(t *testing.T) {
	msg := &queue.ReplyMessage{
		ChatID: 1,
		Text:   "just text",
	}

	if markup := markupFor(msg); markup != nil {
		t.Errorf("markupFor = %+v, want nil for plain text", markup)
	}
}
