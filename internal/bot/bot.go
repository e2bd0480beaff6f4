package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hahornah-bot/internal/config"
	"hahornah-bot/internal/queue"
	"hahornah-bot/pkg/logger"

	"gopkg.in/telebot.v4"
)

var ErrRateLimited = errors.New("telegram rate limited")

// Bot glues the conversation controller to Telegram. Every text message goes
// through the controller; commands are not registered individually so the
// controller's exact-match routing is the single source of truth.
type Bot struct {
	settings telebot.Settings
	ctrl     *Controller
	q        *queue.NATS
	tbot     *telebot.Bot
	cfg      config.BotConfig
}

func New(cfg config.BotConfig, ctrl *Controller, q *queue.NATS) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	return &Bot{
		cfg:  cfg,
		ctrl: ctrl,
		q:    q,
		settings: telebot.Settings{
			Token:  cfg.Token,
			Poller: &telebot.LongPoller{Timeout: 10},
		},
	}, nil
}

func (b *Bot) Start() (*telebot.Bot, error) {
	tbot, err := telebot.NewBot(b.settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.tbot = tbot
	b.setupHandlers(tbot)

	go b.startReplyConsumer(context.Background())

	go tbot.Start()

	return tbot, nil
}

func (b *Bot) setupHandlers(bot *telebot.Bot) {
	bot.Handle(telebot.OnText, func(c telebot.Context) error {
		logger.Info("Incoming text message",
			logger.Int64("chat_id", c.Chat().ID),
			logger.String("username", c.Sender().Username),
			logger.String("text", c.Text()),
		)
		return b.handleText(c)
	})

	bot.Handle(telebot.OnEdited, func(c telebot.Context) error {
		logger.Info("Incoming edited message",
			logger.Int64("chat_id", c.Chat().ID),
			logger.String("username", c.Sender().Username),
		)
		return nil
	})

	bot.Handle(telebot.OnCallback, func(c telebot.Context) error {
		logger.Info("Incoming callback",
			logger.Int64("chat_id", c.Chat().ID),
			logger.String("callback_data", c.Callback().Data),
		)
		return nil
	})
}

func (b *Bot) handleText(c telebot.Context) error {
	replies, err := b.ctrl.HandleMessage(context.Background(), c.Chat().ID, c.Text())
	if err != nil {
		logger.Error("Failed to handle message",
			logger.Err(err),
			logger.Int64("chat_id", c.Chat().ID),
		)
		return err
	}

	for _, reply := range replies {
		if err := b.queueOrSend(c.Chat().ID, reply); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) queueOrSend(chatID int64, reply Reply) error {
	msg := &queue.ReplyMessage{
		ChatID:         chatID,
		Text:           reply.Text,
		Buttons:        reply.Buttons,
		OneTime:        reply.OneTime,
		RemoveKeyboard: reply.RemoveKeyboard,
	}

	if b.q != nil {
		if err := b.q.PublishReply(context.Background(), msg); err != nil {
			logger.Error("Failed to queue reply", logger.Err(err))
		}
		return nil
	}

	return b.sendWithRetry(msg)
}

func (b *Bot) startReplyConsumer(ctx context.Context) {
	if b.q == nil {
		return
	}

	go func() {
		err := b.q.ConsumeReplies(ctx, func(msg *queue.ReplyMessage) error {
			return b.sendWithRetry(msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Reply consumer error", logger.Err(err))
		}
	}()
}

func (b *Bot) sendWithRetry(msg *queue.ReplyMessage) error {
	maxRetries := 3
	retryDelay := time.Second

	opts := &telebot.SendOptions{
		ParseMode:   b.cfg.ParseMode,
		ReplyMarkup: markupFor(msg),
	}

	for i := 0; i < maxRetries; i++ {
		_, err := b.tbot.Send(&telebot.Chat{ID: msg.ChatID}, msg.Text, opts)

		if err != nil {
			errStr := err.Error()
			if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "rate") {
				logger.Warn("Rate limited, retrying...",
					logger.Int("retry", i+1),
					logger.Int("max_retries", maxRetries),
				)
				time.Sleep(retryDelay)
				retryDelay *= 2
				continue
			}
			return fmt.Errorf("failed to send message: %w", err)
		}
		return nil
	}

	return ErrRateLimited
}

// markupFor rebuilds the reply keyboard from the queued label rows.
func markupFor(msg *queue.ReplyMessage) *telebot.ReplyMarkup {
	if msg.RemoveKeyboard {
		return &telebot.ReplyMarkup{RemoveKeyboard: true}
	}
	if len(msg.Buttons) == 0 {
		return nil
	}

	rows := make([][]telebot.ReplyButton, 0, len(msg.Buttons))
	for _, row := range msg.Buttons {
		buttons := make([]telebot.ReplyButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, telebot.ReplyButton{Text: label})
		}
		rows = append(rows, buttons)
	}

	return &telebot.ReplyMarkup{
		ReplyKeyboard:   rows,
		OneTimeKeyboard: msg.OneTime,
		ResizeKeyboard:  true,
	}
}
