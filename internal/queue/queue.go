package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hahornah-bot/internal/config"
	"hahornah-bot/pkg/logger"

	"github.com/nats-io/nats.go"
)

const (
	ReplySubject  = "replies.send"
	ConsumerGroup = "hahornah-bot"

	// How long one Fetch blocks waiting for messages. Keeps the consumer
	// loop from spinning on empty fetches.
	fetchMaxWait = 500 * time.Millisecond
)

type NATS struct {
	conn      *nats.Conn
	jetstream nats.JetStream
	cfg       config.NATSConfig
}

func New(cfg config.NATSConfig) (*NATS, error) {
	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to get JetStream: %w", err)
	}

	n := &NATS{
		conn:      conn,
		jetstream: js,
		cfg:       cfg,
	}

	return n, nil
}

func (n *NATS) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

// ReplyMessage is one outbound chat reply. Buttons carries the choice menu
// as rows of labels so the consumer can rebuild the keyboard on send.
type ReplyMessage struct {
	ChatID         int64      `json:"chat_id"`
	Text           string     `json:"text"`
	Buttons        [][]string `json:"buttons,omitempty"`
	OneTime        bool       `json:"one_time,omitempty"`
	RemoveKeyboard bool       `json:"remove_keyboard,omitempty"`
}

func (n *NATS) PublishReply(ctx context.Context, msg *ReplyMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}

	_, err = n.jetstream.Publish(ReplySubject, data, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("failed to publish reply: %w", err)
	}

	logger.Debug("Reply published to queue",
		logger.Int64("chat_id", msg.ChatID),
	)

	return nil
}

func (n *NATS) ConsumeReplies(ctx context.Context, handler func(*ReplyMessage) error) error {
	sub, err := n.jetstream.PullSubscribe(
		ReplySubject,
		ConsumerGroup,
		nats.BindStream(n.cfg.StreamName),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to replies: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msgs, err := sub.Fetch(10, nats.MaxWait(fetchMaxWait))
			if err != nil {
				if err == nats.ErrTimeout {
					continue
				}
				return fmt.Errorf("failed to fetch messages: %w", err)
			}

			for _, msg := range msgs {
				var reply ReplyMessage
				if err := json.Unmarshal(msg.Data, &reply); err != nil {
					logger.Error("Failed to unmarshal reply message",
						logger.Err(err),
					)
					msg.Nak()
					continue
				}

				if err := handler(&reply); err != nil {
					logger.Error("Failed to deliver reply",
						logger.Err(err),
						logger.Int64("chat_id", reply.ChatID),
					)
					msg.Nak()
					continue
				}

				msg.Ack()
			}
		}
	}
}
