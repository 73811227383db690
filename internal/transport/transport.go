// Package transport adapts the Telegram Bot API to the narrow set of calls
// the collection engine needs. Every failure is returned as a typed error:
// sends fail with a DeliveryError, pin and unpin with a PinError.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	errs "github.com/edgard/collectbot/internal/errors"
	"github.com/edgard/collectbot/internal/logger"
)

// Transport is the chat platform as seen by the engine and the publisher.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, formatted bool) (int, error)
	Reply(ctx context.Context, chatID int64, replyTo int, text string) (int, error)
	PinMessage(ctx context.Context, chatID int64, messageID int) error
	UnpinMessage(ctx context.Context, chatID int64, messageID int) error
	SendDocument(ctx context.Context, chatID int64, filename string, data io.Reader, caption string) (int, error)
}

// botAPI is the subset of *bot.Bot used by Client.
type botAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	PinChatMessage(ctx context.Context, params *bot.PinChatMessageParams) (bool, error)
	UnpinChatMessage(ctx context.Context, params *bot.UnpinChatMessageParams) (bool, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
}

// Client implements Transport on top of go-telegram/bot.
type Client struct {
	api    botAPI
	logger *slog.Logger
}

var _ Transport = (*Client)(nil)

// NewClient wraps a go-telegram bot.
func NewClient(b *bot.Bot, log *slog.Logger) *Client {
	return newClient(b, log)
}

func newClient(api botAPI, log *slog.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}
	return &Client{api: api, logger: log.With("component", "transport")}
}

// SendMessage sends text to chatID. formatted selects HTML parse mode.
// Link previews are always disabled: summaries carry many links.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, formatted bool) (int, error) {
	params := &bot.SendMessageParams{
		ChatID:             chatID,
		Text:               text,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	}
	if formatted {
		params.ParseMode = models.ParseModeHTML
	}

	msg, err := c.api.SendMessage(ctx, params)
	if err != nil {
		return 0, errs.NewDeliveryError(fmt.Sprintf("send message to chat %d", chatID), err)
	}
	if msg == nil {
		return 0, errs.NewDeliveryError(fmt.Sprintf("send message to chat %d", chatID), fmt.Errorf("empty response"))
	}

	c.logger.DebugContext(ctx, "Message sent", "chat_id", chatID, "message_id", msg.ID, "formatted", formatted)
	return msg.ID, nil
}

// Reply sends plain text as a reply to replyTo. The reply is still delivered
// if the original message was deleted meanwhile.
func (c *Client) Reply(ctx context.Context, chatID int64, replyTo int, text string) (int, error) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if replyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{
			MessageID:                replyTo,
			AllowSendingWithoutReply: true,
		}
	}

	msg, err := c.api.SendMessage(ctx, params)
	if err != nil {
		return 0, errs.NewDeliveryError(fmt.Sprintf("reply in chat %d", chatID), err)
	}
	if msg == nil {
		return 0, errs.NewDeliveryError(fmt.Sprintf("reply in chat %d", chatID), fmt.Errorf("empty response"))
	}
	return msg.ID, nil
}

// PinMessage pins messageID without notifying members.
func (c *Client) PinMessage(ctx context.Context, chatID int64, messageID int) error {
	ok, err := c.api.PinChatMessage(ctx, &bot.PinChatMessageParams{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: true,
	})
	if err != nil {
		return errs.NewPinError(fmt.Sprintf("pin message %d in chat %d", messageID, chatID), err)
	}
	if !ok {
		return errs.NewPinError(fmt.Sprintf("pin message %d in chat %d", messageID, chatID), fmt.Errorf("rejected by api"))
	}
	return nil
}

// UnpinMessage unpins messageID.
func (c *Client) UnpinMessage(ctx context.Context, chatID int64, messageID int) error {
	ok, err := c.api.UnpinChatMessage(ctx, &bot.UnpinChatMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
	if err != nil {
		return errs.NewPinError(fmt.Sprintf("unpin message %d in chat %d", messageID, chatID), err)
	}
	if !ok {
		return errs.NewPinError(fmt.Sprintf("unpin message %d in chat %d", messageID, chatID), fmt.Errorf("rejected by api"))
	}
	return nil
}

// SendDocument uploads data as a file attachment.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filename string, data io.Reader, caption string) (int, error) {
	msg, err := c.api.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: filename, Data: data},
		Caption:  caption,
	})
	if err != nil {
		return 0, errs.NewDeliveryError(fmt.Sprintf("send document %s to chat %d", filename, chatID), err)
	}
	if msg == nil {
		return 0, errs.NewDeliveryError(fmt.Sprintf("send document %s to chat %d", filename, chatID), fmt.Errorf("empty response"))
	}
	return msg.ID, nil
}
