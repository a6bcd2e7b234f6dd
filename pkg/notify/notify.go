// Package notify pushes short messages to shop administrators
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Notifier interface {
	Notify(ctx context.Context, title, body, link string) error
}

// TelegramNotifier sends to a single admin chat
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	return NewTelegramNotifierWithEndpoint(token, tgbotapi.APIEndpoint, chatID, &http.Client{})
}

// NewTelegramNotifierWithEndpoint is NewTelegramNotifier against a custom Bot
// API endpoint (format "<base>/bot%s/%s").
func NewTelegramNotifierWithEndpoint(token, endpoint string, chatID int64, client tgbotapi.HTTPClient) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}

	return &TelegramNotifier{api: api, chatID: chatID}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, title, body, link string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatMessage(title, body, link))
	msg.DisableWebPagePreview = true

	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message to %d: %w", n.chatID, err)
	}

	return nil
}

// FormatMessage joins the non-empty parts, one per line
func FormatMessage(title, body, link string) string {
	var parts []string
	for _, p := range []string{title, body, link} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, string, string) error { return nil }
