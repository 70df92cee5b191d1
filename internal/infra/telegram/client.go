// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"fmt"

	"medication_reminder_bot/internal/domain/gateway"
	"medication_reminder_bot/internal/domain/notification"

	"gopkg.in/telebot.v3"
)

// TelebotSender delivers reminders over Telegram using gopkg.in/telebot.v3.
// It implements gateway.ChannelSender.
type TelebotSender struct {
	bot *telebot.Bot
}

func NewTelebotSender(b *telebot.Bot) *TelebotSender {
	return &TelebotSender{bot: b}
}

func (s *TelebotSender) Channel() notification.Channel {
	return notification.ChannelTelegram
}

func (s *TelebotSender) Usable(addr notification.Addresses) bool {
	return addr.TelegramChatID != 0
}

// Send delivers the message to the chat. When actions are supplied the
// message carries the "Taken" / "Remind me" inline buttons whose callback
// data is keyed by the record id.
func (s *TelebotSender) Send(_ context.Context, addr notification.Addresses, message string, actions *gateway.Actions) error {
	options := &telebot.SendOptions{}
	if actions != nil {
		replyMarkup := &telebot.ReplyMarkup{ResizeKeyboard: true}
		btnTaken := replyMarkup.Data("✅ Taken", fmt.Sprintf("taken_%s", actions.RecordID))
		btnSnooze := replyMarkup.Data(fmt.Sprintf("⏰ Remind in %dmin", actions.SnoozeMinutes), fmt.Sprintf("snooze_%s", actions.RecordID))
		replyMarkup.Inline(replyMarkup.Row(btnTaken, btnSnooze))
		options.ReplyMarkup = replyMarkup
	}

	recipient := &telebot.User{ID: addr.TelegramChatID}
	_, err := s.bot.Send(recipient, message, options)
	return err
}
