// internal/infra/telegram/reminder_response_handlers.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medication_reminder_bot/internal/app"

	"github.com/google/uuid"
	"gopkg.in/telebot.v3"
)

// RegisterReminderHandlers wires the inline-button callbacks on reminder
// messages. Callback data is "taken_<recordID>" or "snooze_<recordID>"; the
// bare legacy payloads "medicine_taken" and "remind_later" are resolved
// against the chat's most recent sent reminder.
func RegisterReminderHandlers(ctx context.Context, b *telebot.Bot, dispatch *app.DispatchService) {
	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		data := strings.TrimSpace(c.Callback().Data)
		// telebot prefixes callback data with "\f" for Data buttons.
		data = strings.TrimPrefix(data, "\f")
		chatID := c.Sender().ID

		switch {
		case strings.HasPrefix(data, "taken_"):
			recordID, err := uuid.Parse(strings.TrimPrefix(data, "taken_"))
			if err != nil {
				c.Bot().OnError(fmt.Errorf("invalid record id in 'taken' callback %q: %w", data, err), c)
				return c.Respond(&telebot.CallbackResponse{Text: "Something went wrong."})
			}
			if err := dispatch.MarkTaken(ctx, recordID); err != nil {
				return respondTakenError(c, err)
			}
			return c.Respond(&telebot.CallbackResponse{Text: "Marked as taken!"})

		case strings.HasPrefix(data, "snooze_"):
			recordID, err := uuid.Parse(strings.TrimPrefix(data, "snooze_"))
			if err != nil {
				c.Bot().OnError(fmt.Errorf("invalid record id in 'snooze' callback %q: %w", data, err), c)
				return c.Respond(&telebot.CallbackResponse{Text: "Something went wrong."})
			}
			if _, err := dispatch.Snooze(ctx, recordID, dispatch.SnoozeMinutes()); err != nil {
				return respondTakenError(c, err)
			}
			return c.Respond(&telebot.CallbackResponse{Text: "Reminder snoozed."})

		case data == "medicine_taken":
			if err := dispatch.MarkTakenLatest(ctx, chatID); err != nil {
				return respondTakenError(c, err)
			}
			return c.Respond(&telebot.CallbackResponse{Text: "Marked as taken!"})

		case data == "remind_later":
			if _, err := dispatch.SnoozeLatest(ctx, chatID, dispatch.SnoozeMinutes()); err != nil {
				return respondTakenError(c, err)
			}
			return c.Respond(&telebot.CallbackResponse{Text: "Reminder snoozed."})
		}

		c.Bot().OnError(fmt.Errorf("unhandled callback data: %s", data), c)
		return c.Respond(&telebot.CallbackResponse{Text: "Unknown action."})
	})
}

func respondTakenError(c telebot.Context, err error) error {
	if errors.Is(err, app.ErrRecordNotSent) {
		return c.Respond(&telebot.CallbackResponse{Text: "This reminder is no longer active."})
	}
	c.Bot().OnError(err, c)
	return c.Respond(&telebot.CallbackResponse{Text: "Something went wrong."})
}
