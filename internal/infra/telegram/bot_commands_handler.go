// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medication_reminder_bot/internal/app"
	"medication_reminder_bot/internal/domain/user"
	"medication_reminder_bot/internal/infra/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	cfg *config.AppConfig,
	userRepo user.Repository,
	dispatch *app.DispatchService,
	baseLogger *logrus.Entry,
) {
	cmdLogger := baseLogger.WithField("handler_group", "bot_commands")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		username := c.Sender().Username
		logCtx := cmdLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if username == "" {
			return c.Send("Please set a Telegram username in your Telegram settings first, then send /start again. It must match the username saved in your MediTimely profile.")
		}

		linked, err := userRepo.LinkTelegramChat(ctx, username, senderID)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				logCtx.WithField("username", username).Info("No account matches the Telegram username")
				return c.Send("I couldn't find a MediTimely account with your Telegram username. Add it to your profile in the app, then send /start again.")
			}
			logCtx.WithError(err).Error("Failed to link Telegram chat")
			return c.Send("Sorry, there was an error setting up your notifications. Please try again later.")
		}

		logCtx.WithField("user_id", linked.ID).Info("Telegram chat linked")
		return c.Send(fmt.Sprintf("Welcome to MediTimely, %s! You will now receive medication reminders here.", linked.Name))
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := cmdLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID == cfg.AdminTelegramID {
			var helpText strings.Builder
			helpText.WriteString("Available admin commands:\n\n")
			helpText.WriteString("`/broadcast <message>`\n - Send a system message to every connected user.\n\n")
			helpText.WriteString("`/help`\n - Show this help message.")
			return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}

		return c.Send("I send your medication reminders here. When a reminder arrives, use the \"✅ Taken\" button to confirm a dose or \"⏰ Remind in 5min\" to be reminded again.\n\n/start - Connect your MediTimely account.\n/help - Show this message.")
	})

	b.Handle("/broadcast", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := cmdLogger.WithField("command", "/broadcast").WithField("sender_id", senderID)

		if senderID != cfg.AdminTelegramID {
			logCtx.Warn("Broadcast attempted by non-admin")
			return c.Send("This command is available to administrators only.")
		}

		content := strings.TrimSpace(c.Message().Payload)
		if content == "" {
			return c.Send("Usage: /broadcast <message>")
		}

		count, err := dispatch.Broadcast(ctx, "", content)
		if err != nil {
			logCtx.WithError(err).Error("Broadcast failed")
			return c.Send("Failed to queue the broadcast. Please try again.")
		}
		logCtx.WithField("recipients", count).Info("Broadcast queued")
		return c.Send(fmt.Sprintf("Broadcast queued for %d users. It will go out on the next dispatch cycle.", count))
	})
}
