package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medication_reminder_bot/internal/app"
	"medication_reminder_bot/internal/domain/timezone"
	"medication_reminder_bot/internal/infra/config"
	idb "medication_reminder_bot/internal/infra/database"
	igw "medication_reminder_bot/internal/infra/gateway"
	"medication_reminder_bot/internal/infra/logger"
	"medication_reminder_bot/internal/infra/scheduler"
	"medication_reminder_bot/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	log := logger.Get().WithField("app", "medication-reminder-bot")
	log.Infof("Configuration loaded. LogLevel: %s, Environment: %s, Admin ID: %d", cfg.LogLevel, cfg.Environment, cfg.AdminTelegramID)

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully.")

	// Initialize Repositories
	userRepo := idb.NewPostgresUserRepository(db)
	notifRepo := idb.NewPostgresNotificationRepository(db)
	log.Info("Repositories initialized.")

	// Time converter for the deployment's civil zone
	conv := timezone.NewConverter(cfg.TZOffsetMinutes)

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := log.WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.Error("Telebot error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		log.Fatalf("FATAL: Could not create Telegram bot: %v", err)
	}

	// Channel gateway: Telegram is the only configured sender; SMS and push
	// stay unconfigured until a provider is wired, so records eligible only
	// for those channels remain pending.
	gw := igw.NewRegistry(log, telegram.NewTelebotSender(bot))

	// Services
	dispatchService := app.NewDispatchService(
		notifRepo,
		userRepo,
		gw,
		app.SystemClock(),
		conv,
		time.Duration(cfg.DispatchWindowMin)*time.Minute,
		cfg.SnoozeMinutes,
		time.Duration(cfg.RetentionDays)*24*time.Hour,
		log,
	)
	log.Info("Services initialized.")

	// Initialize NotificationScheduler
	notifScheduler := scheduler.NewNotificationScheduler(
		dispatchService,
		log,
		conv.Location(),
		cfg.CronSpecDispatch,
		cfg.CronSpecCleanup,
		cfg.CronSpecStats,
	)
	notifScheduler.Start()

	// Register Handlers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	telegram.RegisterBotCommands(ctx, bot, cfg, userRepo, dispatchService, log)
	telegram.RegisterReminderHandlers(ctx, bot, dispatchService)
	log.Info("Bot handlers registered.")

	log.Info("Application setup complete. Bot and Scheduler are starting...")

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	log.Info("Shutting down application...")
	notifScheduler.Stop()
	bot.Stop()
	log.Info("Application shut down gracefully.")
}
