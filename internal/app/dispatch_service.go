// internal/app/dispatch_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medication_reminder_bot/internal/domain/gateway"
	"medication_reminder_bot/internal/domain/notification"
	"medication_reminder_bot/internal/domain/timezone"
	"medication_reminder_bot/internal/domain/user"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Custom application-level errors for dispatch operations.
var ErrRecordNotSent = fmt.Errorf("notification record is not in sent status")
var ErrRecordNotPending = fmt.Errorf("notification record is not in pending status")

// TickStats are the counters emitted by one dispatch tick.
type TickStats struct {
	Matched int // pending records inside the window
	Sent    int // transitioned pending -> sent
	Failed  int // transitioned pending -> failed
	Skipped int // left pending: no usable delivery channel
}

// DispatchService owns the notification state machine: the periodic
// dispatch tick, the user-triggered taken/snooze/cancel transitions, system
// broadcasts and the retention sweep. All collaborators are injected; there
// is no global state.
type DispatchService struct {
	notifRepo notification.Repository
	userRepo  user.Repository
	gw        gateway.Gateway
	clock     Clock
	conv      *timezone.Converter
	window    time.Duration
	snoozeMin int
	retention time.Duration
	logger    *logrus.Entry
}

func NewDispatchService(
	nr notification.Repository,
	ur user.Repository,
	gw gateway.Gateway,
	clock Clock,
	conv *timezone.Converter,
	window time.Duration,
	snoozeMinutes int,
	retention time.Duration,
	logger *logrus.Entry,
) *DispatchService {
	return &DispatchService{
		notifRepo: nr,
		userRepo:  ur,
		gw:        gw,
		clock:     clock,
		conv:      conv,
		window:    window,
		snoozeMin: snoozeMinutes,
		retention: retention,
		logger:    logger.WithField("service", "dispatch"),
	}
}

// SnoozeMinutes returns the default snooze interval.
func (s *DispatchService) SnoozeMinutes() int { return s.snoozeMin }

// Tick runs one dispatch cycle: select pending records scheduled inside
// [now-window, now+window], attempt delivery for each and transition the
// status. Per-record failures never abort the remaining records. The status
// write is a compare-and-set conditioned on the record still being pending,
// so a record transitions out of pending at most once even if two ticks
// overlap.
func (s *DispatchService) Tick(ctx context.Context) (TickStats, error) {
	now := s.clock.Now()
	from := now.Add(-s.window)
	to := now.Add(s.window)

	var stats TickStats
	records, err := s.notifRepo.ListDue(ctx, notification.StatusPending, from, to)
	if err != nil {
		return stats, fmt.Errorf("failed to query due notifications: %w", err)
	}
	stats.Matched = len(records)

	for _, rec := range records {
		s.dispatchOne(ctx, rec, &stats)
	}

	s.logger.WithFields(logrus.Fields{
		"matched": stats.Matched,
		"sent":    stats.Sent,
		"failed":  stats.Failed,
		"skipped": stats.Skipped,
	}).Info("Dispatch tick completed")
	return stats, nil
}

func (s *DispatchService) dispatchOne(ctx context.Context, rec *notification.Record, stats *TickStats) {
	logCtx := s.logger.WithField("record_id", rec.ID)

	var actions *gateway.Actions
	if !rec.IsBroadcast() {
		actions = &gateway.Actions{RecordID: rec.ID.String(), SnoozeMinutes: s.snoozeMin}
	}

	// Deliver to the owner's current addresses, not the snapshot taken at
	// schedule time: a user who connects Telegram after their schedule was
	// generated must still receive those reminders. The snapshot is only a
	// fallback for records whose owner no longer exists.
	channels, addr := rec.Channels, rec.Addresses
	owner, err := s.userRepo.GetByID(ctx, rec.UserID)
	switch {
	case err == nil:
		channels, addr = channelsFor(owner)
	case errors.Is(err, user.ErrUserNotFound):
		logCtx.Debug("Record owner no longer exists, using scheduled addresses")
	default:
		logCtx.WithError(err).Warn("Failed to resolve record owner, using scheduled addresses")
	}

	err = s.gw.Send(ctx, channels, addr, rec.Message, actions)
	switch {
	case errors.Is(err, gateway.ErrNoUsableChannel):
		// The user may still connect a channel before the window closes;
		// the record stays pending and is re-matched on the next tick.
		stats.Skipped++
		logCtx.Warn("No usable delivery channel, record left pending")

	case err != nil:
		logCtx.WithError(err).Error("Delivery failed")
		if cErr := s.notifRepo.UpdateStatusFrom(ctx, rec.ID, notification.StatusPending, notification.StatusFailed); cErr != nil {
			if errors.Is(cErr, notification.ErrStatusConflict) {
				logCtx.Info("Lost status race after failed delivery, leaving record as-is")
				return
			}
			logCtx.WithError(cErr).Error("Failed to mark record failed")
			return
		}
		stats.Failed++

	default:
		if cErr := s.notifRepo.UpdateStatusFrom(ctx, rec.ID, notification.StatusPending, notification.StatusSent); cErr != nil {
			if errors.Is(cErr, notification.ErrStatusConflict) {
				logCtx.Info("Lost status race after delivery, another tick already transitioned the record")
				return
			}
			logCtx.WithError(cErr).Error("Failed to mark record sent")
			return
		}
		stats.Sent++
	}
}

// MarkTaken transitions a sent record to taken and sends a best-effort
// confirmation message. The confirmation never rolls back the transition.
func (s *DispatchService) MarkTaken(ctx context.Context, id uuid.UUID) error {
	rec, err := s.notifRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status != notification.StatusSent {
		return ErrRecordNotSent
	}

	if err := s.notifRepo.UpdateStatusFrom(ctx, id, notification.StatusSent, notification.StatusTaken); err != nil {
		if errors.Is(err, notification.ErrStatusConflict) {
			return ErrRecordNotSent
		}
		return fmt.Errorf("failed to mark record %s taken: %w", id, err)
	}
	s.logger.WithField("record_id", id).Info("Record marked as taken")

	confirmation := RenderTaken(rec.Meta(notification.MetaMedicineName))
	if err := s.gw.Send(ctx, rec.Channels, rec.Addresses, confirmation, nil); err != nil {
		s.logger.WithField("record_id", id).WithError(err).Warn("Failed to send taken confirmation")
	}
	return nil
}

// Snooze clones a sent record into a new pending one scheduled minutes from
// now. The original record keeps its sent status. The clone's message is
// re-rendered from the metadata snapshot with the new wall-clock time, so
// snoozing works even after the medication was edited or deleted.
func (s *DispatchService) Snooze(ctx context.Context, id uuid.UUID, minutes int) (*notification.Record, error) {
	if minutes <= 0 {
		minutes = s.snoozeMin
	}

	rec, err := s.notifRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != notification.StatusSent {
		return nil, ErrRecordNotSent
	}

	scheduledFor := s.clock.Now().Add(time.Duration(minutes) * time.Minute)
	newTime := s.conv.ToLocal(scheduledFor).Format("15:04")

	meta := make(map[string]string, len(rec.Metadata)+2)
	for k, v := range rec.Metadata {
		meta[k] = v
	}
	meta[notification.MetaSnoozed] = "true"
	meta[notification.MetaOriginalID] = rec.ID.String()
	meta[notification.MetaTime] = newTime

	clone := &notification.Record{
		ID:           uuid.New(),
		UserID:       rec.UserID,
		MedicationID: rec.MedicationID,
		Time:         newTime,
		Period:       rec.Period,
		Message: RenderReminder(ReminderContent{
			MedicineName: rec.Meta(notification.MetaMedicineName),
			Dosage:       rec.Meta(notification.MetaDosage),
			Instructions: rec.Meta(notification.MetaInstructions),
			Time:         newTime,
			Period:       rec.Period,
			UserName:     rec.Meta(notification.MetaUserName),
		}),
		ScheduledFor: scheduledFor,
		Status:       notification.StatusPending,
		Channels:     rec.Channels,
		Addresses:    rec.Addresses,
		Metadata:     meta,
	}

	if err := s.notifRepo.Create(ctx, clone); err != nil {
		return nil, fmt.Errorf("failed to create snoozed record for %s: %w", id, err)
	}
	s.logger.WithFields(logrus.Fields{
		"record_id": id,
		"snooze_id": clone.ID,
		"minutes":   minutes,
	}).Info("Snooze reminder scheduled")

	ack := RenderSnoozeAck(rec.Meta(notification.MetaMedicineName), minutes)
	if err := s.gw.Send(ctx, rec.Channels, rec.Addresses, ack, nil); err != nil {
		s.logger.WithField("record_id", id).WithError(err).Warn("Failed to send snooze acknowledgement")
	}
	return clone, nil
}

// MarkTakenLatest resolves the most recent sent record for a Telegram chat
// and marks it taken. Used for button presses whose callback data carries no
// record id.
func (s *DispatchService) MarkTakenLatest(ctx context.Context, chatID int64) error {
	rec, err := s.notifRepo.LatestSentByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, notification.ErrRecordNotFound) {
			return ErrRecordNotSent
		}
		return err
	}
	return s.MarkTaken(ctx, rec.ID)
}

// SnoozeLatest resolves the most recent sent record for a Telegram chat and
// snoozes it.
func (s *DispatchService) SnoozeLatest(ctx context.Context, chatID int64, minutes int) (*notification.Record, error) {
	rec, err := s.notifRepo.LatestSentByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, notification.ErrRecordNotFound) {
			return nil, ErrRecordNotSent
		}
		return nil, err
	}
	return s.Snooze(ctx, rec.ID, minutes)
}

// Cancel explicitly transitions a pending record to cancelled.
func (s *DispatchService) Cancel(ctx context.Context, id uuid.UUID) error {
	err := s.notifRepo.UpdateStatusFrom(ctx, id, notification.StatusPending, notification.StatusCancelled)
	if err != nil {
		if errors.Is(err, notification.ErrStatusConflict) {
			return ErrRecordNotPending
		}
		return fmt.Errorf("failed to cancel record %s: %w", id, err)
	}
	s.logger.WithField("record_id", id).Info("Record cancelled")
	return nil
}

// Broadcast creates one immediate pending record per Telegram-connected
// user. Broadcast records carry no medication reference; the next tick
// picks them up like any other pending record.
func (s *DispatchService) Broadcast(ctx context.Context, title, content string) (int, error) {
	users, err := s.userRepo.ListWithTelegram(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list broadcast recipients: %w", err)
	}
	if len(users) == 0 {
		s.logger.Warn("Broadcast requested but no users have Telegram connected")
		return 0, nil
	}

	now := s.clock.Now()
	message := RenderBroadcast(title, content)
	records := make([]*notification.Record, 0, len(users))
	for _, u := range users {
		records = append(records, &notification.Record{
			ID:           uuid.New(),
			UserID:       u.ID,
			MedicationID: nil,
			Message:      message,
			ScheduledFor: now,
			Status:       notification.StatusPending,
			Channels:     []notification.Channel{notification.ChannelTelegram},
			Addresses:    notification.Addresses{TelegramChatID: u.TelegramChatID},
			Metadata: map[string]string{
				notification.MetaBroadcast: "true",
				notification.MetaTitle:     title,
				notification.MetaUserName:  u.Name,
			},
		})
	}

	if err := s.notifRepo.BulkCreate(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to create broadcast records: %w", err)
	}
	s.logger.WithField("recipients", len(records)).Info("Broadcast records created")
	return len(records), nil
}

// Sweep deletes sent records older than the retention period. Failed,
// cancelled and taken records are kept as audit trail; their counts past
// the cutoff are logged so the accumulation stays visible.
func (s *DispatchService) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.retention)

	deleted, err := s.notifRepo.DeleteByStatusBefore(ctx, notification.StatusSent, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep old sent notifications: %w", err)
	}

	logCtx := s.logger.WithField("deleted", deleted)
	for _, st := range []notification.Status{notification.StatusFailed, notification.StatusCancelled, notification.StatusTaken} {
		n, cErr := s.notifRepo.CountByStatusBefore(ctx, st, cutoff)
		if cErr != nil {
			s.logger.WithError(cErr).Warnf("Failed to count retained %s records", st)
			continue
		}
		logCtx = logCtx.WithField(fmt.Sprintf("retained_%s", st), n)
	}
	logCtx.Info("Retention sweep completed")
	return deleted, nil
}

// Stats logs the current record counts per status and returns them.
func (s *DispatchService) Stats(ctx context.Context) (map[notification.Status]int64, error) {
	counts := make(map[notification.Status]int64)
	logCtx := s.logger
	for _, st := range []notification.Status{
		notification.StatusPending,
		notification.StatusSent,
		notification.StatusFailed,
		notification.StatusCancelled,
		notification.StatusTaken,
	} {
		n, err := s.notifRepo.CountByStatus(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s records: %w", st, err)
		}
		counts[st] = n
		logCtx = logCtx.WithField(string(st), n)
	}
	logCtx.Info("Notification stats")
	return counts, nil
}
