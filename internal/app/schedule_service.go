// internal/app/schedule_service.go
package app

import (
	"context"
	"fmt"

	"medication_reminder_bot/internal/domain/medication"
	"medication_reminder_bot/internal/domain/notification"
	"medication_reminder_bot/internal/domain/timezone"
	"medication_reminder_bot/internal/domain/user"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ScheduleService expands medications into notification records and keeps
// the schedule consistent across medication create, update and delete.
type ScheduleService struct {
	medRepo   medication.Repository
	notifRepo notification.Repository
	userRepo  user.Repository
	conv      *timezone.Converter
	logger    *logrus.Entry
}

func NewScheduleService(
	mr medication.Repository,
	nr notification.Repository,
	ur user.Repository,
	conv *timezone.Converter,
	logger *logrus.Entry,
) *ScheduleService {
	return &ScheduleService{
		medRepo:   mr,
		notifRepo: nr,
		userRepo:  ur,
		conv:      conv,
		logger:    logger.WithField("service", "schedule"),
	}
}

// Generate expands a medication into one pending record per (day, timing)
// pair. Records are built but not persisted. days=0 yields an empty slice;
// duplicate timings are kept, one record per dose. No record is returned on
// any validation error.
func (s *ScheduleService) Generate(med *medication.Medication, owner *user.User) ([]*notification.Record, error) {
	if err := med.Validate(s.conv); err != nil {
		return nil, err
	}

	channels, addrs := channelsFor(owner)
	records := make([]*notification.Record, 0, med.Duration.Days*len(med.Timings))

	for day := 0; day < med.Duration.Days; day++ {
		date := med.Duration.StartDate.AddDate(0, 0, day)
		for _, timing := range med.Timings {
			scheduledFor, err := s.conv.ToAbsolute(date.Year(), date.Month(), date.Day(), timing.Time)
			if err != nil {
				return nil, err
			}

			medID := med.ID
			records = append(records, &notification.Record{
				ID:           uuid.New(),
				UserID:       owner.ID,
				MedicationID: &medID,
				Time:         timing.Time,
				Period:       string(timing.Period),
				Message: RenderReminder(ReminderContent{
					MedicineName: med.Name,
					Dosage:       med.Dosage,
					Instructions: med.Instructions,
					Time:         timing.Time,
					Period:       string(timing.Period),
					UserName:     owner.Name,
				}),
				ScheduledFor: scheduledFor,
				Status:       notification.StatusPending,
				Channels:     channels,
				Addresses:    addrs,
				Metadata: map[string]string{
					notification.MetaMedicineName: med.Name,
					notification.MetaDosage:       med.Dosage,
					notification.MetaInstructions: med.Instructions,
					notification.MetaTime:         timing.Time,
					notification.MetaPeriod:       string(timing.Period),
					notification.MetaUserName:     owner.Name,
				},
			})
		}
	}
	return records, nil
}

// CreateMedication persists a new medication and schedules its reminders.
func (s *ScheduleService) CreateMedication(ctx context.Context, med *medication.Medication) error {
	owner, err := s.userRepo.GetByID(ctx, med.UserID)
	if err != nil {
		return fmt.Errorf("failed to load medication owner %s: %w", med.UserID, err)
	}

	if med.ID == uuid.Nil {
		med.ID = uuid.New()
	}
	med.Active = true

	records, err := s.Generate(med, owner)
	if err != nil {
		return err
	}

	if err := s.medRepo.Create(ctx, med); err != nil {
		return fmt.Errorf("failed to create medication: %w", err)
	}
	if err := s.notifRepo.BulkCreate(ctx, records); err != nil {
		return fmt.Errorf("failed to schedule notifications for medication %s: %w", med.ID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"medication_id": med.ID,
		"user_id":       med.UserID,
		"records":       len(records),
	}).Info("Medication created and reminders scheduled")
	return nil
}

// UpdateMedication saves changed timings/duration and rebuilds the schedule.
// All pending records derived from the previous version are deleted before
// regeneration; sent, taken and failed records are left untouched as
// history.
func (s *ScheduleService) UpdateMedication(ctx context.Context, med *medication.Medication) error {
	owner, err := s.userRepo.GetByID(ctx, med.UserID)
	if err != nil {
		return fmt.Errorf("failed to load medication owner %s: %w", med.UserID, err)
	}

	records, err := s.Generate(med, owner)
	if err != nil {
		return err
	}

	if err := s.medRepo.Update(ctx, med); err != nil {
		return fmt.Errorf("failed to update medication %s: %w", med.ID, err)
	}

	removed, err := s.notifRepo.DeletePendingByMedication(ctx, med.ID)
	if err != nil {
		return fmt.Errorf("failed to clear pending notifications for medication %s: %w", med.ID, err)
	}
	if err := s.notifRepo.BulkCreate(ctx, records); err != nil {
		return fmt.Errorf("failed to reschedule notifications for medication %s: %w", med.ID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"medication_id":   med.ID,
		"pending_removed": removed,
		"records":         len(records),
	}).Info("Medication updated and reminders regenerated")
	return nil
}

// DeleteMedication removes a medication and cascades to all of its
// notification records regardless of status.
func (s *ScheduleService) DeleteMedication(ctx context.Context, id uuid.UUID) error {
	removed, err := s.notifRepo.DeleteByMedication(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete notifications for medication %s: %w", id, err)
	}
	if err := s.medRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete medication %s: %w", id, err)
	}

	s.logger.WithFields(logrus.Fields{
		"medication_id": id,
		"records":       removed,
	}).Info("Medication deleted with its notification records")
	return nil
}

// channelsFor derives the channels a record is eligible for from the
// addresses the user has, in preference order. SMS is always included as the
// default fallback channel, mirroring how records are created even for users
// who have not connected any chat yet.
func channelsFor(u *user.User) ([]notification.Channel, notification.Addresses) {
	var channels []notification.Channel
	if u.HasTelegram() {
		channels = append(channels, notification.ChannelTelegram)
	}
	if u.FCMToken != "" {
		channels = append(channels, notification.ChannelPush)
	}
	channels = append(channels, notification.ChannelSMS)

	return channels, notification.Addresses{
		TelegramChatID: u.TelegramChatID,
		Phone:          u.Phone,
		PushToken:      u.FCMToken,
	}
}
