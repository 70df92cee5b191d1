// internal/infra/database/postgres_notification_repository.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"medication_reminder_bot/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/lib/pq" // For pq.Array and driver registration
)

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

const notificationColumns = `id, user_id, medication_id, dose_time, period, message, scheduled_for, status,
		channels, telegram_chat_id, phone, push_token, metadata, created_at, updated_at`

func (r *PostgresNotificationRepository) Create(ctx context.Context, rec *notification.Record) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("error marshaling notification metadata: %w", err)
	}
	query := `INSERT INTO notifications (id, user_id, medication_id, dose_time, period, message, scheduled_for, status,
	           channels, telegram_chat_id, phone, push_token, metadata)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	           RETURNING created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query,
		rec.ID, rec.UserID, medicationIDValue(rec), rec.Time, rec.Period, rec.Message, rec.ScheduledFor, rec.Status,
		pq.Array(channelStrings(rec.Channels)), rec.Addresses.TelegramChatID, rec.Addresses.Phone, rec.Addresses.PushToken, metadata,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating notification record: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) BulkCreate(ctx context.Context, recs []*notification.Record) error {
	if len(recs) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for bulk create: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO notifications (id, user_id, medication_id, dose_time, period, message, scheduled_for, status,
	                                     channels, telegram_chat_id, phone, push_token, metadata, created_at, updated_at)
	                                     VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for bulk create: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		metadata, mErr := json.Marshal(rec.Metadata)
		if mErr != nil {
			return fmt.Errorf("error marshaling metadata for record %s: %w", rec.ID, mErr)
		}
		_, err := stmt.ExecContext(ctx,
			rec.ID, rec.UserID, medicationIDValue(rec), rec.Time, rec.Period, rec.Message, rec.ScheduledFor, rec.Status,
			pq.Array(channelStrings(rec.Channels)), rec.Addresses.TelegramChatID, rec.Addresses.Phone, rec.Addresses.PushToken, metadata,
		)
		if err != nil {
			return fmt.Errorf("error executing statement for bulk create (record %s): %w", rec.ID, err)
		}
	}

	return txn.Commit()
}

func (r *PostgresNotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*notification.Record, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	rec, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notification.ErrRecordNotFound
		}
		return nil, fmt.Errorf("error getting notification record by ID: %w", err)
	}
	return rec, nil
}

func (r *PostgresNotificationRepository) ListDue(ctx context.Context, status notification.Status, from, to time.Time) ([]*notification.Record, error) {
	query := `SELECT ` + notificationColumns + `
	           FROM notifications
	           WHERE status = $1 AND scheduled_for >= $2 AND scheduled_for <= $3
	           ORDER BY scheduled_for ASC`
	rows, err := r.db.QueryContext(ctx, query, status, from, to)
	if err != nil {
		return nil, fmt.Errorf("error querying due notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (r *PostgresNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*notification.Record, error) {
	query := `SELECT ` + notificationColumns + `
	           FROM notifications WHERE user_id = $1 ORDER BY scheduled_for DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying notifications by user: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// UpdateStatusFrom performs the conditional status write. The WHERE clause
// on the current status makes the transition atomic: of two concurrent
// ticks only one update matches a row, the other sees zero rows affected
// and gets ErrStatusConflict.
func (r *PostgresNotificationRepository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to notification.Status) error {
	if !notification.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", notification.ErrInvalidTransition, from, to)
	}
	query := `UPDATE notifications SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("error updating notification status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected for status update: %w", err)
	}
	if affected == 0 {
		// Distinguish a lost race from a missing record.
		var exists bool
		if qErr := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM notifications WHERE id = $1)`, id).Scan(&exists); qErr != nil {
			return fmt.Errorf("error checking notification existence after conflict: %w", qErr)
		}
		if !exists {
			return notification.ErrRecordNotFound
		}
		return notification.ErrStatusConflict
	}
	return nil
}

func (r *PostgresNotificationRepository) DeleteByMedication(ctx context.Context, medicationID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE medication_id = $1`, medicationID)
	if err != nil {
		return 0, fmt.Errorf("error deleting notifications by medication: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresNotificationRepository) DeletePendingByMedication(ctx context.Context, medicationID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE medication_id = $1 AND status = $2`,
		medicationID, notification.StatusPending)
	if err != nil {
		return 0, fmt.Errorf("error deleting pending notifications by medication: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresNotificationRepository) DeleteByStatusBefore(ctx context.Context, status notification.Status, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE status = $1 AND scheduled_for < $2`, status, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting notifications by status before cutoff: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresNotificationRepository) CountByStatusBefore(ctx context.Context, status notification.Status, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE status = $1 AND scheduled_for < $2`, status, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting notifications by status before cutoff: %w", err)
	}
	return count, nil
}

func (r *PostgresNotificationRepository) CountByStatus(ctx context.Context, status notification.Status) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting notifications by status: %w", err)
	}
	return count, nil
}

func (r *PostgresNotificationRepository) LatestSentByChatID(ctx context.Context, chatID int64) (*notification.Record, error) {
	query := `SELECT ` + notificationColumns + `
	           FROM notifications
	           WHERE telegram_chat_id = $1 AND status = $2
	           ORDER BY scheduled_for DESC LIMIT 1`
	rec, err := scanNotification(r.db.QueryRowContext(ctx, query, chatID, notification.StatusSent))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notification.ErrRecordNotFound
		}
		return nil, fmt.Errorf("error getting latest sent notification by chat: %w", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*notification.Record, error) {
	rec := notification.Record{}
	var medicationID uuid.NullUUID
	var channels pq.StringArray
	var metadata []byte

	err := row.Scan(
		&rec.ID, &rec.UserID, &medicationID, &rec.Time, &rec.Period, &rec.Message, &rec.ScheduledFor, &rec.Status,
		&channels, &rec.Addresses.TelegramChatID, &rec.Addresses.Phone, &rec.Addresses.PushToken, &metadata,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if medicationID.Valid {
		id := medicationID.UUID
		rec.MedicationID = &id
	}
	rec.Channels = make([]notification.Channel, len(channels))
	for i, c := range channels {
		rec.Channels[i] = notification.Channel(c)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("error unmarshaling notification metadata: %w", err)
		}
	}
	return &rec, nil
}

// Helper to scan multiple rows
func scanNotifications(rows *sql.Rows) ([]*notification.Record, error) {
	records := make([]*notification.Record, 0)
	for rows.Next() {
		rec, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning notification row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return records, nil
}

func medicationIDValue(rec *notification.Record) any {
	if rec.MedicationID == nil {
		return nil
	}
	return *rec.MedicationID
}

func channelStrings(channels []notification.Channel) []string {
	out := make([]string, len(channels))
	for i, c := range channels {
		out[i] = string(c)
	}
	return out
}
