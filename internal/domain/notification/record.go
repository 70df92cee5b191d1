// internal/domain/notification/record.go
package notification

import (
	"time"

	"github.com/google/uuid"
)

// Channel identifies a delivery mechanism a record is eligible for.
type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelSMS      Channel = "sms"
	ChannelPush     Channel = "push"
)

// Metadata keys. The metadata bag carries a denormalized snapshot of the
// medication at scheduling time so a record can be re-rendered even after
// the medication was edited or deleted.
const (
	MetaMedicineName = "medicineName"
	MetaDosage       = "dosage"
	MetaInstructions = "instructions"
	MetaTime         = "time"
	MetaPeriod       = "period"
	MetaUserName     = "userName"
	MetaSnoozed      = "snoozed"
	MetaOriginalID   = "originalNotificationId"
	MetaBroadcast    = "broadcast"
	MetaTitle        = "title"
)

// Addresses holds channel-specific delivery addresses. On a record they are
// the snapshot captured at scheduling time, used as a fallback when the
// owning user can no longer be resolved at dispatch. Each field is optional.
type Addresses struct {
	TelegramChatID int64
	Phone          string
	PushToken      string
}

// Record is a single scheduled notification: one dose reminder, one snooze
// re-reminder, or one system broadcast. Exactly one of medication-bound or
// broadcast holds; broadcast records have a nil MedicationID and the
// MetaBroadcast metadata flag.
type Record struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	MedicationID *uuid.UUID // nil for system broadcasts
	Time         string     // "HH:MM" in the deployment zone; empty for broadcasts
	Period       string
	Message      string
	ScheduledFor time.Time
	Status       Status
	Channels     []Channel // eligible channels, in preference order
	Addresses    Addresses
	Metadata     map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsBroadcast reports whether this is a system-wide broadcast record rather
// than a medication reminder.
func (r *Record) IsBroadcast() bool {
	return r.MedicationID == nil
}

// Meta returns the metadata value for key, or "" when absent.
func (r *Record) Meta(key string) string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata[key]
}
