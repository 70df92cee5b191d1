package user

import (
	"time"

	"github.com/google/uuid"
)

// User is an external collaborator: the core reads its channel addresses but
// never creates or authenticates users.
type User struct {
	ID               uuid.UUID
	Name             string
	Phone            string // optional
	TelegramChatID   int64  // 0 when Telegram is not connected
	TelegramUsername string // optional
	FCMToken         string // optional push token
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasTelegram reports whether the user has a connected Telegram chat.
func (u *User) HasTelegram() bool {
	return u.TelegramChatID != 0
}
