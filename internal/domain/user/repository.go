package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// Repository is the read-mostly user directory. LinkTelegramChat is the one
// write: it binds a chat id to the user with the matching Telegram username
// when the user presses /start in the bot.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByTelegramUsername(ctx context.Context, username string) (*User, error)
	ListWithTelegram(ctx context.Context) ([]*User, error)
	LinkTelegramChat(ctx context.Context, username string, chatID int64) (*User, error)
}
