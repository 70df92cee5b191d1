// internal/domain/notification/repository.go
package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrRecordNotFound is returned when a record id does not exist.
var ErrRecordNotFound = errors.New("notification record not found")

// ErrStatusConflict is returned by UpdateStatusFrom when the record was no
// longer in the expected status: the caller lost a concurrent transition and
// must treat the update as a no-op.
var ErrStatusConflict = errors.New("notification status changed concurrently")

// ErrInvalidTransition is returned by UpdateStatusFrom for a from->to pair
// the state machine forbids, before any write is attempted.
var ErrInvalidTransition = errors.New("invalid notification status transition")

// Repository defines persistence operations for notification records.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	BulkCreate(ctx context.Context, recs []*Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)

	// ListDue returns all records with the given status whose ScheduledFor
	// falls inside [from, to], inclusive.
	ListDue(ctx context.Context, status Status, from, to time.Time) ([]*Record, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Record, error)

	// UpdateStatusFrom atomically moves the record from one status to
	// another. Pairs not allowed by CanTransition are rejected with
	// ErrInvalidTransition. It is a compare-and-set on status: if the record
	// is no longer in the expected status at write time the update is lost
	// and ErrStatusConflict is returned. This is the invariant that
	// guarantees at most one transition out of pending per record, even
	// under overlapping dispatch ticks.
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to Status) error

	DeleteByMedication(ctx context.Context, medicationID uuid.UUID) (int64, error)
	DeletePendingByMedication(ctx context.Context, medicationID uuid.UUID) (int64, error)

	// DeleteByStatusBefore removes all records in the given status scheduled
	// strictly before the cutoff. Used by the retention sweeper.
	DeleteByStatusBefore(ctx context.Context, status Status, cutoff time.Time) (int64, error)
	CountByStatusBefore(ctx context.Context, status Status, cutoff time.Time) (int64, error)
	CountByStatus(ctx context.Context, status Status) (int64, error)

	// LatestSentByChatID returns the most recently scheduled sent record for
	// a Telegram chat. Used to resolve bare button presses on old messages.
	LatestSentByChatID(ctx context.Context, chatID int64) (*Record, error)
}
