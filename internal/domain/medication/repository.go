package medication

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no medication matches the lookup.
var ErrNotFound = errors.New("medication not found")

// Repository defines the operations for persisting and retrieving Medication entities.
type Repository interface {
	Create(ctx context.Context, med *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	Update(ctx context.Context, med *Medication) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Medication, error)
}
