package medication

import (
	"fmt"
	"time"

	"medication_reminder_bot/internal/domain/timezone"

	"github.com/google/uuid"
)

// Period is the part of day a dose belongs to.
type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
	PeriodEvening   Period = "evening"
	PeriodNight     Period = "night"
)

// Timing is a single dose slot: a wall-clock time plus the part of day it
// belongs to. A medication carries at least one.
type Timing struct {
	Time   string // "HH:MM", 24-hour clock in the deployment zone
	Period Period
}

// Duration is the inclusive day range over which a medication is active.
type Duration struct {
	StartDate time.Time // date only, midnight in the deployment zone
	Days      int
}

// Medication represents a medication owned by a user.
type Medication struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Name         string
	Dosage       string
	Instructions string // optional
	Duration     Duration
	Timings      []Timing
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var validPeriods = map[Period]bool{
	PeriodMorning:   true,
	PeriodAfternoon: true,
	PeriodEvening:   true,
	PeriodNight:     true,
}

// Validate checks the medication's invariants: a name and dosage, days >= 0
// (days = 0 is valid and produces no schedule), at least one timing, and
// every timing parsing as a valid 24-hour clock value.
func (m *Medication) Validate(conv *timezone.Converter) error {
	if m.Name == "" {
		return fmt.Errorf("medication name is required")
	}
	if m.Dosage == "" {
		return fmt.Errorf("medication dosage is required")
	}
	if m.Duration.Days < 0 {
		return fmt.Errorf("%w: duration days %d", timezone.ErrInvalidTime, m.Duration.Days)
	}
	if m.Duration.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", timezone.ErrInvalidTime)
	}
	if len(m.Timings) == 0 {
		return fmt.Errorf("at least one timing is required")
	}
	for _, tm := range m.Timings {
		if _, _, err := conv.ParseClock(tm.Time); err != nil {
			return err
		}
		if !validPeriods[tm.Period] {
			return fmt.Errorf("invalid period %q", tm.Period)
		}
	}
	return nil
}
