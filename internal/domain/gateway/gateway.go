package gateway

import (
	"context"
	"fmt"

	"medication_reminder_bot/internal/domain/notification"
)

// ErrNoUsableChannel is returned when none of a record's eligible channels
// has both a registered sender and a usable address. The dispatch loop
// leaves such records pending rather than failing them.
var ErrNoUsableChannel = fmt.Errorf("no usable delivery channel")

// Actions are the optional quick-reply buttons attached to a reminder.
// Pressing one maps back to a MarkTaken or Snooze call keyed by the
// record id the message was sent for.
type Actions struct {
	RecordID      string // record id the buttons act on; empty disables buttons
	SnoozeMinutes int
}

// SendFailure wraps a channel-level delivery error. The dispatch loop treats
// any SendFailure as grounds to transition the record to failed.
type SendFailure struct {
	Channel notification.Channel
	Err     error
}

func (f *SendFailure) Error() string {
	return fmt.Sprintf("send over %s failed: %v", f.Channel, f.Err)
}

func (f *SendFailure) Unwrap() error { return f.Err }

// Gateway is the outbound delivery abstraction consumed by the dispatch
// loop. Send is synchronous: it returns only once the outcome is definite.
// All failures surface as errors; implementations must not panic.
type Gateway interface {
	Send(ctx context.Context, channels []notification.Channel, addr notification.Addresses, message string, actions *Actions) error
}

// ChannelSender delivers a message over one concrete channel kind.
type ChannelSender interface {
	Channel() notification.Channel
	// Usable reports whether the addresses contain what this channel needs.
	Usable(addr notification.Addresses) bool
	Send(ctx context.Context, addr notification.Addresses, message string, actions *Actions) error
}
