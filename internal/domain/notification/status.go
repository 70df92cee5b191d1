// internal/domain/notification/status.go
package notification

// Status represents the delivery state of a notification record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusTaken     Status = "taken"
)

// CanTransition reports whether moving from one status to another is allowed
// by the state machine. The dispatch loop only performs pending->sent and
// pending->failed; taken and cancelled are reachable through explicit user
// action only. Transitions are monotone: once a record leaves pending it
// never returns (snooze creates a new record instead). Repositories enforce
// this in UpdateStatusFrom.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusSent || to == StatusFailed || to == StatusCancelled
	case StatusSent:
		return to == StatusTaken
	default:
		return false
	}
}
