// internal/app/render.go
package app

import (
	"fmt"
	"strings"
)

// ReminderContent is the denormalized snapshot a reminder is rendered from.
// Rendering works off the snapshot rather than the live medication so that
// snoozed records can be re-rendered after the medication was edited or
// deleted.
type ReminderContent struct {
	MedicineName string
	Dosage       string
	Instructions string // optional
	Time         string // "HH:MM"
	Period       string
	UserName     string
}

// RenderReminder builds the reminder text for a dose. Pure and
// deterministic: the same content always yields the same string.
func RenderReminder(c ReminderContent) string {
	var b strings.Builder
	b.WriteString("🔔 Medication Reminder\n\n")
	fmt.Fprintf(&b, "Hello %s! Time for your medicine.\n\n", c.UserName)
	fmt.Fprintf(&b, "💊 Medicine: %s\n", c.MedicineName)
	fmt.Fprintf(&b, "💉 Dosage: %s\n", c.Dosage)
	fmt.Fprintf(&b, "⏰ Time: %s (%s)\n", c.Time, c.Period)
	if c.Instructions != "" {
		fmt.Fprintf(&b, "📝 Instructions: %s\n", c.Instructions)
	}
	b.WriteString("\nStay healthy! Remember to take your medicine on time.")
	return b.String()
}

// RenderTaken is the confirmation sent after a dose is marked taken.
func RenderTaken(medicineName string) string {
	return fmt.Sprintf("✅ Medication Taken\n\nGreat job taking your %s!\nStay consistent with your medication schedule.", medicineName)
}

// RenderSnoozeAck acknowledges a snooze request.
func RenderSnoozeAck(medicineName string, minutes int) string {
	return fmt.Sprintf("⏰ Reminder Set\n\nI'll remind you about %s again in %d minutes.\n\nDon't forget to take your medicine!", medicineName, minutes)
}

// RenderBroadcast builds the body of a system-wide broadcast message.
func RenderBroadcast(title, content string) string {
	if title == "" {
		return content
	}
	return fmt.Sprintf("📢 %s\n\n%s", title, content)
}
