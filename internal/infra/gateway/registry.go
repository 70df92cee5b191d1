// internal/infra/gateway/registry.go
package gateway

import (
	"context"

	domain "medication_reminder_bot/internal/domain/gateway"
	"medication_reminder_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// Registry implements the Channel Gateway over a set of per-channel
// senders. Send walks the record's channels in preference order and uses
// the first one that has both a registered sender and a usable address.
// Channels without a configured provider (e.g. SMS when no SMS vendor is
// wired) simply never match, which leaves the record pending.
type Registry struct {
	senders map[notification.Channel]domain.ChannelSender
	logger  *logrus.Entry
}

func NewRegistry(logger *logrus.Entry, senders ...domain.ChannelSender) *Registry {
	m := make(map[notification.Channel]domain.ChannelSender, len(senders))
	for _, s := range senders {
		m[s.Channel()] = s
	}
	return &Registry{senders: m, logger: logger.WithField("component", "gateway")}
}

func (r *Registry) Send(ctx context.Context, channels []notification.Channel, addr notification.Addresses, message string, actions *domain.Actions) error {
	for _, ch := range channels {
		sender, ok := r.senders[ch]
		if !ok || !sender.Usable(addr) {
			continue
		}
		if err := sender.Send(ctx, addr, message, actions); err != nil {
			return &domain.SendFailure{Channel: ch, Err: err}
		}
		r.logger.WithField("channel", ch).Debug("Message delivered")
		return nil
	}
	return domain.ErrNoUsableChannel
}
