package app

import (
	"context"
	"sync"
	"time"

	"medication_reminder_bot/internal/domain/gateway"
	"medication_reminder_bot/internal/domain/medication"
	"medication_reminder_bot/internal/domain/notification"
	"medication_reminder_bot/internal/domain/user"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// memNotifRepo is an in-memory notification.Repository with the same
// compare-and-set semantics as the Postgres implementation.
type memNotifRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*notification.Record
}

func newMemNotifRepo() *memNotifRepo {
	return &memNotifRepo{records: make(map[uuid.UUID]*notification.Record)}
}

func copyRecord(rec *notification.Record) *notification.Record {
	cp := *rec
	if rec.MedicationID != nil {
		id := *rec.MedicationID
		cp.MedicationID = &id
	}
	cp.Channels = append([]notification.Channel(nil), rec.Channels...)
	if rec.Metadata != nil {
		cp.Metadata = make(map[string]string, len(rec.Metadata))
		for k, v := range rec.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

func (r *memNotifRepo) Create(_ context.Context, rec *notification.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = copyRecord(rec)
	return nil
}

func (r *memNotifRepo) BulkCreate(ctx context.Context, recs []*notification.Record) error {
	for _, rec := range recs {
		if err := r.Create(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (r *memNotifRepo) GetByID(_ context.Context, id uuid.UUID) (*notification.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, notification.ErrRecordNotFound
	}
	return copyRecord(rec), nil
}

func (r *memNotifRepo) ListDue(_ context.Context, status notification.Status, from, to time.Time) ([]*notification.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Record
	for _, rec := range r.records {
		if rec.Status == status && !rec.ScheduledFor.Before(from) && !rec.ScheduledFor.After(to) {
			out = append(out, copyRecord(rec))
		}
	}
	return out, nil
}

func (r *memNotifRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*notification.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Record
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, copyRecord(rec))
		}
	}
	return out, nil
}

func (r *memNotifRepo) UpdateStatusFrom(_ context.Context, id uuid.UUID, from, to notification.Status) error {
	if !notification.CanTransition(from, to) {
		return notification.ErrInvalidTransition
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return notification.ErrRecordNotFound
	}
	if rec.Status != from {
		return notification.ErrStatusConflict
	}
	rec.Status = to
	rec.UpdatedAt = time.Now()
	return nil
}

func (r *memNotifRepo) DeleteByMedication(_ context.Context, medicationID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, rec := range r.records {
		if rec.MedicationID != nil && *rec.MedicationID == medicationID {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

func (r *memNotifRepo) DeletePendingByMedication(_ context.Context, medicationID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, rec := range r.records {
		if rec.MedicationID != nil && *rec.MedicationID == medicationID && rec.Status == notification.StatusPending {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

func (r *memNotifRepo) DeleteByStatusBefore(_ context.Context, status notification.Status, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, rec := range r.records {
		if rec.Status == status && rec.ScheduledFor.Before(cutoff) {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

func (r *memNotifRepo) CountByStatusBefore(_ context.Context, status notification.Status, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.Status == status && rec.ScheduledFor.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (r *memNotifRepo) CountByStatus(_ context.Context, status notification.Status) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *memNotifRepo) LatestSentByChatID(_ context.Context, chatID int64) (*notification.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *notification.Record
	for _, rec := range r.records {
		if rec.Addresses.TelegramChatID != chatID || rec.Status != notification.StatusSent {
			continue
		}
		if latest == nil || rec.ScheduledFor.After(latest.ScheduledFor) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, notification.ErrRecordNotFound
	}
	return copyRecord(latest), nil
}

// memUserRepo is an in-memory user directory.
type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newMemUserRepo(users ...*user.User) *memUserRepo {
	r := &memUserRepo{users: make(map[uuid.UUID]*user.User)}
	for _, u := range users {
		cp := *u
		r.users[u.ID] = &cp
	}
	return r
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByTelegramUsername(_ context.Context, username string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.TelegramUsername == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *memUserRepo) ListWithTelegram(_ context.Context) ([]*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*user.User
	for _, u := range r.users {
		if u.TelegramChatID != 0 {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memUserRepo) LinkTelegramChat(_ context.Context, username string, chatID int64) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.TelegramUsername == username {
			u.TelegramChatID = chatID
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

// memMedRepo is an in-memory medication.Repository.
type memMedRepo struct {
	mu   sync.Mutex
	meds map[uuid.UUID]*medication.Medication
}

func newMemMedRepo() *memMedRepo {
	return &memMedRepo{meds: make(map[uuid.UUID]*medication.Medication)}
}

func (r *memMedRepo) Create(_ context.Context, med *medication.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *med
	r.meds[med.ID] = &cp
	return nil
}

func (r *memMedRepo) GetByID(_ context.Context, id uuid.UUID) (*medication.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	med, ok := r.meds[id]
	if !ok {
		return nil, medication.ErrNotFound
	}
	cp := *med
	return &cp, nil
}

func (r *memMedRepo) Update(_ context.Context, med *medication.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meds[med.ID]; !ok {
		return medication.ErrNotFound
	}
	cp := *med
	r.meds[med.ID] = &cp
	return nil
}

func (r *memMedRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meds[id]; !ok {
		return medication.ErrNotFound
	}
	delete(r.meds, id)
	return nil
}

func (r *memMedRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*medication.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*medication.Medication
	for _, med := range r.meds {
		if med.UserID == userID {
			cp := *med
			out = append(out, &cp)
		}
	}
	return out, nil
}

// sentMessage records one gateway Send call.
type sentMessage struct {
	Channels []notification.Channel
	Addr     notification.Addresses
	Message  string
	Actions  *gateway.Actions
}

// stubGateway is a scriptable gateway.Gateway for tests.
type stubGateway struct {
	mu      sync.Mutex
	sendErr error
	calls   []sentMessage
}

func (g *stubGateway) failWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sendErr = err
}

func (g *stubGateway) Send(_ context.Context, channels []notification.Channel, addr notification.Addresses, message string, actions *gateway.Actions) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	hasTelegram := false
	for _, ch := range channels {
		if ch == notification.ChannelTelegram && addr.TelegramChatID != 0 {
			hasTelegram = true
		}
	}
	if !hasTelegram {
		return gateway.ErrNoUsableChannel
	}
	if g.sendErr != nil {
		return &gateway.SendFailure{Channel: notification.ChannelTelegram, Err: g.sendErr}
	}
	g.calls = append(g.calls, sentMessage{Channels: channels, Addr: addr, Message: message, Actions: actions})
	return nil
}

func (g *stubGateway) sent() []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentMessage(nil), g.calls...)
}
