package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grtshw/wedding-invitation/models"
	"github.com/grtshw/wedding-invitation/whatsapp"
)

// Memory is an in-memory Store used in tests and local tooling.
type Memory struct {
	mu       sync.RWMutex
	guests   map[string]models.GuestRecord
	messages []models.MessageRecord
	now      func() time.Time
	fail     error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		guests: make(map[string]models.GuestRecord),
		now:    time.Now,
	}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// SetClock overrides the time source used for CreatedAt.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// SeedGuest stores g as-is, keeping its ID.
func (m *Memory) SeedGuest(g models.GuestRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.Normalize()
	m.guests[g.ID] = g
}

// SeedMessage stores msg as-is without parent validation.
func (m *Memory) SeedMessage(msg models.MessageRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *Memory) FindGuestByID(ctx context.Context, id string) (models.GuestRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fail != nil {
		return models.GuestRecord{}, m.fail
	}
	g, ok := m.guests[id]
	if !ok || id == "" {
		return models.GuestRecord{}, ErrNotFound
	}
	return g, nil
}

func (m *Memory) FindGuestByName(ctx context.Context, name string) (models.GuestRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fail != nil {
		return models.GuestRecord{}, m.fail
	}
	key := NameKey(name)
	if key == "" {
		return models.GuestRecord{}, ErrNotFound
	}
	var (
		found models.GuestRecord
		ok    bool
	)
	// Oldest match wins, mirroring the SQL ordering.
	for _, g := range m.guests {
		if NameKey(g.Name) != key {
			continue
		}
		if !ok || g.Created.Before(found.Created) {
			found, ok = g, true
		}
	}
	if !ok {
		return models.GuestRecord{}, ErrNotFound
	}
	return found, nil
}

func (m *Memory) ListGuests(ctx context.Context) ([]models.GuestRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := make([]models.GuestRecord, 0, len(m.guests))
	for _, g := range m.guests {
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.After(out[j].Created)
	})
	return out, nil
}

func (m *Memory) InsertGuest(ctx context.Context, g models.GuestRecord) (models.GuestRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.GuestRecord{}, m.fail
	}
	g.Normalize()
	if m.phoneTaken(g.Phone, "") {
		return models.GuestRecord{}, ErrDuplicatePhone
	}
	g.ID = uuid.NewString()
	g.Created = m.now()
	m.guests[g.ID] = g
	return g, nil
}

func (m *Memory) UpdateGuest(ctx context.Context, g models.GuestRecord) (models.GuestRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.GuestRecord{}, m.fail
	}
	existing, ok := m.guests[g.ID]
	if !ok {
		return models.GuestRecord{}, ErrNotFound
	}
	g.Normalize()
	if m.phoneTaken(g.Phone, g.ID) {
		return models.GuestRecord{}, ErrDuplicatePhone
	}
	g.Created = existing.Created
	m.guests[g.ID] = g
	return g, nil
}

func (m *Memory) DeleteGuest(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.guests[id]; !ok {
		return ErrNotFound
	}
	delete(m.guests, id)
	return nil
}

func (m *Memory) ListMessages(ctx context.Context) ([]models.MessageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := make([]models.MessageRecord, len(m.messages))
	copy(out, m.messages)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) InsertMessage(ctx context.Context, msg models.MessageRecord) (models.MessageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.MessageRecord{}, m.fail
	}
	if msg.ParentID != "" && !m.isRoot(msg.ParentID) {
		return models.MessageRecord{}, ErrInvalidParent
	}
	msg.ID = uuid.NewString()
	msg.CreatedAt = m.now()
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *Memory) DeleteMessage(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	found := false
	for _, msg := range m.messages {
		if msg.ID == id {
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.ID == id || msg.ParentID == id {
			continue
		}
		kept = append(kept, msg)
	}
	m.messages = kept
	return nil
}

func (m *Memory) isRoot(id string) bool {
	for _, msg := range m.messages {
		if msg.ID == id {
			return msg.IsRoot()
		}
	}
	return false
}

func (m *Memory) phoneTaken(phone, exceptID string) bool {
	key := whatsapp.NormalizePhone(phone)
	if key == "" {
		return false
	}
	for id, g := range m.guests {
		if id != exceptID && whatsapp.NormalizePhone(g.Phone) == key {
			return true
		}
	}
	return false
}
