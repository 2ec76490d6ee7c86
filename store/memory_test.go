package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/grtshw/wedding-invitation/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, NameKey("Budi Santoso"), NameKey("budi SANTOSO"))
	assert.Equal(t, NameKey("ÉLODIE"), NameKey("élodie"))
	assert.NotEqual(t, NameKey("Budi"), NameKey("Budi Santoso"))
	assert.NotEqual(t, NameKey("Budi Santoso"), NameKey("Budi  Santoso"))
	assert.Equal(t, "", NameKey(""))
}

func TestMemoryFindGuest(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.SeedGuest(models.GuestRecord{ID: "abc", Name: "Siti Aminah"})

	g, err := m.FindGuestByID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "Siti Aminah", g.Name)
	assert.Equal(t, models.DefaultCategory, g.Category)

	_, err = m.FindGuestByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	g, err = m.FindGuestByName(ctx, "siti aminah")
	require.NoError(t, err)
	assert.Equal(t, "abc", g.ID)

	_, err = m.FindGuestByName(ctx, "siti")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.FindGuestByName(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryGuestCRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.SetClock(fixedClock(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)))

	first, err := m.InsertGuest(ctx, models.GuestRecord{Name: "Budi", Phone: "0812-111"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	assert.Equal(t, models.RSVPUnconfirmed, first.RSVPStatus)

	second, err := m.InsertGuest(ctx, models.GuestRecord{Name: "Ani", Phone: "0813"})
	require.NoError(t, err)

	_, err = m.InsertGuest(ctx, models.GuestRecord{Name: "Dup", Phone: "+62 812 111"})
	assert.ErrorIs(t, err, ErrDuplicatePhone)

	list, err := m.ListGuests(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	second.Phone = "0812111"
	_, err = m.UpdateGuest(ctx, second)
	assert.ErrorIs(t, err, ErrDuplicatePhone)

	first.RSVPStatus = models.RSVPAttending
	updated, err := m.UpdateGuest(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, models.RSVPAttending, updated.RSVPStatus)
	assert.Equal(t, first.Created, updated.Created)

	_, err = m.UpdateGuest(ctx, models.GuestRecord{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.DeleteGuest(ctx, first.ID))
	assert.ErrorIs(t, m.DeleteGuest(ctx, first.ID), ErrNotFound)
}

func TestMemoryMessages(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.SetClock(fixedClock(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)))

	root, err := m.InsertMessage(ctx, models.MessageRecord{Name: "A", Message: "Selamat!", Attendance: models.AttendanceYes})
	require.NoError(t, err)
	require.NotEmpty(t, root.ID)
	require.False(t, root.CreatedAt.IsZero())

	reply, err := m.InsertMessage(ctx, models.MessageRecord{Name: "B", Message: "Amin", Attendance: models.AttendanceYes, ParentID: root.ID})
	require.NoError(t, err)

	_, err = m.InsertMessage(ctx, models.MessageRecord{Name: "C", Message: "nested", ParentID: reply.ID})
	assert.ErrorIs(t, err, ErrInvalidParent)

	_, err = m.InsertMessage(ctx, models.MessageRecord{Name: "C", Message: "lost", ParentID: "99"})
	assert.ErrorIs(t, err, ErrInvalidParent)

	msgs, err := m.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, root.ID, msgs[0].ID)

	require.NoError(t, m.DeleteMessage(ctx, root.ID))
	msgs, err = m.ListMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs, "replies go with their root")

	assert.ErrorIs(t, m.DeleteMessage(ctx, root.ID), ErrNotFound)
}

func TestMemoryDeleteUnknownKeepsOrphans(t *testing.T) {
	m := NewMemory()
	m.SeedMessage(models.MessageRecord{ID: "3", ParentID: "99", Message: "orphan"})

	assert.ErrorIs(t, m.DeleteMessage(context.Background(), "99"), ErrNotFound)
	msgs, err := m.ListMessages(context.Background())
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestMemoryFailWith(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend unreachable")
	m := NewMemory()
	m.SeedGuest(models.GuestRecord{ID: "abc", Name: "Siti Aminah"})
	m.FailWith(boom)

	_, err := m.FindGuestByID(ctx, "abc")
	assert.ErrorIs(t, err, boom)
	_, err = m.ListMessages(ctx)
	assert.ErrorIs(t, err, boom)

	m.FailWith(nil)
	_, err = m.FindGuestByID(ctx, "abc")
	assert.NoError(t, err)
}
