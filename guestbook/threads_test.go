package guestbook

import (
	"testing"
	"time"

	"github.com/grtshw/wedding-invitation/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 12, 25, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func msg(id, parent string, minutes int, name string) models.MessageRecord {
	return models.MessageRecord{
		ID:         id,
		ParentID:   parent,
		CreatedAt:  at(minutes),
		Name:       name,
		Message:    "Selamat menempuh hidup baru",
		Attendance: models.AttendanceYes,
	}
}

func ids(ms []models.MessageRecord) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func rootIDs(threads []Thread) []string {
	out := make([]string, 0, len(threads))
	for _, th := range threads {
		out = append(out, th.Root.ID)
	}
	return out
}

func TestOrganizeThreadsOrdering(t *testing.T) {
	messages := []models.MessageRecord{
		msg("r2", "", 2, "B"),
		msg("x2", "r1", 12, "reply late"),
		msg("r1", "", 1, "A"),
		msg("x1", "r1", 11, "reply early"),
		msg("r3", "", 3, "C"),
	}

	threads := OrganizeThreads(messages)

	assert.Equal(t, []string{"r3", "r2", "r1"}, rootIDs(threads), "roots newest first")
	require.Len(t, threads, 3)
	assert.Equal(t, []string{"x1", "x2"}, ids(threads[2].Replies), "replies oldest first")
}

func TestOrganizeThreadsKeepsEmptyRoots(t *testing.T) {
	threads := OrganizeThreads([]models.MessageRecord{msg("r1", "", 1, "A")})

	require.Len(t, threads, 1)
	assert.NotNil(t, threads[0].Replies)
	assert.Empty(t, threads[0].Replies)
}

func TestOrganizeThreadsDropsOrphans(t *testing.T) {
	messages := []models.MessageRecord{
		msg("1", "", 1, "A"),
		msg("2", "1", 2, "B"),
		msg("3", "99", 3, "C"),
	}

	threads := OrganizeThreads(messages)

	require.Len(t, threads, 1)
	assert.Equal(t, "1", threads[0].Root.ID)
	assert.Equal(t, []string{"2"}, ids(threads[0].Replies))
	for _, th := range threads {
		assert.NotEqual(t, "3", th.Root.ID)
		assert.NotContains(t, ids(th.Replies), "3")
	}
}

func TestOrganizeThreadsNestedReplyIsOrphan(t *testing.T) {
	// Only one level deep: a reply to a reply has no root parent.
	messages := []models.MessageRecord{
		msg("1", "", 1, "A"),
		msg("2", "1", 2, "B"),
		msg("3", "2", 3, "C"),
	}

	threads := OrganizeThreads(messages)

	require.Len(t, threads, 1)
	assert.Equal(t, []string{"2"}, ids(threads[0].Replies))
}

func TestOrganizeThreadsIdempotent(t *testing.T) {
	messages := []models.MessageRecord{
		msg("r1", "", 1, "A"),
		msg("r2", "", 5, "B"),
		msg("x1", "r1", 6, "C"),
		msg("x2", "r2", 7, "D"),
		msg("o1", "zz", 8, "E"),
	}
	snapshot := append([]models.MessageRecord{}, messages...)

	first := OrganizeThreads(messages)
	second := OrganizeThreads(messages)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, messages, "input untouched")
}

func TestOrganizeThreadsEmpty(t *testing.T) {
	assert.Empty(t, OrganizeThreads(nil))
}

func TestOrganizeThreadsStableTies(t *testing.T) {
	messages := []models.MessageRecord{
		msg("a", "", 1, "A"),
		msg("b", "", 1, "B"),
	}
	assert.Equal(t, []string{"a", "b"}, rootIDs(OrganizeThreads(messages)))
}

func TestFeedAppend(t *testing.T) {
	feed := NewFeed([]models.MessageRecord{msg("1", "", 1, "A")})

	feed.Append(msg("2", "1", 2, "B"))
	feed.Append(msg("3", "", 3, "C"))

	threads := feed.Threads()
	assert.Equal(t, 3, feed.Len())
	assert.Equal(t, []string{"3", "1"}, rootIDs(threads))
	assert.Equal(t, []string{"2"}, ids(threads[1].Replies))
}
