// Package guestbook arranges guestbook and RSVP messages into threads and
// formats their relative timestamps.
package guestbook

import (
	"sort"
	"sync"

	"github.com/grtshw/wedding-invitation/models"
)

// Thread is a root message and its direct replies, oldest reply first.
type Thread struct {
	Root    models.MessageRecord
	Replies []models.MessageRecord
}

// OrganizeThreads groups replies under their roots. Roots are ordered newest
// first and replies oldest first. Replies whose parent is not a root in
// messages are dropped. The input is not modified.
func OrganizeThreads(messages []models.MessageRecord) []Thread {
	var roots []models.MessageRecord
	byParent := make(map[string][]models.MessageRecord)
	for _, m := range messages {
		if m.IsRoot() {
			roots = append(roots, m)
			continue
		}
		byParent[m.ParentID] = append(byParent[m.ParentID], m)
	}

	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].CreatedAt.After(roots[j].CreatedAt)
	})

	threads := make([]Thread, 0, len(roots))
	for _, root := range roots {
		replies := append([]models.MessageRecord{}, byParent[root.ID]...)
		sort.SliceStable(replies, func(i, j int) bool {
			return replies[i].CreatedAt.Before(replies[j].CreatedAt)
		})
		threads = append(threads, Thread{Root: root, Replies: replies})
	}
	return threads
}

// Feed is the message collection for one page. New submissions are appended
// once the store acknowledges them, so the page never refetches.
type Feed struct {
	mu       sync.RWMutex
	messages []models.MessageRecord
}

// NewFeed starts a feed from an initial load.
func NewFeed(initial []models.MessageRecord) *Feed {
	return &Feed{messages: append([]models.MessageRecord{}, initial...)}
}

// Append adds a stored message.
func (f *Feed) Append(m models.MessageRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, m)
}

// Len returns the number of messages, orphans included.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.messages)
}

// Threads returns the organized view of the current collection.
func (f *Feed) Threads() []Thread {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return OrganizeThreads(f.messages)
}
