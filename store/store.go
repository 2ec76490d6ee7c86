// Package store defines the record store contract used by the invitation
// and its two implementations: PocketBase-backed and in-memory.
package store

import (
	"context"
	"errors"

	"github.com/grtshw/wedding-invitation/models"
	"golang.org/x/text/cases"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicatePhone = errors.New("phone number already registered to another guest")
	ErrInvalidParent  = errors.New("parent message does not exist or is a reply")
)

// Store is the persistence contract. Implementations must be safe for
// concurrent use.
type Store interface {
	FindGuestByID(ctx context.Context, id string) (models.GuestRecord, error)
	// FindGuestByName matches the whole name case-insensitively.
	FindGuestByName(ctx context.Context, name string) (models.GuestRecord, error)
	ListGuests(ctx context.Context) ([]models.GuestRecord, error)
	InsertGuest(ctx context.Context, g models.GuestRecord) (models.GuestRecord, error)
	UpdateGuest(ctx context.Context, g models.GuestRecord) (models.GuestRecord, error)
	DeleteGuest(ctx context.Context, id string) error

	// ListMessages returns every message ordered by creation time, oldest first.
	ListMessages(ctx context.Context) ([]models.MessageRecord, error)
	// InsertMessage assigns ID and CreatedAt. Replies must point at a root.
	InsertMessage(ctx context.Context, m models.MessageRecord) (models.MessageRecord, error)
	// DeleteMessage removes a message and, for roots, its replies.
	DeleteMessage(ctx context.Context, id string) error
}

// GuestReader is the read side the access resolver needs.
type GuestReader interface {
	FindGuestByID(ctx context.Context, id string) (models.GuestRecord, error)
	FindGuestByName(ctx context.Context, name string) (models.GuestRecord, error)
}

// NameKey folds a guest name for case-insensitive equality. Spacing is kept
// as written.
func NameKey(name string) string {
	return cases.Fold().String(name)
}
