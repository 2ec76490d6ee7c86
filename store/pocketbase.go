package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/grtshw/wedding-invitation/models"
	"github.com/grtshw/wedding-invitation/utils"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// PocketBase is the Store backed by the application's collections.
type PocketBase struct {
	app core.App
}

// NewPocketBase wraps app.
func NewPocketBase(app core.App) *PocketBase {
	return &PocketBase{app: app}
}

// PrepareGuestRecord fills the derived guest columns: folded name key,
// slug, encrypted phone and its blind index. It runs from the store and from
// the record hooks so admin UI edits get the same treatment.
func PrepareGuestRecord(record *core.Record) error {
	record.Set(utils.FieldNameKey, NameKey(record.GetString(utils.FieldName)))
	if record.GetString(utils.FieldSlug) == "" {
		record.Set(utils.FieldSlug, utils.GuestSlug(record.GetString(utils.FieldName)))
	}
	if record.GetString(utils.FieldCategory) == "" {
		record.Set(utils.FieldCategory, models.DefaultCategory)
	}
	if record.GetString(utils.FieldRSVPStatus) == "" {
		record.Set(utils.FieldRSVPStatus, string(models.RSVPUnconfirmed))
	}
	if _, err := utils.EncryptGuestPII(record); err != nil {
		return fmt.Errorf("encrypt guest pii: %w", err)
	}
	return nil
}

func (p *PocketBase) findOne(ctx context.Context, collection string, where dbx.Expression, order string) (*core.Record, error) {
	record := &core.Record{}
	q := p.app.RecordQuery(collection).WithContext(ctx).AndWhere(where).Limit(1)
	if order != "" {
		q = q.OrderBy(order)
	}
	if err := q.One(record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return record, nil
}

func (p *PocketBase) FindGuestByID(ctx context.Context, id string) (models.GuestRecord, error) {
	if id == "" {
		return models.GuestRecord{}, ErrNotFound
	}
	record, err := p.findOne(ctx, utils.CollectionGuests, dbx.HashExp{"id": id}, "")
	if err != nil {
		return models.GuestRecord{}, err
	}
	return guestFromRecord(record), nil
}

func (p *PocketBase) FindGuestByName(ctx context.Context, name string) (models.GuestRecord, error) {
	key := NameKey(name)
	if key == "" {
		return models.GuestRecord{}, ErrNotFound
	}
	record, err := p.findOne(ctx, utils.CollectionGuests, dbx.HashExp{utils.FieldNameKey: key}, "created ASC")
	if err != nil {
		return models.GuestRecord{}, err
	}
	return guestFromRecord(record), nil
}

func (p *PocketBase) ListGuests(ctx context.Context) ([]models.GuestRecord, error) {
	var records []*core.Record
	err := p.app.RecordQuery(utils.CollectionGuests).
		WithContext(ctx).
		OrderBy("created DESC", "id ASC").
		All(&records)
	if err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	out := make([]models.GuestRecord, 0, len(records))
	for _, r := range records {
		out = append(out, guestFromRecord(r))
	}
	return out, nil
}

func (p *PocketBase) InsertGuest(ctx context.Context, g models.GuestRecord) (models.GuestRecord, error) {
	collection, err := p.app.FindCachedCollectionByNameOrId(utils.CollectionGuests)
	if err != nil {
		return models.GuestRecord{}, fmt.Errorf("find guests collection: %w", err)
	}
	g.Normalize()
	if err := p.checkPhone(ctx, g.Phone, ""); err != nil {
		return models.GuestRecord{}, err
	}

	record := core.NewRecord(collection)
	applyGuest(record, g)
	if err := PrepareGuestRecord(record); err != nil {
		return models.GuestRecord{}, err
	}
	if err := p.app.SaveWithContext(ctx, record); err != nil {
		return models.GuestRecord{}, fmt.Errorf("save guest: %w", err)
	}
	return guestFromRecord(record), nil
}

func (p *PocketBase) UpdateGuest(ctx context.Context, g models.GuestRecord) (models.GuestRecord, error) {
	record, err := p.findOne(ctx, utils.CollectionGuests, dbx.HashExp{"id": g.ID}, "")
	if err != nil {
		return models.GuestRecord{}, err
	}
	g.Normalize()
	if err := p.checkPhone(ctx, g.Phone, g.ID); err != nil {
		return models.GuestRecord{}, err
	}

	renamed := NameKey(record.GetString(utils.FieldName)) != NameKey(g.Name)
	applyGuest(record, g)
	if renamed && g.Slug == "" {
		record.Set(utils.FieldSlug, "")
	}
	if err := PrepareGuestRecord(record); err != nil {
		return models.GuestRecord{}, err
	}
	if err := p.app.SaveWithContext(ctx, record); err != nil {
		return models.GuestRecord{}, fmt.Errorf("save guest: %w", err)
	}
	return guestFromRecord(record), nil
}

func (p *PocketBase) DeleteGuest(ctx context.Context, id string) error {
	record, err := p.findOne(ctx, utils.CollectionGuests, dbx.HashExp{"id": id}, "")
	if err != nil {
		return err
	}
	if err := p.app.DeleteWithContext(ctx, record); err != nil {
		return fmt.Errorf("delete guest: %w", err)
	}
	return nil
}

func (p *PocketBase) ListMessages(ctx context.Context) ([]models.MessageRecord, error) {
	var records []*core.Record
	err := p.app.RecordQuery(utils.CollectionMessages).
		WithContext(ctx).
		OrderBy("created ASC").
		All(&records)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]models.MessageRecord, 0, len(records))
	for _, r := range records {
		out = append(out, messageFromRecord(r))
	}
	return out, nil
}

func (p *PocketBase) InsertMessage(ctx context.Context, m models.MessageRecord) (models.MessageRecord, error) {
	if m.ParentID != "" {
		parent, err := p.findOne(ctx, utils.CollectionMessages, dbx.HashExp{"id": m.ParentID}, "")
		if errors.Is(err, ErrNotFound) {
			return models.MessageRecord{}, ErrInvalidParent
		}
		if err != nil {
			return models.MessageRecord{}, err
		}
		if parent.GetString(utils.FieldParentID) != "" {
			return models.MessageRecord{}, ErrInvalidParent
		}
	}

	collection, err := p.app.FindCachedCollectionByNameOrId(utils.CollectionMessages)
	if err != nil {
		return models.MessageRecord{}, fmt.Errorf("find messages collection: %w", err)
	}
	record := core.NewRecord(collection)
	record.Set("name", m.Name)
	record.Set("message", m.Message)
	record.Set("attendance", string(m.Attendance))
	record.Set(utils.FieldParentID, m.ParentID)
	record.Set("guest", m.GuestID)
	record.Set("guest_count", m.GuestCount)
	record.Set("email", m.Email)
	record.Set("phone", m.Phone)
	record.Set("dietary_restrictions", m.DietaryRestrictions)
	if err := p.app.SaveWithContext(ctx, record); err != nil {
		return models.MessageRecord{}, fmt.Errorf("save message: %w", err)
	}
	return messageFromRecord(record), nil
}

func (p *PocketBase) DeleteMessage(ctx context.Context, id string) error {
	record, err := p.findOne(ctx, utils.CollectionMessages, dbx.HashExp{"id": id}, "")
	if err != nil {
		return err
	}
	return p.app.RunInTransaction(func(txApp core.App) error {
		var replies []*core.Record
		err := txApp.RecordQuery(utils.CollectionMessages).
			WithContext(ctx).
			AndWhere(dbx.HashExp{utils.FieldParentID: id}).
			All(&replies)
		if err != nil {
			return fmt.Errorf("find replies: %w", err)
		}
		for _, reply := range replies {
			if err := txApp.DeleteWithContext(ctx, reply); err != nil {
				return fmt.Errorf("delete reply %s: %w", reply.Id, err)
			}
		}
		if err := txApp.DeleteWithContext(ctx, record); err != nil {
			return fmt.Errorf("delete message: %w", err)
		}
		return nil
	})
}

// checkPhone returns ErrDuplicatePhone when another guest has the same
// normalized number.
func (p *PocketBase) checkPhone(ctx context.Context, phone, exceptID string) error {
	index := utils.PhoneIndex(phone)
	if index == "" {
		return nil
	}
	where := dbx.And(
		dbx.HashExp{utils.FieldPhoneIndex: index},
		dbx.Not(dbx.HashExp{"id": exceptID}),
	)
	_, err := p.findOne(ctx, utils.CollectionGuests, where, "")
	switch {
	case err == nil:
		return ErrDuplicatePhone
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return err
	}
}

func applyGuest(record *core.Record, g models.GuestRecord) {
	record.Set(utils.FieldName, g.Name)
	record.Set(utils.FieldPhone, g.Phone)
	record.Set(utils.FieldCategory, g.Category)
	record.Set(utils.FieldRSVPStatus, string(g.RSVPStatus))
	if g.Slug != "" {
		record.Set(utils.FieldSlug, g.Slug)
	}
}

func guestFromRecord(r *core.Record) models.GuestRecord {
	return models.GuestRecord{
		ID:         r.Id,
		Name:       r.GetString(utils.FieldName),
		Slug:       r.GetString(utils.FieldSlug),
		Phone:      utils.DecryptField(r.GetString(utils.FieldPhone)),
		Category:   r.GetString(utils.FieldCategory),
		RSVPStatus: models.RSVPStatus(r.GetString(utils.FieldRSVPStatus)),
		Created:    r.GetDateTime("created").Time(),
	}
}

func messageFromRecord(r *core.Record) models.MessageRecord {
	return models.MessageRecord{
		ID:                  r.Id,
		Name:                r.GetString("name"),
		Message:             r.GetString("message"),
		Attendance:          models.Attendance(r.GetString("attendance")),
		ParentID:            r.GetString(utils.FieldParentID),
		CreatedAt:           r.GetDateTime("created").Time(),
		GuestID:             r.GetString("guest"),
		GuestCount:          r.GetInt("guest_count"),
		Email:               r.GetString("email"),
		Phone:               r.GetString("phone"),
		DietaryRestrictions: r.GetString("dietary_restrictions"),
	}
}

var _ Store = (*PocketBase)(nil)
