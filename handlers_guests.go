package main

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/grtshw/wedding-invitation/models"
	"github.com/grtshw/wedding-invitation/store"
	"github.com/grtshw/wedding-invitation/utils"
	"github.com/grtshw/wedding-invitation/whatsapp"
	"github.com/pocketbase/pocketbase/core"
	"github.com/skip2/go-qrcode"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-.]{6,30}$`)

type guestInput struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Category   string `json:"category"`
	RSVPStatus string `json:"rsvp_status"`
}

func (in *guestInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Category = strings.TrimSpace(in.Category)
	in.RSVPStatus = strings.TrimSpace(in.RSVPStatus)
}

func (in guestInput) Validate() error {
	statuses := []any{}
	for _, st := range models.RSVPStatuses {
		statuses = append(statuses, string(st))
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, utils.MaxNameLength)),
		validation.Field(&in.Phone, validation.Match(phonePattern)),
		validation.Field(&in.Category, validation.RuneLength(0, 100)),
		validation.Field(&in.RSVPStatus, validation.In(statuses...)),
	)
}

func (in guestInput) record() models.GuestRecord {
	return models.GuestRecord{
		Name:       in.Name,
		Phone:      in.Phone,
		Category:   in.Category,
		RSVPStatus: models.RSVPStatus(in.RSVPStatus),
	}
}

// filterGuests keeps guests whose name contains search (case-insensitive)
// and, when set, whose category matches exactly.
func filterGuests(guests []models.GuestRecord, search, category string) []models.GuestRecord {
	key := store.NameKey(strings.TrimSpace(search))
	out := make([]models.GuestRecord, 0, len(guests))
	for _, g := range guests {
		if category != "" && g.Category != category {
			continue
		}
		if key != "" && !strings.Contains(store.NameKey(g.Name), key) {
			continue
		}
		out = append(out, g)
	}
	return out
}

func (s *server) handleGuestsList(re *core.RequestEvent) error {
	guests, err := s.store.ListGuests(re.Request.Context())
	if err != nil {
		utils.RequestLogger(re, "guests").Error().Err(err).Msg("failed to list guests")
		return utils.InternalErrorResponse(re, "Failed to fetch guests")
	}

	q := re.Request.URL.Query()
	items := filterGuests(guests, q.Get("search"), strings.TrimSpace(q.Get("category")))
	return utils.DataResponse(re, map[string]any{
		"items":      items,
		"totalItems": len(items),
	})
}

func (s *server) handleGuestGet(re *core.RequestEvent) error {
	g, err := s.store.FindGuestByID(re.Request.Context(), re.Request.PathValue("id"))
	if err != nil {
		return s.guestError(re, err)
	}
	return utils.DataResponse(re, g)
}

func (s *server) handleGuestCreate(re *core.RequestEvent) error {
	var in guestInput
	if err := utils.DecodeJSON(re, &in); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}
	in.normalize()
	if err := in.Validate(); err != nil {
		return utils.ValidationErrorResponse(re, err)
	}

	g, err := s.store.InsertGuest(re.Request.Context(), in.record())
	if err != nil {
		return s.guestError(re, err)
	}
	return re.JSON(http.StatusCreated, g)
}

func (s *server) handleGuestUpdate(re *core.RequestEvent) error {
	ctx := re.Request.Context()
	existing, err := s.store.FindGuestByID(ctx, re.Request.PathValue("id"))
	if err != nil {
		return s.guestError(re, err)
	}

	// Start from the stored values so absent fields are kept.
	in := guestInput{
		Name:       existing.Name,
		Phone:      existing.Phone,
		Category:   existing.Category,
		RSVPStatus: string(existing.RSVPStatus),
	}
	if err := utils.DecodeJSON(re, &in); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}
	in.normalize()
	if err := in.Validate(); err != nil {
		return utils.ValidationErrorResponse(re, err)
	}

	updated := in.record()
	updated.ID = existing.ID
	if store.NameKey(updated.Name) == store.NameKey(existing.Name) {
		updated.Slug = existing.Slug
	}
	g, err := s.store.UpdateGuest(ctx, updated)
	if err != nil {
		return s.guestError(re, err)
	}
	return utils.DataResponse(re, g)
}

func (s *server) handleGuestDelete(re *core.RequestEvent) error {
	if err := s.store.DeleteGuest(re.Request.Context(), re.Request.PathValue("id")); err != nil {
		return s.guestError(re, err)
	}
	return re.NoContent(http.StatusNoContent)
}

type batchInput struct {
	Guests []guestInput `json:"guests"`
}

// batchRows drops blank rows and rejects rows missing a name or phone.
// Phones repeated inside the batch are reported as duplicates.
func batchRows(rows []guestInput) ([]guestInput, error) {
	out := make([]guestInput, 0, len(rows))
	errs := validation.Errors{}
	seen := map[string]int{}
	for i, row := range rows {
		row.normalize()
		if row.Name == "" && row.Phone == "" {
			continue
		}
		field := fmt.Sprintf("guests.%d", i)
		if row.Name == "" || row.Phone == "" {
			errs[field] = errors.New("name and phone are both required")
			continue
		}
		if err := row.Validate(); err != nil {
			errs[field] = err
			continue
		}
		key := whatsapp.NormalizePhone(row.Phone)
		if first, dup := seen[key]; dup {
			errs[field] = fmt.Errorf("phone %s repeats row %d", row.Phone, first)
			continue
		}
		seen[key] = i
		out = append(out, row)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// handleGuestsBatch inserts every row or none. Inserted guests are removed
// again when a later row fails.
func (s *server) handleGuestsBatch(re *core.RequestEvent) error {
	log := utils.RequestLogger(re, "guests")
	ctx := re.Request.Context()

	var in batchInput
	if err := utils.DecodeJSON(re, &in); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}
	if len(in.Guests) > utils.MaxBatchSize {
		return utils.BadRequestResponse(re, fmt.Sprintf("At most %d guests per batch", utils.MaxBatchSize))
	}
	rows, err := batchRows(in.Guests)
	if err != nil {
		return utils.ValidationErrorResponse(re, err)
	}
	if len(rows) == 0 {
		return utils.BadRequestResponse(re, "No guests to import")
	}

	created := make([]models.GuestRecord, 0, len(rows))
	for _, row := range rows {
		g, err := s.store.InsertGuest(ctx, row.record())
		if err == nil {
			created = append(created, g)
			continue
		}

		for _, c := range created {
			if derr := s.store.DeleteGuest(ctx, c.ID); derr != nil {
				log.Error().Err(derr).Str("guest_id", c.ID).Msg("failed to roll back batch insert")
			}
		}
		if errors.Is(err, store.ErrDuplicatePhone) {
			return utils.ConflictResponse(re, fmt.Sprintf("Phone %s is already registered", row.Phone))
		}
		log.Error().Err(err).Msg("batch insert failed")
		return utils.InternalErrorResponse(re, "Failed to import guests")
	}

	log.Info().Int("count", len(created)).Msg("imported guests")
	return re.JSON(http.StatusCreated, map[string]any{
		"items":   created,
		"created": len(created),
	})
}

type inviteView struct {
	Link        string `json:"link"`
	Message     string `json:"message"`
	WhatsAppURL string `json:"whatsapp_url,omitempty"`
}

func (s *server) invite(g models.GuestRecord) inviteView {
	link := whatsapp.InviteLink(s.cfg.PublicBaseURL, g.ID)
	msg := whatsapp.Render(s.waTemplate(), g.Name, link)
	view := inviteView{Link: link, Message: msg}
	if u, err := whatsapp.DeepLink(g.Phone, msg); err == nil {
		view.WhatsAppURL = u
	}
	return view
}

func (s *server) handleGuestInvite(re *core.RequestEvent) error {
	g, err := s.store.FindGuestByID(re.Request.Context(), re.Request.PathValue("id"))
	if err != nil {
		return s.guestError(re, err)
	}
	view := s.invite(g)
	s.audit(re, "invite_sent", utils.CollectionGuests, g.ID, "success", map[string]any{
		"whatsapp": view.WhatsAppURL != "",
	})
	return utils.DataResponse(re, view)
}

func (s *server) handleGuestQR(re *core.RequestEvent) error {
	g, err := s.store.FindGuestByID(re.Request.Context(), re.Request.PathValue("id"))
	if err != nil {
		return s.guestError(re, err)
	}
	size := utils.QueryInt(re, "size", 256, 128, 1024)
	png, err := qrcode.Encode(whatsapp.InviteLink(s.cfg.PublicBaseURL, g.ID), qrcode.Medium, size)
	if err != nil {
		utils.RequestLogger(re, "guests").Error().Err(err).Msg("failed to render QR code")
		return utils.InternalErrorResponse(re, "Failed to render QR code")
	}
	re.Response.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.png"`, g.Slug))
	return re.Blob(http.StatusOK, "image/png", png)
}

// guestError maps store errors onto responses.
func (s *server) guestError(re *core.RequestEvent, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return utils.NotFoundResponse(re, "Guest not found")
	case errors.Is(err, store.ErrDuplicatePhone):
		return utils.ConflictResponse(re, "Phone number is already registered to another guest")
	default:
		utils.RequestLogger(re, "guests").Error().Err(err).Msg("guest store error")
		return utils.InternalErrorResponse(re, "Guest operation failed")
	}
}
