package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/grtshw/wedding-invitation/access"
	"github.com/grtshw/wedding-invitation/guestbook"
	"github.com/grtshw/wedding-invitation/invitation"
	"github.com/grtshw/wedding-invitation/models"
	"github.com/grtshw/wedding-invitation/store"
	"github.com/grtshw/wedding-invitation/utils"
	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/text/language"
)

// handlePublicAccess resolves the visitor from ?u=, ?to= or ?guest=.
// Denials never say why.
func (s *server) handlePublicAccess(re *core.RequestEvent) error {
	log := utils.RequestLogger(re, "access")
	params := access.ParamsFromQuery(re.Request.URL.Query())

	result := s.resolver.Resolve(re.Request.Context(), params)
	if !result.Authorized {
		s.audit(re, "access_denied", utils.CollectionGuests, params.ID, "failure", nil)
		return re.JSON(http.StatusNotFound, map[string]string{
			"status": "denied",
			"error":  "Invitation not found",
		})
	}

	now := s.now()
	token, err := utils.CreateGuestSession(result.GuestID, s.cfg.GuestSessionTTL, now)
	if err != nil {
		log.Error().Err(err).Msg("failed to create guest session")
		return utils.InternalErrorResponse(re, "Failed to open invitation")
	}

	s.audit(re, "access_granted", utils.CollectionGuests, result.GuestID, "success", nil)
	return re.JSON(http.StatusOK, map[string]any{
		"status":     "granted",
		"name":       result.Name,
		"guest_id":   result.GuestID,
		"session":    token,
		"expires_at": now.Add(s.cfg.GuestSessionTTL).UTC(),
	})
}

// messageView is the public shape of a guestbook entry. Contact details
// stay private.
type messageView struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Message    string            `json:"message"`
	Attendance models.Attendance `json:"attendance,omitempty"`
	ParentID   string            `json:"parent_id"`
	Created    time.Time         `json:"created"`
	TimeAgo    string            `json:"time_ago"`
}

type threadView struct {
	messageView
	Replies []messageView `json:"replies"`
}

func newMessageView(m models.MessageRecord, now time.Time, tag language.Tag) messageView {
	return messageView{
		ID:         m.ID,
		Name:       m.Name,
		Message:    m.Message,
		Attendance: m.Attendance,
		ParentID:   m.ParentID,
		Created:    m.CreatedAt,
		TimeAgo:    guestbook.TimeAgo(m.CreatedAt, now, tag),
	}
}

func (s *server) handleMessagesList(re *core.RequestEvent) error {
	tag := guestbook.ResolveLanguage(re.Request, s.cfg.Language())

	messages, err := s.store.ListMessages(re.Request.Context())
	if err != nil {
		utils.RequestLogger(re, "guestbook").Error().Err(err).Msg("failed to list messages")
		return utils.InternalErrorResponse(re, "Failed to load messages")
	}

	now := s.now()
	threads := guestbook.OrganizeThreads(messages)
	out := make([]threadView, 0, len(threads))
	count := 0
	for _, th := range threads {
		view := threadView{
			messageView: newMessageView(th.Root, now, tag),
			Replies:     make([]messageView, 0, len(th.Replies)),
		}
		for _, r := range th.Replies {
			view.Replies = append(view.Replies, newMessageView(r, now, tag))
		}
		count += 1 + len(th.Replies)
		out = append(out, view)
	}

	return re.JSON(http.StatusOK, map[string]any{
		"threads": out,
		"count":   count,
	})
}

type messageInput struct {
	Name                string `json:"name"`
	Message             string `json:"message"`
	Attendance          string `json:"attendance"`
	ParentID            string `json:"parent_id"`
	GuestCount          int    `json:"guest_count"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
	DietaryRestrictions string `json:"dietary_restrictions"`
}

func (in *messageInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Message = strings.TrimSpace(in.Message)
	in.Attendance = strings.ToLower(strings.TrimSpace(in.Attendance))
	in.ParentID = strings.TrimSpace(in.ParentID)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.DietaryRestrictions = strings.TrimSpace(in.DietaryRestrictions)
}

func (in messageInput) Validate() error {
	isRoot := in.ParentID == ""
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, utils.MaxNameLength)),
		validation.Field(&in.Message, validation.Required, validation.RuneLength(1, utils.MaxMessageLength)),
		validation.Field(&in.Attendance, validation.When(isRoot, validation.Required), validation.By(validAttendance)),
		validation.Field(&in.GuestCount, validation.Min(0), validation.Max(utils.MaxGuestCount)),
		validation.Field(&in.Email, is.EmailFormat),
		validation.Field(&in.Phone, validation.RuneLength(0, 30)),
		validation.Field(&in.DietaryRestrictions, validation.RuneLength(0, 500)),
	)
}

func validAttendance(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := models.ParseAttendance(s); err != nil {
		return errors.New("must be one of yes, no, maybe")
	}
	return nil
}

// handleMessageCreate stores a root RSVP or a reply. A valid guest session
// attributes a root to the guest and updates their RSVP status.
func (s *server) handleMessageCreate(re *core.RequestEvent) error {
	log := utils.RequestLogger(re, "guestbook")
	ctx := re.Request.Context()

	var in messageInput
	if err := utils.DecodeJSON(re, &in); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}
	in.normalize()
	if err := in.Validate(); err != nil {
		return utils.ValidationErrorResponse(re, err)
	}

	msg := models.MessageRecord{
		Name:     in.Name,
		Message:  in.Message,
		ParentID: in.ParentID,
	}
	if in.Attendance != "" {
		msg.Attendance, _ = models.ParseAttendance(in.Attendance)
	}
	if msg.IsRoot() {
		msg.GuestCount = max(in.GuestCount, 1)
		msg.Email = in.Email
		msg.Phone = in.Phone
		msg.DietaryRestrictions = in.DietaryRestrictions
	}

	var guest *models.GuestRecord
	if msg.IsRoot() {
		guest = s.sessionGuest(re)
		if guest != nil {
			msg.GuestID = guest.ID
		}
	}

	saved, err := s.store.InsertMessage(ctx, msg)
	if errors.Is(err, store.ErrInvalidParent) {
		return re.JSON(http.StatusBadRequest, map[string]any{
			"error":  "Validation failed",
			"fields": map[string]string{"parent_id": "must reference an existing top-level message"},
		})
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to save message")
		return utils.InternalErrorResponse(re, "Failed to save message")
	}

	if guest != nil {
		guest.RSVPStatus = saved.Attendance.RSVPStatus()
		if _, err := s.store.UpdateGuest(ctx, *guest); err != nil {
			log.Warn().Err(err).Str("guest_id", guest.ID).Msg("failed to update guest rsvp status")
		}
	}

	if saved.IsRoot() {
		s.audit(re, "rsvp_submitted", utils.CollectionMessages, saved.ID, "success", map[string]any{
			"attendance": string(saved.Attendance),
			"guest_id":   saved.GuestID,
		})
		if s.notify != nil {
			s.notify(saved)
		}
	}

	tag := guestbook.ResolveLanguage(re.Request, s.cfg.Language())
	return re.JSON(http.StatusCreated, newMessageView(saved, s.now(), tag))
}

// sessionGuest returns the guest named by a valid X-Guest-Session header.
// Missing or invalid sessions are anonymous, not errors.
func (s *server) sessionGuest(re *core.RequestEvent) *models.GuestRecord {
	token := re.Request.Header.Get(utils.GuestSessionHeader)
	if token == "" {
		return nil
	}
	log := utils.RequestLogger(re, "guestbook")
	claims, err := utils.ValidateGuestSession(token, s.now())
	if err != nil {
		log.Debug().Err(err).Msg("ignoring guest session")
		return nil
	}
	g, err := s.store.FindGuestByID(re.Request.Context(), claims.GuestID)
	if err != nil {
		log.Debug().Err(err).Str("guest_id", claims.GuestID).Msg("session guest not found")
		return nil
	}
	return &g
}

// handlePublicWedding returns the couple's details and the countdown to the
// ceremony.
func (s *server) handlePublicWedding(re *core.RequestEvent) error {
	details := s.weddingDetails()

	countdown := invitation.Remaining{Passed: true}
	if start, err := details.Ceremony.Start(s.loc); err == nil {
		countdown = invitation.Countdown(s.now(), start)
	} else {
		utils.RequestLogger(re, "invitation").Warn().Err(err).Msg("ceremony start not parseable")
	}

	return re.JSON(http.StatusOK, map[string]any{
		"wedding":   details,
		"countdown": countdown,
		"timezone":  s.loc.String(),
	})
}
